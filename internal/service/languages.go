package service

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// subtitleLanguages - коды языков, предлагаемые при загрузке субтитров.
var subtitleLanguages = []string{
	"ar", "bg", "ca", "cs", "da", "de", "el", "en", "es", "et", "fa", "fi", "fr",
	"he", "hi", "hr", "hu", "id", "it", "ja", "ko", "lt", "lv", "ms", "nl", "no",
	"pl", "pt", "ro", "ru", "sk", "sl", "sr", "sv", "th", "tr", "uk", "vi", "zh",
}

type LanguageOption struct {
	Code string
	Name string
}

// LanguageName возвращает английское название языка или сам код, если он не распознан.
func LanguageName(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}

// LanguageOptions - список языков, отсортированный по названию.
func LanguageOptions() []LanguageOption {
	options := make([]LanguageOption, 0, len(subtitleLanguages))
	for _, code := range subtitleLanguages {
		options = append(options, LanguageOption{Code: code, Name: LanguageName(code)})
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Name < options[j].Name
	})
	return options
}
