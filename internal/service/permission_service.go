package service

import (
	"fmt"
	"regexp"
)

// Restriction определяет, какие ассеты видит преподаватель курса.
type Restriction string

const (
	RestrictionNone         Restriction = ""
	RestrictionOrganization Restriction = "ORGANIZATION"
	RestrictionCourse       Restriction = "COURSE"
	RestrictionRun          Restriction = "RUN"
)

// ParseRestriction: неизвестное значение - ошибка конфигурации.
func ParseRestriction(s string) (Restriction, error) {
	switch r := Restriction(s); r {
	case RestrictionNone, RestrictionOrganization, RestrictionCourse, RestrictionRun:
		return r, nil
	default:
		return "", fmt.Errorf("incorrect value for access limit setting: %q", s)
	}
}

var coursePattern = regexp.MustCompile(`^course-v1:([^+]+)\+([^+]+)\+([^+]+)`)

// CoursePatternMatch разбирает ID курса Open edX вида course-v1:<org>+<course>+<run>.
func CoursePatternMatch(courseID string) (org, course, run string, ok bool) {
	match := coursePattern.FindStringSubmatch(courseID)
	if match == nil {
		return "", "", "", false
	}
	return match[1], match[2], match[3], true
}

// AccessPattern возвращает регулярное выражение для context_id, видимых из courseID.
// Пустая строка - ограничений нет. Если courseID не похож на ID курса Open edX,
// доступ сужается до точного совпадения с courseID.
func AccessPattern(restriction Restriction, courseID string) (string, error) {
	if restriction == RestrictionNone {
		return "", nil
	}
	if _, err := ParseRestriction(string(restriction)); err != nil {
		return "", err
	}

	org, course, run, ok := CoursePatternMatch(courseID)
	if !ok {
		return "^" + regexp.QuoteMeta(courseID) + "$", nil
	}
	org, course, run = regexp.QuoteMeta(org), regexp.QuoteMeta(course), regexp.QuoteMeta(run)

	switch restriction {
	case RestrictionOrganization:
		return `^course-v1:` + org + `\+`, nil
	case RestrictionCourse:
		return `^course-v1:` + org + `\+` + course + `\+`, nil
	case RestrictionRun:
		return `^course-v1:` + org + `\+` + course + `\+` + run + `(\+|$)`, nil
	default:
		return "", fmt.Errorf("incorrect value for access limit setting: %q", restriction)
	}
}

// PermissionService ограничивает видимость ассетов по курсу.
type PermissionService struct {
	restriction Restriction
}

func NewPermissionService(restriction string) (*PermissionService, error) {
	r, err := ParseRestriction(restriction)
	if err != nil {
		return nil, err
	}
	return &PermissionService{restriction: r}, nil
}

func (s *PermissionService) Restriction() Restriction {
	return s.restriction
}

// VisiblePattern - шаблон для фильтрации ассетов в репозитории.
func (s *PermissionService) VisiblePattern(courseID string) (string, error) {
	return AccessPattern(s.restriction, courseID)
}
