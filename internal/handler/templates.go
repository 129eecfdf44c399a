package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"muxlti/internal/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// render сначала выполняет шаблон в буфер, чтобы не отдать клиенту половину страницы.
func render(w http.ResponseWriter, log *logger.Logger, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
