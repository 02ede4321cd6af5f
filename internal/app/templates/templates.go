package templates

import (
	"embed"
	"html/template"
	"time"
)

//go:embed *.html
var files embed.FS

// Parse собирает все шаблоны страницы
func Parse() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatTime": formatTime,
	}).ParseFS(files, "*.html")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02.01.2006 15:04:05")
}
