package api

import (
	"embed"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*
var templateFS embed.FS

func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"query": func(v url.Values) template.URL {
			if len(v) == 0 {
				return ""
			}
			return template.URL("?" + v.Encode())
		},
		"upper": strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
