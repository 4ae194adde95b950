package handlers

import (
	"html/template"
	"net/http"
)

func staticPage(t *template.Template, file, name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles(file); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = view.ExecuteTemplate(w, name, map[string]any{"Title": title})
	}
}

// GET /datenschutz
func Privacy(t *template.Template) http.HandlerFunc {
	return staticPage(t, "templates/pages/datenschutz.tmpl", "datenschutz.tmpl", "Datenschutz")
}

// GET /impressum
func Impressum(t *template.Template) http.HandlerFunc {
	return staticPage(t, "templates/pages/impressum.tmpl", "impressum.tmpl", "Impressum")
}
