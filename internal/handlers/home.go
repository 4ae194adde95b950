package handlers

import (
	"html/template"
	"net/http"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/models"
)

// GET / — upcoming courses. The end-date comparison drops courses whose
// end date is NULL along with the expired ones; that matches the legacy
// behavior and keeps undated drafts off the public page.
func Home(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var courses []models.Course
		if err := db.Conn().
			Preload("Locations").
			Where("end_date >= ?", today()).
			Order("start_date asc, name asc").
			Find(&courses).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles("templates/pages/home.tmpl"); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		data := map[string]any{
			"Title":   "Kursangebot",
			"Courses": courses,
			"Flash":   MakeFlash(r, "", ""),
		}
		if err := view.ExecuteTemplate(w, "home.tmpl", data); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	}
}

// GET /healthz
func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
