package handlers

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/policy"
)

func requireLocationAdmin(w http.ResponseWriter, r *http.Request) (policy.Identity, bool) {
	ident, _ := IdentityFrom(r)
	if !policy.CanManageLocations(ident) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return ident, false
	}
	return ident, true
}

// GET /admin/locations
func AdminLocations(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireLocationAdmin(w, r); !ok {
			return
		}
		var locations []models.Location
		if err := db.Conn().Order("name asc").Find(&locations).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles("templates/pages/admin/locations.tmpl"); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = view.ExecuteTemplate(w, "admin/locations.tmpl", map[string]any{
			"Title":     "Admin • Orte",
			"Locations": locations,
			"Flash":     MakeFlash(r, "", ""),
		})
	}
}

// POST /admin/locations
func AdminCreateLocation(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireLocationAdmin(w, r); !ok {
		return
	}
	_ = r.ParseForm()
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		http.Redirect(w, r, "/admin/locations?error=invalid_input", http.StatusSeeOther)
		return
	}
	if err := db.Conn().Create(&models.Location{Name: name}).Error; err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/locations?ok=location_saved", http.StatusSeeOther)
}

// POST /admin/locations/{id}
func AdminUpdateLocation(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireLocationAdmin(w, r); !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	_ = r.ParseForm()
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		http.Redirect(w, r, "/admin/locations?error=invalid_input", http.StatusSeeOther)
		return
	}
	var loc models.Location
	if err := db.Conn().First(&loc, id).Error; err != nil {
		http.NotFound(w, r)
		return
	}
	loc.Name = name
	if err := db.Conn().Save(&loc).Error; err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/locations?ok=location_saved", http.StatusSeeOther)
}

// POST /admin/locations/{id}/delete
func AdminDeleteLocation(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireLocationAdmin(w, r); !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	var loc models.Location
	if err := db.Conn().First(&loc, id).Error; err != nil {
		http.NotFound(w, r)
		return
	}
	if err := db.Conn().Delete(&loc).Error; err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/locations?ok=location_deleted", http.StatusSeeOther)
}
