package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/policy"
	"github.com/kursverein/kursanmeldung/internal/services"
)

func requireStaffAdmin(w http.ResponseWriter, r *http.Request) (policy.Identity, bool) {
	ident, _ := IdentityFrom(r)
	if !policy.CanManageStaff(ident) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return ident, false
	}
	return ident, true
}

// GET /admin/staff
func AdminStaff(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaffAdmin(w, r); !ok {
			return
		}
		var staff []models.StaffUser
		if err := db.Conn().Order("username asc").Find(&staff).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles("templates/pages/admin/staff.tmpl"); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = view.ExecuteTemplate(w, "admin/staff.tmpl", map[string]any{
			"Title": "Admin • Benutzer",
			"Staff": staff,
			"Flash": MakeFlash(r, "", ""),
		})
	}
}

// POST /admin/staff — creates an instructor account, or another
// administrator when the admin box is ticked.
func AdminCreateStaff(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaffAdmin(w, r); !ok {
		return
	}
	_ = r.ParseForm()
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/admin/staff?error=invalid_input", http.StatusSeeOther)
		return
	}
	_, err := services.CreateStaffUser(
		db.Conn(),
		username,
		password,
		strings.TrimSpace(r.FormValue("first_name")),
		strings.TrimSpace(r.FormValue("last_name")),
		r.FormValue("is_admin") == "on",
	)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			http.Redirect(w, r, "/admin/staff?error=username_taken", http.StatusSeeOther)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/staff?ok=staff_saved", http.StatusSeeOther)
}
