package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/services"
)

func courseFromURL(r *http.Request) (*models.Course, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "courseID"))
	if err != nil || id <= 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var course models.Course
	if err := db.Conn().Preload("Locations").First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// GET /register/{courseID}
func RegisterForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		course, err := courseFromURL(r)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		renderRegisterForm(w, t, course, &services.RegistrationForm{}, nil)
	}
}

// POST /register/{courseID}
func RegisterSubmit(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		course, err := courseFromURL(r)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}

		form := &services.RegistrationForm{
			FirstName:     strings.TrimSpace(r.FormValue("first_name")),
			LastName:      strings.TrimSpace(r.FormValue("last_name")),
			Email:         strings.TrimSpace(r.FormValue("email")),
			IBAN:          strings.TrimSpace(r.FormValue("iban")),
			BIC:           strings.TrimSpace(r.FormValue("bic")),
			AccountHolder: strings.TrimSpace(r.FormValue("account_holder")),
			IsMember:      r.FormValue("is_member") == "on",
			HalfCourse:    r.FormValue("half_course") == "on",
			TermsAccepted: r.FormValue("terms_accepted") == "on",
		}

		// rejection re-renders the form with per-field messages;
		// nothing has been written yet
		if fieldErrs := form.Validate(); len(fieldErrs) > 0 {
			renderRegisterForm(w, t, course, form, fieldErrs)
			return
		}

		reg, err := services.Register(db.Conn(), course.ID, form)
		if err != nil {
			if errors.Is(err, services.ErrCourseNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		ok := "registered"
		if reg.Status == models.StatusWaitlist {
			ok = "waitlisted"
		}
		http.Redirect(w, r, "/?ok="+ok, http.StatusSeeOther)
	}
}

func renderRegisterForm(w http.ResponseWriter, t *template.Template, course *models.Course, form *services.RegistrationForm, fieldErrs map[string]string) {
	view, err := t.Clone()
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if _, err := view.ParseFiles("templates/pages/register.tmpl"); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = view.ExecuteTemplate(w, "register.tmpl", map[string]any{
		"Title":  "Anmeldung • " + course.Name,
		"Course": course,
		"Form":   form,
		"Errors": fieldErrs,
	})
}
