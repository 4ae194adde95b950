package web

import (
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kursverein/kursanmeldung/internal/config"
	"github.com/kursverein/kursanmeldung/internal/handlers"
	"github.com/kursverein/kursanmeldung/internal/models"
)

func Router(cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	tmpl := mustParseTemplates("templates")

	// Public pages
	r.Get("/", handlers.Home(tmpl))
	r.Get("/healthz", handlers.Health)
	r.Get("/datenschutz", handlers.Privacy(tmpl))
	r.Get("/impressum", handlers.Impressum(tmpl))

	// Public registration
	r.Get("/register/{courseID}", handlers.RegisterForm(tmpl))
	r.Post("/register/{courseID}", handlers.RegisterSubmit(tmpl))

	// --- Admin routes (with login + guard) ---
	r.Route("/admin", func(ar chi.Router) {
		// Auth endpoints (public)
		ar.Get("/login", handlers.AdminLoginForm(tmpl))
		ar.Post("/login", handlers.AdminLoginSubmit)
		ar.Post("/logout", handlers.AdminLogout)

		// Guarded admin pages
		ar.Group(func(ag chi.Router) {
			ag.Use(handlers.RequireStaff)

			// Courses
			ag.Get("/courses", handlers.AdminCourses(tmpl))
			ag.Get("/courses/new", handlers.AdminNewCourseForm(tmpl))
			ag.Post("/courses", handlers.AdminCreateCourse(tmpl))
			ag.Get("/courses/attendance.xlsx", handlers.AdminAttendanceExport)
			ag.Get("/courses/{id}/edit", handlers.AdminEditCourseForm(tmpl))
			ag.Post("/courses/{id}", handlers.AdminUpdateCourse(tmpl))
			ag.Post("/courses/{id}/delete", handlers.AdminDeleteCourse)
			ag.Get("/courses/{id}/qr.png", handlers.AdminCourseQR(cfg.BaseURL))

			// Registrations (read/export; delete is admin-only)
			ag.Get("/registrations", handlers.AdminRegistrations(tmpl))
			ag.Get("/registrations/export.csv", handlers.AdminRegistrationsCSV)
			ag.Post("/registrations/{id}/delete", handlers.AdminRegDelete)

			// Staff accounts
			ag.Get("/staff", handlers.AdminStaff(tmpl))
			ag.Post("/staff", handlers.AdminCreateStaff)

			// Locations
			ag.Get("/locations", handlers.AdminLocations(tmpl))
			ag.Post("/locations", handlers.AdminCreateLocation)
			ag.Post("/locations/{id}", handlers.AdminUpdateLocation)
			ag.Post("/locations/{id}/delete", handlers.AdminDeleteLocation)
		})
	})

	return r
}

func mustParseTemplates(baseDir string) *template.Template {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		loc = time.FixedZone("CET", 1*3600)
	}

	funcs := template.FuncMap{
		"year":    func() string { return time.Now().Format("2006") },
		"fmtDate": func(t time.Time) string { return t.In(loc).Format("02.01.2006") },
		"fmtDatePtr": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.In(loc).Format("02.01.2006")
		},
		"fmtDateTime": func(t time.Time) string { return t.In(loc).Format("02.01.2006 15:04") },
		"statusLabel": models.StatusLabel,
		"deref": func(p *uint) uint {
			if p == nil {
				return 0
			}
			return *p
		},
	}

	p := template.New("").Funcs(funcs)
	p = template.Must(p.ParseGlob(filepath.Join(baseDir, "layouts", "*.tmpl")))
	p = template.Must(p.ParseGlob(filepath.Join(baseDir, "partials", "*.tmpl")))
	return p
}
