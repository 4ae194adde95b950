package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/services"
)

const staffCookieName = "staff_session"

// RequireStaff is middleware: resolves the session cookie to an identity
// or redirects to the login form. The identity (role + user id) is
// attached to the request context for the policy checks downstream.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(staffCookieName)
		if err != nil || c.Value == "" {
			http.Redirect(w, r, "/admin/login?next="+r.URL.RequestURI(), http.StatusSeeOther)
			return
		}
		id, err := services.SessionIdentity(db.Conn(), c.Value)
		if err != nil {
			if !errors.Is(err, services.ErrSessionExpired) {
				log.Error().Err(err).Msg("session lookup")
			}
			clearStaffCookie(w)
			http.Redirect(w, r, "/admin/login?next="+r.URL.RequestURI(), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, withIdentity(r, id))
	})
}

func clearStaffCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     staffCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// GET /admin/login
func AdminLoginForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles("templates/pages/admin/login.tmpl"); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = view.ExecuteTemplate(w, "admin/login.tmpl", map[string]any{
			"Title": "Admin • Login",
			"Next":  r.URL.Query().Get("next"),
			"Flash": MakeFlash(r, "", ""),
		})
	}
}

// POST /admin/login
func AdminLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	next := r.FormValue("next")

	user, err := services.Authenticate(db.Conn(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrBadCredentials) {
			http.Redirect(w, r, "/admin/login?error=bad_login", http.StatusSeeOther)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	sess, err := services.CreateSession(db.Conn(), user.ID)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     staffCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	if next == "" {
		next = "/admin/courses"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// POST /admin/logout
func AdminLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(staffCookieName); err == nil && c.Value != "" {
		_ = services.DeleteSession(db.Conn(), c.Value)
	}
	clearStaffCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
