package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/export"
	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/policy"
)

type regFilters struct {
	CourseID string
	Status   string
	Q        string
}

// scopedRegistrations builds the filtered, permission-scoped query both
// the list page and the CSV export share.
func scopedRegistrations(ident policy.Identity, f regFilters) *gorm.DB {
	q := db.Conn().
		Model(&models.Registration{}).
		Scopes(policy.ScopeRegistrations(ident)).
		Preload("Course")

	if f.CourseID != "" {
		if cid, err := strconv.Atoi(f.CourseID); err == nil && cid > 0 {
			q = q.Where("registrations.course_id = ?", cid)
		}
	}
	if f.Status == models.StatusConfirmed || f.Status == models.StatusWaitlist {
		q = q.Where("registrations.status = ?", f.Status)
	}
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		q = q.Where(`LOWER(registrations.first_name) LIKE ? OR
			LOWER(registrations.last_name) LIKE ? OR
			LOWER(registrations.email) LIKE ?`, like, like, like)
	}
	return q
}

func filtersFrom(r *http.Request) regFilters {
	return regFilters{
		CourseID: r.URL.Query().Get("course_id"),
		Status:   r.URL.Query().Get("status"),
		Q:        strings.TrimSpace(r.URL.Query().Get("q")),
	}
}

// GET /admin/registrations
func AdminRegistrations(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		filters := filtersFrom(r)

		var regs []models.Registration
		if err := scopedRegistrations(ident, filters).
			Order("registrations.created_at desc").
			Find(&regs).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		// filter dropdown only offers courses the caller can see
		var courses []models.Course
		_ = db.Conn().Scopes(policy.ScopeCourses(ident)).Order("name asc").Find(&courses).Error

		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles("templates/pages/admin/registrations.tmpl"); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = view.ExecuteTemplate(w, "admin/registrations.tmpl", map[string]any{
			"Title":     "Admin • Anmeldungen",
			"Rows":      regs,
			"Courses":   courses,
			"Filters":   filters,
			"CanDelete": policy.CanDeleteRegistration(ident),
			"Flash":     MakeFlash(r, "", ""),
		})
	}
}

// POST /admin/registrations/{id}/delete — administrators only.
// Instructors get view/export, never mutation.
func AdminRegDelete(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r)
	if !policy.CanDeleteRegistration(ident) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	var reg models.Registration
	if err := db.Conn().
		Scopes(policy.ScopeRegistrations(ident)).
		First(&reg, id).Error; err != nil {
		http.NotFound(w, r)
		return
	}
	// Deliberately no waitlist promotion: a freed slot stays free until
	// someone new signs up, statuses are fixed at submission time.
	if err := db.Conn().Delete(&reg).Error; err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/registrations?ok=reg_deleted", http.StatusSeeOther)
}

// AdminRegistrationsCSV exports the current selection as CSV.
// GET /admin/registrations/export.csv — takes the list filters, plus an
// optional repeatable id param when specific rows were ticked.
func AdminRegistrationsCSV(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r)
	q := scopedRegistrations(ident, filtersFrom(r))

	if ids := r.URL.Query()["id"]; len(ids) > 0 {
		nums := make([]uint, 0, len(ids))
		for _, raw := range ids {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				nums = append(nums, uint(n))
			}
		}
		q = q.Where("registrations.id IN ?", nums)
	}

	var regs []models.Registration
	if err := q.Order("registrations.created_at asc").Find(&regs).Error; err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("registrations-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := export.WriteRegistrationsCSV(w, regs); err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
}
