package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm/clause"

	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/export"
	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/policy"
)

// loadScopedCourse fetches one course the identity is allowed to see.
func loadScopedCourse(id policy.Identity, courseID uint) (*models.Course, error) {
	var course models.Course
	err := db.Conn().
		Scopes(policy.ScopeCourses(id)).
		Preload("Locations").
		Preload("InstructorUser").
		First(&course, courseID).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func courseID(r *http.Request) uint {
	n, _ := strconv.Atoi(chi.URLParam(r, "id"))
	if n < 0 {
		return 0
	}
	return uint(n)
}

// GET /admin/courses
func AdminCourses(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		var courses []models.Course
		if err := db.Conn().
			Scopes(policy.ScopeCourses(ident)).
			Preload("Locations").
			Preload("InstructorUser").
			Order("start_date desc, name asc").
			Find(&courses).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		view, err := t.Clone()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := view.ParseFiles("templates/pages/admin/courses.tmpl"); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = view.ExecuteTemplate(w, "admin/courses.tmpl", map[string]any{
			"Title":    "Admin • Kurse",
			"Courses":  courses,
			"Identity": ident,
			"IsAdmin":  ident.IsAdmin(),
			"Flash":    MakeFlash(r, "", ""),
		})
	}
}

// parseCourseForm fills c from the submitted form and returns field
// errors. On errors c is partially filled so the form can re-render with
// the submitted values.
func parseCourseForm(r *http.Request, c *models.Course) (map[string]string, []models.Location) {
	errs := make(map[string]string)

	c.Name = strings.TrimSpace(r.FormValue("name"))
	if c.Name == "" {
		errs["Name"] = "Bitte Kursnamen angeben."
	}
	c.Description = strings.TrimSpace(r.FormValue("description"))
	c.Instructor = strings.TrimSpace(r.FormValue("instructor"))

	var err error
	if c.StartDate, err = parseDate(r.FormValue("start_date")); err != nil {
		errs["StartDate"] = "Ungültiges Datum."
	}
	if c.EndDate, err = parseDate(r.FormValue("end_date")); err != nil {
		errs["EndDate"] = "Ungültiges Datum."
	}

	c.StartTime = strings.TrimSpace(r.FormValue("start_time"))
	c.EndTime = strings.TrimSpace(r.FormValue("end_time"))
	for field, v := range map[string]string{"StartTime": c.StartTime, "EndTime": c.EndTime} {
		if v == "" {
			continue
		}
		if _, terr := time.Parse("15:04", v); terr != nil {
			errs[field] = "Ungültige Uhrzeit (HH:MM)."
		}
	}

	c.Days = nil
	for _, d := range r.Form["days"] {
		wd := models.Weekday(d)
		if !wd.Valid() {
			errs["Days"] = "Ungültiger Wochentag."
			continue
		}
		c.Days = append(c.Days, wd)
	}

	if n, aerr := strconv.Atoi(r.FormValue("max_participants")); aerr != nil || n <= 0 {
		errs["MaxParticipants"] = "Bitte eine positive Teilnehmerzahl angeben."
	} else {
		c.MaxParticipants = n
	}

	for field, raw := range map[string]string{
		"PriceMember":    r.FormValue("price_member"),
		"PriceNonMember": r.FormValue("price_non_member"),
	} {
		v, derr := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
		if derr != nil || v.IsNegative() {
			errs[field] = "Bitte einen gültigen Preis angeben."
			continue
		}
		if field == "PriceMember" {
			c.PriceMember = v
		} else {
			c.PriceNonMember = v
		}
	}

	c.AllowHalf = r.FormValue("allow_half") == "on"

	c.InstructorUserID = nil
	if raw := r.FormValue("instructor_user_id"); raw != "" {
		if n, aerr := strconv.Atoi(raw); aerr == nil && n > 0 {
			uid := uint(n)
			c.InstructorUserID = &uid
		}
	}

	// the date-order rule never reaches the database
	if _, ok := errs["EndDate"]; !ok {
		if verr := c.Validate(); verr != nil {
			errs["EndDate"] = "Enddatum darf nicht vor dem Startdatum liegen."
		}
	}

	var locs []models.Location
	if ids := r.Form["locations"]; len(ids) > 0 {
		nums := make([]uint, 0, len(ids))
		for _, raw := range ids {
			if n, aerr := strconv.Atoi(raw); aerr == nil && n > 0 {
				nums = append(nums, uint(n))
			}
		}
		if len(nums) > 0 {
			_ = db.Conn().Where("id IN ?", nums).Find(&locs).Error
		}
	}

	return errs, locs
}

func renderCourseForm(w http.ResponseWriter, t *template.Template, title, action string, c *models.Course, errs map[string]string) {
	var locations []models.Location
	_ = db.Conn().Order("name asc").Find(&locations).Error
	var staff []models.StaffUser
	_ = db.Conn().Order("username asc").Find(&staff).Error

	selected := make(map[uint]bool, len(c.Locations))
	for _, l := range c.Locations {
		selected[l.ID] = true
	}
	days := make(map[models.Weekday]bool, len(c.Days))
	for _, d := range c.Days {
		days[d] = true
	}

	view, err := t.Clone()
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if _, err := view.ParseFiles("templates/pages/admin/course_form.tmpl"); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = view.ExecuteTemplate(w, "admin/course_form.tmpl", map[string]any{
		"Title":        title,
		"Action":       action,
		"Course":       c,
		"Errors":       errs,
		"AllWeekdays":  models.AllWeekdays,
		"SelectedDays": days,
		"Locations":    locations,
		"SelectedLocs": selected,
		"Staff":        staff,
	})
}

// GET /admin/courses/new
func AdminNewCourseForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		if !policy.CanCreateCourse(ident) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		renderCourseForm(w, t, "Admin • Neuer Kurs", "/admin/courses", &models.Course{}, nil)
	}
}

// POST /admin/courses
func AdminCreateCourse(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		if !policy.CanCreateCourse(ident) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}

		var course models.Course
		errs, locs := parseCourseForm(r, &course)
		if len(errs) > 0 {
			course.Locations = locs
			renderCourseForm(w, t, "Admin • Neuer Kurs", "/admin/courses", &course, errs)
			return
		}

		if err := db.Conn().Omit(clause.Associations).Create(&course).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if err := db.Conn().Model(&course).Association("Locations").Replace(locs); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/admin/courses?ok=course_saved", http.StatusSeeOther)
	}
}

// GET /admin/courses/{id}/edit
func AdminEditCourseForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		course, err := loadScopedCourse(ident, courseID(r))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		// row filtering already happened; re-check anyway
		if !policy.CanEditCourse(ident, course) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		action := fmt.Sprintf("/admin/courses/%d", course.ID)
		renderCourseForm(w, t, "Admin • Kurs bearbeiten", action, course, nil)
	}
}

// POST /admin/courses/{id}
func AdminUpdateCourse(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		course, err := loadScopedCourse(ident, courseID(r))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if !policy.CanEditCourse(ident, course) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}

		errs, locs := parseCourseForm(r, course)
		if len(errs) > 0 {
			course.Locations = locs
			action := fmt.Sprintf("/admin/courses/%d", course.ID)
			renderCourseForm(w, t, "Admin • Kurs bearbeiten", action, course, errs)
			return
		}

		if err := db.Conn().Omit(clause.Associations).Save(course).Error; err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if err := db.Conn().Model(course).Association("Locations").Replace(locs); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/admin/courses?ok=course_saved", http.StatusSeeOther)
	}
}

// POST /admin/courses/{id}/delete — administrators only; the delete
// cascades to the course's registrations.
func AdminDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r)
	if !policy.CanDeleteCourse(ident) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	course, err := loadScopedCourse(ident, courseID(r))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := db.Conn().Select(clause.Associations).Delete(course).Error; err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/courses?ok=course_deleted", http.StatusSeeOther)
}

// AdminCourseQR serves a QR PNG of the public registration link, meant
// for course flyers and notice boards.
func AdminCourseQR(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := IdentityFrom(r)
		course, err := loadScopedCourse(ident, courseID(r))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		url := fmt.Sprintf("%s/register/%d", strings.TrimRight(baseURL, "/"), course.ID)
		png, err := qrcode.Encode(url, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "failed to generate qr", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// AdminAttendanceExport streams the attendance spreadsheet.
// GET /admin/courses/attendance.xlsx?id=3&id=5 — the id param may repeat
// (multi-select on the course list); only the FIRST selected course is
// exported, matching the long-standing single-file behavior.
func AdminAttendanceExport(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r)
	ids := r.URL.Query()["id"]
	if len(ids) == 0 {
		http.Redirect(w, r, "/admin/courses?error=invalid_input", http.StatusSeeOther)
		return
	}
	first, err := strconv.Atoi(ids[0])
	if err != nil || first <= 0 {
		http.Redirect(w, r, "/admin/courses?error=invalid_input", http.StatusSeeOther)
		return
	}

	var course models.Course
	if err := db.Conn().
		Scopes(policy.ScopeCourses(ident)).
		Preload("Locations").
		Preload("Registrations").
		First(&course, first).Error; err != nil {
		http.NotFound(w, r)
		return
	}

	f, err := export.AttendanceWorkbook(&course, course.Registrations)
	if err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.AttendanceFilename(&course)))
	if err := f.Write(w); err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
}
