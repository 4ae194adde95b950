package web

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/kursverein/kursanmeldung/internal/config"
	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/policy"
	"github.com/kursverein/kursanmeldung/internal/services"
)

// Template loading is relative to the repo root ("templates/..."), so the
// tests chdir there before building the router.
func chdirRepoRoot(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) }) //nolint:errcheck

	dir := orig
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above test dir")
		}
		dir = parent
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	chdirRepoRoot(t)
	if err := db.Init(filepath.Join(t.TempDir(), "router_test.db")); err != nil {
		t.Fatalf("db init: %v", err)
	}
	return Router(config.Config{BaseURL: "http://test.local"})
}

func futureDate(days int) *time.Time {
	d := time.Now().UTC().AddDate(0, 0, days)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func seedCourse(t *testing.T, name string, capacity int) *models.Course {
	t.Helper()
	c := &models.Course{
		Name:            name,
		StartDate:       futureDate(7),
		EndDate:         futureDate(60),
		StartTime:       "18:00",
		EndTime:         "19:00",
		Days:            models.WeekdaySet{models.Monday},
		MaxParticipants: capacity,
		PriceMember:     decimal.RequireFromString("40.00"),
		PriceNonMember:  decimal.RequireFromString("60.00"),
	}
	if err := db.Conn().Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func validRegisterValues() url.Values {
	return url.Values{
		"first_name":     {"Foo"},
		"last_name":      {"Bar"},
		"email":          {"foo@example.com"},
		"iban":           {"DE02120300000000202051"},
		"account_holder": {"Foo Bar"},
		"terms_accepted": {"on"},
	}
}

func postForm(r http.Handler, path string, vals url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func get(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t)
	if rec := get(r, "/healthz"); rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHomeListsOnlyUpcomingCourses(t *testing.T) {
	r := setupRouter(t)
	seedCourse(t, "Laufender Kurs", 10)

	past := futureDate(-30)
	expired := &models.Course{Name: "Abgelaufener Kurs", StartDate: futureDate(-90), EndDate: past, MaxParticipants: 10}
	if err := db.Conn().Create(expired).Error; err != nil {
		t.Fatal(err)
	}
	// a course without an end date never shows on the public page
	open := &models.Course{Name: "Kurs ohne Ende", StartDate: futureDate(7), MaxParticipants: 10}
	if err := db.Conn().Create(open).Error; err != nil {
		t.Fatal(err)
	}

	rec := get(r, "/")
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Laufender Kurs") {
		t.Error("upcoming course missing from home page")
	}
	if strings.Contains(body, "Abgelaufener Kurs") {
		t.Error("expired course shown on home page")
	}
	if strings.Contains(body, "Kurs ohne Ende") {
		t.Error("course without end date shown on home page")
	}
}

func TestRegisterUnknownCourse(t *testing.T) {
	r := setupRouter(t)
	if rec := get(r, "/register/999"); rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := postForm(r, "/register/999", validRegisterValues()); rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRegisterSubmitConfirmed(t *testing.T) {
	r := setupRouter(t)
	course := seedCourse(t, "Yoga", 5)

	rec := postForm(r, "/register/1", validRegisterValues())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/?ok=registered" {
		t.Errorf("redirect: got %q", loc)
	}

	var reg models.Registration
	if err := db.Conn().First(&reg, "course_id = ?", course.ID).Error; err != nil {
		t.Fatalf("registration not persisted: %v", err)
	}
	if reg.Status != models.StatusConfirmed {
		t.Errorf("status: got %s", reg.Status)
	}
}

func TestRegisterSubmitMissingTerms(t *testing.T) {
	r := setupRouter(t)
	seedCourse(t, "Yoga", 5)

	vals := validRegisterValues()
	vals.Del("terms_accepted")
	rec := postForm(r, "/register/1", vals)
	if rec.Code != 200 {
		t.Fatalf("expected form re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Du musst die Bedingungen akzeptieren.") {
		t.Error("terms error message missing from re-rendered form")
	}

	var count int64
	db.Conn().Model(&models.Registration{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected submission was persisted, count=%d", count)
	}
}

func TestRegisterSubmitWaitlisted(t *testing.T) {
	r := setupRouter(t)
	course := seedCourse(t, "Yoga", 1)

	if rec := postForm(r, "/register/1", validRegisterValues()); rec.Code != http.StatusSeeOther {
		t.Fatalf("first submission: got %d", rec.Code)
	}
	vals := validRegisterValues()
	vals.Set("email", "second@example.com")
	rec := postForm(r, "/register/1", vals)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("second submission: got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?ok=waitlisted" {
		t.Errorf("redirect: got %q", loc)
	}

	var regs []models.Registration
	db.Conn().Where("course_id = ?", course.ID).Order("id").Find(&regs)
	if len(regs) != 2 || regs[0].Status != models.StatusConfirmed || regs[1].Status != models.StatusWaitlist {
		t.Errorf("statuses: got %+v", regs)
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	r := setupRouter(t)
	rec := get(r, "/admin/courses")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/admin/login") {
		t.Errorf("redirect target: got %q", loc)
	}
}

// login posts credentials and returns the session cookie.
func login(t *testing.T, r http.Handler, username, password string) *http.Cookie {
	t.Helper()
	rec := postForm(r, "/admin/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "staff_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestAdminLoginFlow(t *testing.T) {
	r := setupRouter(t)
	if err := services.BootstrapAdmin(db.Conn(), "admin", "s3cret"); err != nil {
		t.Fatal(err)
	}

	// wrong password bounces back to the form
	rec := postForm(r, "/admin/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/login?error=bad_login" {
		t.Fatalf("bad login: code=%d loc=%q", rec.Code, rec.Header().Get("Location"))
	}

	cookie := login(t, r, "admin", "s3cret")
	rec = get(r, "/admin/courses", cookie)
	if rec.Code != 200 {
		t.Fatalf("admin page with session: got %d", rec.Code)
	}

	// logout invalidates the session
	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	if out.Code != http.StatusSeeOther {
		t.Fatalf("logout: got %d", out.Code)
	}
	rec = get(r, "/admin/courses", cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("stale session must redirect, got %d", rec.Code)
	}
}

func TestAdminCreatesInstructor(t *testing.T) {
	r := setupRouter(t)
	if err := services.BootstrapAdmin(db.Conn(), "admin", "s3cret"); err != nil {
		t.Fatal(err)
	}
	adminCookie := login(t, r, "admin", "s3cret")

	rec := postForm(r, "/admin/staff", url.Values{
		"username":   {"kurs1"},
		"password":   {"geheim"},
		"first_name": {"Ina"},
		"last_name":  {"Klein"},
	}, adminCookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/staff?ok=staff_saved" {
		t.Fatalf("create staff: code=%d loc=%q", rec.Code, rec.Header().Get("Location"))
	}

	// the new account can log in and carries the instructor role
	instCookie := login(t, r, "kurs1", "geheim")
	ident, err := services.SessionIdentity(db.Conn(), instCookie.Value)
	if err != nil {
		t.Fatalf("session identity: %v", err)
	}
	if ident.Role != policy.RoleInstructor {
		t.Errorf("role: want instructor, got %+v", ident)
	}

	// instructors cannot provision accounts
	if rec := get(r, "/admin/staff", instCookie); rec.Code != http.StatusForbidden {
		t.Errorf("staff list as instructor: want 403, got %d", rec.Code)
	}
	rec = postForm(r, "/admin/staff", url.Values{
		"username": {"kurs2"}, "password": {"pw"},
	}, instCookie)
	if rec.Code != http.StatusForbidden {
		t.Errorf("create staff as instructor: want 403, got %d", rec.Code)
	}

	// duplicate usernames bounce back with a message
	rec = postForm(r, "/admin/staff", url.Values{
		"username": {"kurs1"}, "password": {"anders"},
	}, adminCookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/staff?error=username_taken" {
		t.Errorf("duplicate username: code=%d loc=%q", rec.Code, rec.Header().Get("Location"))
	}

	// the account shows up in the list page
	rec = get(r, "/admin/staff", adminCookie)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "kurs1") {
		t.Errorf("staff list: code=%d, new account missing", rec.Code)
	}
}

// seedInstructorWorld creates an instructor with one own course plus a
// foreign admin course, each with a registration.
func seedInstructorWorld(t *testing.T) (instructor *models.StaffUser, own, foreign *models.Course) {
	t.Helper()
	gdb := db.Conn()

	hash, err := bcrypt.GenerateFromPassword([]byte("geheim"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	instructor = &models.StaffUser{
		Username: "kursleitung", FirstName: "Ina", LastName: "Klein",
		PasswordHash: string(hash),
	}
	if err := gdb.Create(instructor).Error; err != nil {
		t.Fatal(err)
	}

	own = seedCourse(t, "Eigener Kurs", 10)
	own.InstructorUserID = &instructor.ID
	if err := gdb.Save(own).Error; err != nil {
		t.Fatal(err)
	}
	foreign = seedCourse(t, "Fremder Kurs", 10)

	seedRegistration(t, own.ID, "Test", "Eigenmann")
	seedRegistration(t, foreign.ID, "Test", "Fremdling")
	return instructor, own, foreign
}

func TestInstructorScopedViews(t *testing.T) {
	r := setupRouter(t)
	seedInstructorWorld(t)
	cookie := login(t, r, "kursleitung", "geheim")

	rec := get(r, "/admin/courses", cookie)
	if rec.Code != 200 {
		t.Fatalf("courses: got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Eigener Kurs") {
		t.Error("own course missing from instructor course list")
	}
	if strings.Contains(body, "Fremder Kurs") {
		t.Error("foreign course visible to instructor")
	}

	rec = get(r, "/admin/registrations", cookie)
	if rec.Code != 200 {
		t.Fatalf("registrations: got %d", rec.Code)
	}
	body = rec.Body.String()
	if !strings.Contains(body, "Eigenmann") {
		t.Error("own registration missing from instructor list")
	}
	if strings.Contains(body, "Fremdling") {
		t.Error("foreign registration visible to instructor")
	}
}

func TestInstructorCannotDeleteRegistration(t *testing.T) {
	r := setupRouter(t)
	_, own, _ := seedInstructorWorld(t)
	cookie := login(t, r, "kursleitung", "geheim")

	var reg models.Registration
	if err := db.Conn().First(&reg, "course_id = ?", own.ID).Error; err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/registrations/1/delete", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var count int64
	db.Conn().Model(&models.Registration{}).Where("id = ?", reg.ID).Count(&count)
	if count != 1 {
		t.Error("registration was deleted despite the 403")
	}
}

func seedRegistration(t *testing.T, courseID uint, firstName, lastName string) {
	t.Helper()
	reg := &models.Registration{
		CourseID: courseID, FirstName: firstName, LastName: lastName,
		Email: "t@example.com", IBAN: "DE02120300000000202051",
		AccountHolder: firstName + " " + lastName, TermsAccepted: true,
		Status: models.StatusConfirmed,
	}
	if err := db.Conn().Create(reg).Error; err != nil {
		t.Fatal(err)
	}
}

func TestAttendanceExportFirstSelectedOnly(t *testing.T) {
	r := setupRouter(t)
	if err := services.BootstrapAdmin(db.Conn(), "admin", "s3cret"); err != nil {
		t.Fatal(err)
	}
	cookie := login(t, r, "admin", "s3cret")

	a := seedCourse(t, "Kurs A", 10)
	b := seedCourse(t, "Kurs B", 10)
	seedRegistration(t, a.ID, "Anna", "Alpha")
	seedRegistration(t, b.ID, "Bernd", "Beta")

	// the id param repeats; only the first selected course is exported
	rec := get(r, fmt.Sprintf("/admin/courses/attendance.xlsx?id=%d&id=%d", a.ID, b.ID), cookie)
	if rec.Code != 200 {
		t.Fatalf("export: got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Teilnehmerliste_Kurs A.xlsx") {
		t.Errorf("filename: got %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if title, _ := f.GetCellValue("Teilnehmerliste", "A1"); title != "Teilnehmerliste: Kurs A" {
		t.Errorf("title: got %q", title)
	}
	if name, _ := f.GetCellValue("Teilnehmerliste", "A7"); name != "Anna" {
		t.Errorf("row 7: got %q", name)
	}
	// the second selected course contributes nothing
	if extra, _ := f.GetCellValue("Teilnehmerliste", "A8"); extra != "" {
		t.Errorf("row 8 must be empty, got %q", extra)
	}
}

func TestAttendanceExportScopedToInstructor(t *testing.T) {
	r := setupRouter(t)
	_, own, foreign := seedInstructorWorld(t)
	cookie := login(t, r, "kursleitung", "geheim")

	if rec := get(r, fmt.Sprintf("/admin/courses/attendance.xlsx?id=%d", own.ID), cookie); rec.Code != 200 {
		t.Errorf("own course export: want 200, got %d", rec.Code)
	}
	if rec := get(r, fmt.Sprintf("/admin/courses/attendance.xlsx?id=%d", foreign.ID), cookie); rec.Code != 404 {
		t.Errorf("foreign course export: want 404, got %d", rec.Code)
	}
}
