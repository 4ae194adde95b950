package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kursverein/kursanmeldung/internal/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testCourse() *models.Course {
	return &models.Course{
		Name:      "Rückenfit",
		StartDate: date(2026, 3, 2),
		EndDate:   date(2026, 4, 27),
		StartTime: "18:00",
		EndTime:   "19:00",
		Days:      models.WeekdaySet{models.Monday, models.Wednesday},
		Locations: []models.Location{{Name: "Halle 1"}, {Name: "Halle 2"}},
	}
}

func TestAttendanceWorkbook(t *testing.T) {
	course := testCourse()
	regs := []models.Registration{
		// deliberately out of order; the sheet must sort by last name
		{FirstName: "Baz", LastName: "Qux", Email: "baz@example.com", Status: models.StatusConfirmed},
		{FirstName: "Foo", LastName: "Bar", Email: "foo@example.com", Status: models.StatusConfirmed},
		{FirstName: "Zoe", LastName: "Aaa", Email: "zoe@example.com", Status: models.StatusWaitlist},
	}

	f, err := AttendanceWorkbook(course, regs)
	if err != nil {
		t.Fatalf("AttendanceWorkbook: %v", err)
	}
	sheet := "Teilnehmerliste"

	cell := func(ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatalf("GetCellValue %s: %v", ref, err)
		}
		return v
	}

	if got := cell("A1"); got != "Teilnehmerliste: Rückenfit" {
		t.Errorf("title: got %q", got)
	}

	// metadata block
	if got := cell("A4"); got != "2026-03-02 - 2026-04-27" {
		t.Errorf("date range: got %q", got)
	}
	if got := cell("B4"); got != "18:00" {
		t.Errorf("start time: got %q", got)
	}
	if got := cell("D4"); got != "MO, WE" {
		t.Errorf("weekdays: got %q", got)
	}
	if got := cell("E4"); got != "Halle 1, Halle 2" {
		t.Errorf("locations: got %q", got)
	}

	// header row
	if got := cell("A6"); got != "Vorname" {
		t.Errorf("header: got %q", got)
	}
	if got := cell("E6"); got != "Anwesend" {
		t.Errorf("header: got %q", got)
	}

	// confirmed rows only, last name order: Bar before Qux
	if got := cell("A7") + " " + cell("B7"); got != "Foo Bar" {
		t.Errorf("row 7: got %q", got)
	}
	if got := cell("A8") + " " + cell("B8"); got != "Baz Qux" {
		t.Errorf("row 8: got %q", got)
	}
	if got := cell("D7"); got != "Bestätigt" {
		t.Errorf("status label: got %q", got)
	}
	if got := cell("E7"); got != "☐" {
		t.Errorf("checkbox: got %q", got)
	}

	// the waitlisted participant must not appear anywhere
	if got := cell("A9"); got != "" {
		t.Errorf("row 9 must be empty, got %q", got)
	}
}

func TestAttendanceWorkbookEmptyMetadata(t *testing.T) {
	course := &models.Course{Name: "Offen"}
	f, err := AttendanceWorkbook(course, nil)
	if err != nil {
		t.Fatalf("AttendanceWorkbook: %v", err)
	}
	for _, ref := range []string{"A4", "B4", "C4", "D4", "E4"} {
		v, _ := f.GetCellValue("Teilnehmerliste", ref)
		if v != "-" {
			t.Errorf("%s: want -, got %q", ref, v)
		}
	}
}

func TestWriteRegistrationsCSV(t *testing.T) {
	course := models.Course{
		Name:           "Rückenfit",
		PriceMember:    decimal.RequireFromString("40.00"),
		PriceNonMember: decimal.RequireFromString("60.00"),
		AllowHalf:      true,
	}
	created := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
	regs := []models.Registration{
		{
			Course: course, CreatedAt: created,
			FirstName: "Foo", LastName: "Bar", Email: "foo@example.com",
			TermsAccepted: true, IsMember: true,
			Status: models.StatusConfirmed,
		},
		{
			Course: course, CreatedAt: created,
			FirstName: "Baz", LastName: "Qux", Email: "baz@example.com",
			TermsAccepted: true, HalfCourse: true,
			Status: models.StatusWaitlist,
		},
	}

	var buf bytes.Buffer
	if err := WriteRegistrationsCSV(&buf, regs); err != nil {
		t.Fatalf("WriteRegistrationsCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}

	// header + N rows
	if len(rows) != 3 {
		t.Fatalf("want 3 rows, got %d", len(rows))
	}

	wantHeader := []string{"course", "first_name", "last_name", "email", "status", "terms_accepted", "price", "created"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d]: want %s, got %s", i, col, rows[0][i])
		}
	}

	first := rows[1]
	if first[0] != "Rückenfit" || first[1] != "Foo" || first[2] != "Bar" {
		t.Errorf("first row: got %v", first)
	}
	if first[4] != "CONFIRMED" || first[5] != "true" {
		t.Errorf("status/terms: got %v", first)
	}
	if first[6] != "40" {
		t.Errorf("member price: want 40, got %s", first[6])
	}
	if first[7] != "2026-02-01 10:30:00" {
		t.Errorf("created: got %s", first[7])
	}

	second := rows[2]
	if second[4] != "WAITLIST" {
		t.Errorf("waitlist status code: got %s", second[4])
	}
	// half price honored because the course allows it
	if second[6] != "30" {
		t.Errorf("half price: want 30, got %s", second[6])
	}
}
