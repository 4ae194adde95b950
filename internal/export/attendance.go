// Package export renders the two administrative downloads: the attendance
// spreadsheet for a course and the CSV dump of registrations. Both are
// pure generators over already-loaded rows; handlers do the querying and
// the streaming.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kursverein/kursanmeldung/internal/models"
)

const attendanceSheet = "Teilnehmerliste"

// checkbox glyph for the manual "Anwesend" column
const checkbox = "☐"

// AttendanceWorkbook builds the printable attendance list for one course.
// Only confirmed registrations appear, ordered by last then first name;
// waitlisted participants are not on the sheet.
func AttendanceWorkbook(course *models.Course, regs []models.Registration) (*excelize.File, error) {
	confirmed := make([]models.Registration, 0, len(regs))
	for _, r := range regs {
		if r.Status == models.StatusConfirmed {
			confirmed = append(confirmed, r)
		}
	}
	sort.Slice(confirmed, func(i, j int) bool {
		if confirmed[i].LastName != confirmed[j].LastName {
			return confirmed[i].LastName < confirmed[j].LastName
		}
		return confirmed[i].FirstName < confirmed[j].FirstName
	})

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", attendanceSheet)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C00000"}, Pattern: 1},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 14},
	})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"C00000"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return nil, err
	}
	centerStyle, err := f.NewStyle(&excelize.Style{
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	f.SetCellValue(attendanceSheet, "A1", "Teilnehmerliste: "+course.Name)
	f.MergeCell(attendanceSheet, "A1", "E1")
	f.SetCellStyle(attendanceSheet, "A1", "E1", titleStyle)

	// course metadata block
	meta := [][2]string{
		{"Datum", dateRange(course)},
		{"Beginn", dash(course.StartTime)},
		{"Ende", dash(course.EndTime)},
		{"Wochentage", dash(course.Days.String())},
		{"Ort", locationNames(course)},
	}
	for i, m := range meta {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(attendanceSheet, col+"3", m[0])
		f.SetCellValue(attendanceSheet, col+"4", m[1])
	}

	headers := []string{"Vorname", "Nachname", "E-Mail", "Status", "Anwesend"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(attendanceSheet, cell, h)
	}
	f.SetCellStyle(attendanceSheet, "A6", "E6", headerStyle)

	row := 6
	for _, reg := range confirmed {
		row++
		f.SetCellValue(attendanceSheet, fmt.Sprintf("A%d", row), reg.FirstName)
		f.SetCellValue(attendanceSheet, fmt.Sprintf("B%d", row), reg.LastName)
		f.SetCellValue(attendanceSheet, fmt.Sprintf("C%d", row), reg.Email)
		f.SetCellValue(attendanceSheet, fmt.Sprintf("D%d", row), reg.StatusLabel())
		f.SetCellValue(attendanceSheet, fmt.Sprintf("E%d", row), checkbox)
		f.SetCellStyle(attendanceSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), cellStyle)
		f.SetCellStyle(attendanceSheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), centerStyle)
	}

	f.SetColWidth(attendanceSheet, "A", "C", 15)
	f.SetColWidth(attendanceSheet, "D", "E", 20)
	return f, nil
}

// AttendanceFilename is the download name for a course's attendance list.
func AttendanceFilename(course *models.Course) string {
	name := strings.ReplaceAll(course.Name, `"`, "")
	return fmt.Sprintf("Teilnehmerliste_%s.xlsx", name)
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Style: 1},
		{Type: "right", Style: 1},
		{Type: "top", Style: 1},
		{Type: "bottom", Style: 1},
	}
}

func dateRange(c *models.Course) string {
	if c.StartDate == nil && c.EndDate == nil {
		return "-"
	}
	start, end := "-", "-"
	if c.StartDate != nil {
		start = c.StartDate.Format("2006-01-02")
	}
	if c.EndDate != nil {
		end = c.EndDate.Format("2006-01-02")
	}
	return start + " - " + end
}

func locationNames(c *models.Course) string {
	if len(c.Locations) == 0 {
		return "-"
	}
	names := make([]string, len(c.Locations))
	for i, l := range c.Locations {
		names[i] = l.Name
	}
	return strings.Join(names, ", ")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
