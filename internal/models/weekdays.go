package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Weekday is the two-letter code a course stores for each recurring day.
type Weekday string

const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
	Sunday    Weekday = "SU"
)

// AllWeekdays in display order (week starts on Monday).
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayTime = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

var weekdayLabels = map[Weekday]string{
	Monday:    "Montag",
	Tuesday:   "Dienstag",
	Wednesday: "Mittwoch",
	Thursday:  "Donnerstag",
	Friday:    "Freitag",
	Saturday:  "Samstag",
	Sunday:    "Sonntag",
}

// Label returns the German display name, or the raw code if unknown.
func (d Weekday) Label() string {
	if l, ok := weekdayLabels[d]; ok {
		return l
	}
	return string(d)
}

// Valid reports whether d is one of the seven known codes.
func (d Weekday) Valid() bool {
	_, ok := weekdayTime[d]
	return ok
}

// WeekdaySet is the set of weekdays a course runs on. It is persisted as a
// comma-joined string ("MO,WE,FR") like the legacy data it was imported from.
type WeekdaySet []Weekday

func (s WeekdaySet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = string(d)
	}
	return strings.Join(parts, ","), nil
}

func (s *WeekdaySet) Scan(v any) error {
	var raw string
	switch t := v.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return fmt.Errorf("weekday set: unsupported column type %T", v)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*s = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(WeekdaySet, 0, len(parts))
	for _, p := range parts {
		out = append(out, Weekday(strings.TrimSpace(p)))
	}
	*s = out
	return nil
}

// GormDataType keeps the column a plain text field across dialects.
func (WeekdaySet) GormDataType() string { return "text" }

// Contains reports whether the set covers the given calendar weekday.
func (s WeekdaySet) Contains(wd time.Weekday) bool {
	for _, d := range s {
		if t, ok := weekdayTime[d]; ok && t == wd {
			return true
		}
	}
	return false
}

// String joins the codes for display, e.g. "MO, WE".
func (s WeekdaySet) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}

// Labels joins the German day names for display.
func (s WeekdaySet) Labels() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.Label()
	}
	return strings.Join(parts, ", ")
}
