package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Location is a venue a course can take place at.
type Location struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"size:100;not null"`
}

// StaffUser is a back-office account. Non-admin staff are instructors
// (Kursleitung) and only ever see the courses assigned to them.
type StaffUser struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:150;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:150"`
	LastName     string `gorm:"size:150"`
	IsAdmin      bool
}

func (u StaffUser) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// StaffSession is a logged-in admin/instructor browser session.
type StaffSession struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Token       string    `gorm:"uniqueIndex;size:64;not null"`
	StaffUserID uint      `gorm:"index;not null"`
	StaffUser   StaffUser `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt   time.Time
}

// ErrEndBeforeStart is returned by Course.Validate when the date range is
// inverted. It maps to a field error on the end date; nothing is persisted.
var ErrEndBeforeStart = errors.New("end date precedes start date")

// Course is one offered class series.
type Course struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string `gorm:"size:200;not null"`
	Description string

	Locations []Location `gorm:"many2many:course_locations;constraint:OnDelete:CASCADE"`

	StartDate *time.Time
	EndDate   *time.Time
	StartTime string     `gorm:"size:5"` // "15:04"
	EndTime   string     `gorm:"size:5"`
	Days      WeekdaySet `gorm:"type:text"`

	MaxParticipants int             `gorm:"not null"`
	PriceMember     decimal.Decimal `gorm:"type:decimal(6,2)"`
	PriceNonMember  decimal.Decimal `gorm:"type:decimal(6,2)"`
	AllowHalf       bool

	// Instructor is the legacy free-text label; InstructorUser is the staff
	// account that owns the course for permission purposes.
	Instructor       string `gorm:"size:200"`
	InstructorUserID *uint
	InstructorUser   *StaffUser `gorm:"constraint:OnDelete:SET NULL"`

	Registrations []Registration `gorm:"constraint:OnDelete:CASCADE"`
}

// Validate checks domain consistency before persisting.
func (c Course) Validate() error {
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// SessionCount walks every calendar day from StartDate through EndDate
// (inclusive) and counts the ones whose weekday the course runs on.
// Holidays and cancellations are not modeled. Returns 0 when either date
// is missing or no weekdays are selected.
func (c Course) SessionCount() int {
	if c.StartDate == nil || c.EndDate == nil || len(c.Days) == 0 {
		return 0
	}
	count := 0
	for d := *c.StartDate; !d.After(*c.EndDate); d = d.AddDate(0, 0, 1) {
		if c.Days.Contains(d.Weekday()) {
			count++
		}
	}
	return count
}

// Registration status codes.
const (
	StatusConfirmed = "CONFIRMED"
	StatusWaitlist  = "WAITLIST"
)

var statusLabels = map[string]string{
	StatusConfirmed: "Bestätigt",
	StatusWaitlist:  "Warteliste",
}

// StatusLabel returns the human-readable status, or the raw code if unknown.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// Registration is one participant's signup for a course. Rows are created
// by the public registration flow only; CreatedAt is set once and never
// touched again (no UpdatedAt on purpose).
type Registration struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	CourseID uint   `gorm:"not null;index"`
	Course   Course `gorm:"constraint:OnDelete:CASCADE"`

	FirstName     string `gorm:"size:100;not null"`
	LastName      string `gorm:"size:100;not null"`
	Email         string `gorm:"size:254;not null"`
	IBAN          string `gorm:"column:iban;size:34;not null"`
	BIC           string `gorm:"column:bic;size:11"`
	AccountHolder string `gorm:"size:200;not null"`

	TermsAccepted bool
	IsMember      bool
	HalfCourse    bool

	Status string `gorm:"size:10;not null;default:CONFIRMED"`
}

// Price computes the fee for this registration. Requires Course to be
// loaded. The half-course discount only applies when the course permits
// it; an unhonored half request silently falls back to the full price.
func (r Registration) Price() decimal.Decimal {
	base := r.Course.PriceNonMember
	if r.IsMember {
		base = r.Course.PriceMember
	}
	if r.HalfCourse && r.Course.AllowHalf {
		return base.Div(decimal.NewFromInt(2))
	}
	return base
}

// TotalPrice equals Price: the fee is a flat amount per course, not a
// per-session rate, so no multiplication by SessionCount happens here.
func (r Registration) TotalPrice() decimal.Decimal {
	return r.Price()
}

// StatusLabel is the human-readable form of the status code.
func (r Registration) StatusLabel() string {
	return StatusLabel(r.Status)
}
