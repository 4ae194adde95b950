package services

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/kursverein/kursanmeldung/internal/models"
)

var ErrCourseNotFound = errors.New("course not found")

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegistrationForm carries one public registration submission.
type RegistrationForm struct {
	FirstName     string `validate:"required,max=100"`
	LastName      string `validate:"required,max=100"`
	Email         string `validate:"required,email,max=254"`
	IBAN          string `validate:"required,max=34"`
	BIC           string `validate:"omitempty,max=11"`
	AccountHolder string `validate:"required,max=200"`
	IsMember      bool
	HalfCourse    bool
	TermsAccepted bool `validate:"eq=true"`
}

var fieldMessages = map[string]string{
	"FirstName":     "Bitte Vornamen angeben.",
	"LastName":      "Bitte Nachnamen angeben.",
	"Email":         "Bitte eine gültige E-Mail-Adresse angeben.",
	"IBAN":          "Bitte IBAN angeben.",
	"BIC":           "BIC ist zu lang.",
	"AccountHolder": "Bitte Kontoinhaber angeben.",
	"TermsAccepted": "Du musst die Bedingungen akzeptieren.",
}

// Validate returns a field→message map; empty means the form is good.
func (f *RegistrationForm) Validate() map[string]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["Form"] = "Ungültige Eingabe."
		return out
	}
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()]; ok {
			out[fe.Field()] = msg
		} else {
			out[fe.Field()] = "Ungültige Eingabe."
		}
	}
	return out
}

// CurrentRegistrations counts the confirmed registrations for a course.
// Waitlisted rows do not count against capacity.
func CurrentRegistrations(tx *gorm.DB, courseID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.Registration{}).
		Where("course_id = ? AND status = ?", courseID, models.StatusConfirmed).
		Count(&n).Error
	return n, err
}

// IsFull reports whether the course has reached its participant limit.
func IsFull(tx *gorm.DB, c *models.Course) (bool, error) {
	n, err := CurrentRegistrations(tx, c.ID)
	if err != nil {
		return false, err
	}
	return n >= int64(c.MaxParticipants), nil
}

// Register persists a validated form for the given course. The capacity
// check and the insert share one transaction, so a submission arriving
// while the course fills up lands on the waitlist instead of briefly
// over-filling the course. The status is decided here once and never
// re-evaluated later: a confirmed cancellation does not promote anyone.
func Register(gdb *gorm.DB, courseID uint, f *RegistrationForm) (*models.Registration, error) {
	var reg *models.Registration
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.First(&course, courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}

		status := models.StatusConfirmed
		full, err := IsFull(tx, &course)
		if err != nil {
			return err
		}
		if full {
			status = models.StatusWaitlist
		}

		reg = &models.Registration{
			CourseID:      course.ID,
			FirstName:     f.FirstName,
			LastName:      f.LastName,
			Email:         f.Email,
			IBAN:          f.IBAN,
			BIC:           f.BIC,
			AccountHolder: f.AccountHolder,
			TermsAccepted: f.TermsAccepted,
			IsMember:      f.IsMember,
			HalfCourse:    f.HalfCourse,
			Status:        status,
		}
		return tx.Create(reg).Error
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}
