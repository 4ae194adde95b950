// Package policy holds the access rules for the back office. There are two
// roles: administrators may do everything, instructors (Kursleitung) only
// read and export the courses assigned to them. The role is resolved once
// per request into an Identity value; handlers apply the row scopes to
// every list query AND re-check the object predicate on loaded rows, so a
// row that slips past filtering still cannot be mutated.
package policy

import (
	"gorm.io/gorm"

	"github.com/kursverein/kursanmeldung/internal/models"
)

type Role int

const (
	RoleAdministrator Role = iota
	RoleInstructor
)

// Identity describes the authenticated staff member for one request.
type Identity struct {
	UserID uint
	Name   string
	Role   Role
}

// FromStaff maps a staff account onto its role.
func FromStaff(u *models.StaffUser) Identity {
	role := RoleInstructor
	if u.IsAdmin {
		role = RoleAdministrator
	}
	return Identity{UserID: u.ID, Name: u.FullName(), Role: role}
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdministrator }

// ScopeCourses limits a course query to the rows the identity may see.
func ScopeCourses(id Identity) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if id.IsAdmin() {
			return tx
		}
		return tx.Where("courses.instructor_user_id = ?", id.UserID)
	}
}

// ScopeRegistrations limits a registration query to rows whose course is
// assigned to the identity.
func ScopeRegistrations(id Identity) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if id.IsAdmin() {
			return tx
		}
		return tx.Joins("JOIN courses ON courses.id = registrations.course_id").
			Where("courses.instructor_user_id = ?", id.UserID)
	}
}

// CanViewCourses: instructors get list access; filtering happens per row.
func CanViewCourses(Identity) bool { return true }

// CanViewRegistrations: instructors may list and export, nothing more.
func CanViewRegistrations(Identity) bool { return true }

// CanCreateCourse: administrators only.
func CanCreateCourse(id Identity) bool { return id.IsAdmin() }

// CanEditCourse: administrators always, instructors only their own course.
func CanEditCourse(id Identity, c *models.Course) bool {
	if id.IsAdmin() {
		return true
	}
	return c.InstructorUserID != nil && *c.InstructorUserID == id.UserID
}

// CanDeleteCourse: administrators only.
func CanDeleteCourse(id Identity) bool { return id.IsAdmin() }

// CanAddRegistration: nobody. Registrations only come in through the
// public form.
func CanAddRegistration(Identity) bool { return false }

// CanModifyRegistration: instructors never modify registrations.
func CanModifyRegistration(id Identity) bool { return id.IsAdmin() }

// CanDeleteRegistration: administrators only.
func CanDeleteRegistration(id Identity) bool { return id.IsAdmin() }

// CanManageLocations: venue maintenance is an administrator task.
func CanManageLocations(id Identity) bool { return id.IsAdmin() }

// CanManageStaff: account provisioning is an administrator task.
func CanManageStaff(id Identity) bool { return id.IsAdmin() }
