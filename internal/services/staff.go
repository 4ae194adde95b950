package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kursverein/kursanmeldung/internal/models"
	"github.com/kursverein/kursanmeldung/internal/policy"
)

var (
	ErrBadCredentials = errors.New("unknown username or wrong password")
	ErrSessionExpired = errors.New("session expired or unknown")
	ErrUsernameTaken  = errors.New("username already taken")
)

// SessionTTL is how long a staff login stays valid.
const SessionTTL = 24 * time.Hour

// Authenticate checks a staff login against the stored bcrypt hash.
func Authenticate(gdb *gorm.DB, username, password string) (*models.StaffUser, error) {
	var user models.StaffUser
	if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &user, nil
}

// CreateSession issues a fresh random session token for a staff user.
func CreateSession(gdb *gorm.DB, userID uint) (*models.StaffSession, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	sess := &models.StaffSession{
		Token:       hex.EncodeToString(buf),
		StaffUserID: userID,
		ExpiresAt:   time.Now().Add(SessionTTL),
	}
	if err := gdb.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// SessionIdentity resolves a cookie token to the caller's identity. The
// role is evaluated here, once, and travels with the request from then on.
func SessionIdentity(gdb *gorm.DB, token string) (policy.Identity, error) {
	var sess models.StaffSession
	err := gdb.Preload("StaffUser").Where("token = ?", token).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.Identity{}, ErrSessionExpired
		}
		return policy.Identity{}, err
	}
	if time.Now().After(sess.ExpiresAt) {
		gdb.Delete(&sess)
		return policy.Identity{}, ErrSessionExpired
	}
	return policy.FromStaff(&sess.StaffUser), nil
}

// DeleteSession logs a token out. Unknown tokens are not an error.
func DeleteSession(gdb *gorm.DB, token string) error {
	return gdb.Where("token = ?", token).Delete(&models.StaffSession{}).Error
}

// CreateStaffUser provisions a back-office account. Accounts without the
// admin flag are instructors (Kursleitung) and only see their own courses.
func CreateStaffUser(gdb *gorm.DB, username, password, firstName, lastName string, isAdmin bool) (*models.StaffUser, error) {
	var n int64
	if err := gdb.Model(&models.StaffUser{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.StaffUser{
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		IsAdmin:      isAdmin,
	}
	if err := gdb.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BootstrapAdmin creates the initial administrator account when the staff
// table is empty, so a fresh install can be logged into at all. Existing
// installs are left alone.
func BootstrapAdmin(gdb *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	var n int64
	if err := gdb.Model(&models.StaffUser{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.StaffUser{
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := gdb.Create(&user).Error; err != nil {
		return err
	}
	log.Info().Str("username", username).Msg("bootstrapped initial admin account")
	return nil
}
