package db

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kursverein/kursanmeldung/internal/models"
)

var conn *gorm.DB

// Init opens (or creates) the SQLite database at path and migrates the
// schema. WAL mode keeps concurrent reads cheap; foreign keys must be on
// for the registration cascade and the SET NULL on instructor deletion.
func Init(path string) error {
	var err error
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	conn, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.AutoMigrate(
		&models.Location{},
		&models.StaffUser{},
		&models.StaffSession{},
		&models.Course{},
		&models.Registration{},
	); err != nil {
		return err
	}

	// Composite index that GORM doesn't auto-create from struct tags;
	// the capacity check counts confirmed rows per course constantly.
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_reg_course_status ON registrations(course_id, status)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_session_expiry    ON staff_sessions(expires_at)")

	log.Info().Str("path", path).Msg("database ready (sqlite)")
	return nil
}

func Conn() *gorm.DB {
	return conn
}
