package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is everything the server reads from the environment.
type Config struct {
	Addr         string // listen address
	DatabasePath string // sqlite file
	BaseURL      string // public base URL, used in flyer QR codes

	// initial admin account, only used when the staff table is empty
	AdminUser     string
	AdminPassword string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Msg(".env not found, reading from system environment")
	}
	return Config{
		Addr:          getEnv("ADDR", ":8080"),
		DatabasePath:  getEnv("DATABASE_PATH", "kursanmeldung.db"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		AdminUser:     getEnv("ADMIN_USER", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
