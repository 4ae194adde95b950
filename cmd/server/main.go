package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kursverein/kursanmeldung/internal/config"
	"github.com/kursverein/kursanmeldung/internal/db"
	"github.com/kursverein/kursanmeldung/internal/services"
	"github.com/kursverein/kursanmeldung/internal/web"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()

	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	if err := services.BootstrapAdmin(db.Conn(), cfg.AdminUser, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap")
	}

	r := web.Router(cfg)

	log.Info().Str("addr", cfg.Addr).Msg("Kursanmeldung listening")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
