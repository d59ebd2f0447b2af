package main

import (
	"flag"
	"os"

	"leave-service/internal/config"
	"leave-service/internal/db"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	dsn := flag.String("dsn", "", "postgres URL (defaults to DATABASE_URL env or the database section of the config)")
	flag.Parse()

	_ = godotenv.Load()

	action := db.ActionUp
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	target := *dsn
	if target == "" {
		target = os.Getenv("DATABASE_URL")
	}
	if target == "" {
		cfg, err := config.LoadDatabase()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		target = cfg.DSN()
	}

	if err := db.RunMigration(action, target); err != nil {
		log.Fatal().Err(err).Str("action", action).Msg("migration failed")
	}

	log.Info().Str("action", action).Msg("migration completed")
}
