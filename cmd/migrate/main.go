package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helpdesk-dispatch/backend/internal/config"
	"github.com/helpdesk-dispatch/backend/internal/db"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|redo|reset|to")
	version := flag.String("version", "", "target version for -cmd=to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.With().Str("service", "migrate").Str("cmd", *cmd).Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	switch *cmd {
	case "to":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for -cmd=to")
			os.Exit(1)
		}
		err = store.MigrateTo(ctx, *version)
	case "up", "down", "status", "version", "redo", "reset":
		err = store.Migrate(ctx, *cmd)
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
	if err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	logger.Info().Msg("migration done")
}
