package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/config"
	"github.com/Simplici0/printdesk/internal/db"
	"github.com/Simplici0/printdesk/internal/logging"
	"github.com/Simplici0/printdesk/internal/migrations"
	"github.com/Simplici0/printdesk/internal/repository"
	"github.com/Simplici0/printdesk/internal/seed"
	"github.com/Simplici0/printdesk/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		envFile     string
		migrateOnly bool
		seedUser    string
	)

	flagSet := pflag.NewFlagSet("printdesk", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	flagSet.BoolVar(&migrateOnly, "migrate-only", false, "apply database migrations and exit")
	flagSet.StringVar(&seedUser, "seed-only", "", "write demo data for the user with this e-mail and exit")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	cfg.Warn(logger)

	switch {
	case migrateOnly:
		return runMigrations(cfg, logger)
	case seedUser != "":
		return runSeed(cfg, seedUser, logger)
	}

	newApp(cfg, logger).Run()
	return nil
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	version, err := migrations.Version(ctx, database)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("migrations applied", zap.Int64("version", version))
	return nil
}

func runSeed(cfg config.Config, email string, logger *zap.Logger) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	st := store.New(statePersistence(database, cfg), store.WithLogger(logger))
	userID := ""
	for _, u := range st.GetState().Users {
		if u.Email == store.NormalizeEmail(email) {
			userID = u.ID
			break
		}
	}
	if userID == "" {
		return fmt.Errorf("seed: %w: %s", store.ErrUserNotFound, email)
	}

	repo := repository.New(database, repository.FixedOwner(userID), logger)
	stats, err := seed.Run(ctx, repo)
	if err != nil {
		return err
	}
	logger.Info("seed finished", zap.Int("inserts", stats.Inserts), zap.Int("skipped", stats.Skipped))
	return nil
}
