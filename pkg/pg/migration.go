package pg

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir.
func Migrate(cfg Config, dir string) error {
	return RunMigrations(context.Background(), cfg, dir, "up")
}

// RunMigrations runs a goose command (up, down, status, redo, version...)
// against the database described by cfg.
func RunMigrations(ctx context.Context, cfg Config, dir, command string, args ...string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	db, err := openSQL(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	if version, err := goose.GetDBVersionContext(ctx, db); err == nil {
		logger.Info("migrations done", "command", command, "dir", dir, "version", version)
	}
	return nil
}
