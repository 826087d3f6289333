package main

import (
	"context"
	"os"
	"strings"

	"github.com/nimasrn/campaign-mailer/internal/config"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

// usage: cli [migrate] [up|down|status|redo|version] --dir=./migrations --env=.env
func main() {
	defer logger.Sync()

	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	command, args := migrationCommand(os.Args[1:])
	dir := getMigrationPath()
	if dir == "" {
		os.Exit(1)
	}

	if err = pg.RunMigrations(context.Background(), pgConf, dir, command, args...); err != nil {
		logger.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
}

// migrationCommand drops flags and the optional "migrate" verb; "up" is the
// default.
func migrationCommand(argv []string) (string, []string) {
	var rest []string
	for _, a := range argv {
		if strings.HasPrefix(a, "--") {
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) > 0 && rest[0] == "migrate" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "up", nil
	}
	return rest[0], rest[1:]
}

func getEnvPath() string {
	if p, ok := flagValue("--env="); ok {
		if _, err := os.Stat(p); err != nil {
			logger.Error("failed to open the passed env file", "path", p, "error", err)
			return ""
		}
		return p
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	p, ok := flagValue("--dir=")
	if !ok {
		p = "./migrations"
	}
	if _, err := os.Stat(p); err != nil {
		logger.Error("failed to open the migrations dir", "path", p, "error", err)
		return ""
	}
	return p
}

func flagValue(prefix string) (string, bool) {
	for _, v := range os.Args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix), true
		}
	}
	return "", false
}
