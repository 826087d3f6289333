package pg

import (
	"database/sql"
	"fmt"
	"strings"
)

type Config struct {
	User     string `env:"USER"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT"`
	Password string `env:"PASSWORD"`
	Database string `env:"DBNAME"`
	// SSLMode defaults to disable.
	SSLMode string `env:"SSLMODE"`
}

// DSN renders the libpq keyword/value connection string.
func (c Config) DSN() string {
	mode := c.SSLMode
	if mode == "" {
		mode = "disable"
	}
	parts := []string{
		"host=" + c.Host,
		"user=" + c.User,
		"password=" + c.Password,
		"dbname=" + c.Database,
		"port=" + c.Port,
		"sslmode=" + mode,
	}
	return strings.Join(parts, " ")
}

// openSQL opens a plain database/sql handle through lib/pq, used where gorm
// is not wanted (goose migrations).
func openSQL(config Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres %s/%s: %w", config.Host, config.Database, err)
	}
	return db, nil
}
