package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/shs-registrar-api/pkg/config"
)

// NewPostgres opens the shared registrar store. Row locks taken by the
// enrollment and transition paths give up after the configured lock timeout,
// which the driver reports as SQLSTATE 55P03 and Classify treats as
// contention.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", Classify(err))
	}

	return db, nil
}

func postgresDSN(cfg config.DatabaseConfig) string {
	parts := []string{
		kv("host", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		kv("user", cfg.User),
		kv("password", cfg.Password),
		kv("dbname", cfg.Name),
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts = append(parts, kv("sslmode", sslMode))
	if cfg.AppName != "" {
		parts = append(parts, kv("application_name", cfg.AppName))
	}
	if cfg.LockTimeout > 0 {
		parts = append(parts, kv("options", fmt.Sprintf("-c lock_timeout=%d", cfg.LockTimeout.Milliseconds())))
	}
	return strings.Join(parts, " ")
}

// kv quotes values the way libpq expects in a keyword/value connection string.
func kv(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return key + "='" + escaped + "'"
}
