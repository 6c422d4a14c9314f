package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/noah-isme/shs-registrar-api/pkg/config"
)

// NewSQLite opens the single-file registrar store. WAL lets readers proceed
// while one writer holds the lock; immediate transactions take the write lock
// at BEGIN so contention surfaces before any statement runs.
//
// An empty path opens a named in-memory database with a shared cache, so every
// pooled connection sees the same schema and rows. It lives as long as one
// connection stays open.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

func sqliteDSN(cfg config.DatabaseConfig) string {
	params := fmt.Sprintf("_foreign_keys=on&_txlock=immediate&_busy_timeout=%d", cfg.BusyTimeout.Milliseconds())
	if inMemory(cfg.Path) {
		return "file:" + memoryName + "?mode=memory&cache=shared&" + params
	}
	return "file:" + cfg.Path + "?_journal_mode=WAL&" + params
}

const memoryName = "shs-registrar"

func inMemory(path string) bool {
	return path == "" || path == ":memory:"
}
