package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/pkg/config"
)

// Open connects to the configured store and bootstraps the schema when asked to.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = NewPostgres(cfg)
	case config.DriverSQLite, "":
		db, err = NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// IsolationFor returns the isolation level requested for engine transactions.
// SQLite only offers serialized writers, so it keeps the driver default.
func IsolationFor(driver string) sql.IsolationLevel {
	if driver == config.DriverPostgres {
		return sql.LevelReadCommitted
	}
	return sql.LevelDefault
}
