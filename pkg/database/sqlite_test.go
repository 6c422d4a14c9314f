package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/pkg/config"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"file:./registrar.db?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate&_busy_timeout=5000",
		sqliteDSN(config.DatabaseConfig{Path: "./registrar.db", BusyTimeout: 5 * time.Second}),
	)
	assert.Equal(t,
		"file:shs-registrar?mode=memory&cache=shared&_foreign_keys=on&_txlock=immediate&_busy_timeout=0",
		sqliteDSN(config.DatabaseConfig{}),
	)
	assert.Equal(t, sqliteDSN(config.DatabaseConfig{}), sqliteDSN(config.DatabaseConfig{Path: ":memory:"}))
}

func TestInMemorySQLiteSharesSchemaAcrossConnections(t *testing.T) {
	db, err := NewSQLite(config.DatabaseConfig{MaxOpenConns: 4, BusyTimeout: time.Second})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	ctx := context.Background()
	first, err := db.Connx(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.Connx(ctx)
	require.NoError(t, err)
	defer second.Close()

	_, err = first.ExecContext(ctx, `INSERT INTO school_year (id, year, start_date, end_date, is_current, created_at, updated_at)
		VALUES ('sy-mem', '2030-2031', $1, $1, FALSE, $1, $1)`, time.Now().UTC())
	require.NoError(t, err)

	var count int
	require.NoError(t, second.GetContext(ctx, &count, "SELECT COUNT(*) FROM school_year WHERE id = 'sy-mem'"))
	assert.Equal(t, 1, count)
}
