package repository

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

// executor picks the caller's transaction when one is supplied.
func executor(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

// activeCondition renders the lifecycle predicate for column. An empty string
// means no restriction.
func activeCondition(column string, filter models.ActiveFilter) string {
	switch filter {
	case models.OnlyActive:
		return column + " = TRUE"
	case models.OnlyInactive:
		return column + " = FALSE"
	default:
		return ""
	}
}

// rowLock returns the row locking clause supported by the driver. SQLite
// serialises writers at BEGIN IMMEDIATE so it needs none.
func rowLock(db *sqlx.DB) string {
	if db != nil && strings.HasPrefix(db.DriverName(), "postgres") {
		return " FOR UPDATE"
	}
	return ""
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}
