package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

func TestSchoolYearRepositorySetCurrentClearsPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_year SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "sy-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_year SET is_current = TRUE, updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "sy-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.SetCurrent(context.Background(), tx, "sy-2"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositorySetCurrentMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectExec("UPDATE school_year SET is_current = FALSE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE school_year SET is_current = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetCurrent(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryFindCurrent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	start := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "year", "start_date", "end_date", "is_current", "created_at", "updated_at"}).
		AddRow("sy-1", "2024-2025", start, start.AddDate(1, 0, 0), true, start, start)
	mock.ExpectQuery(regexp.QuoteMeta("FROM school_year WHERE is_current = TRUE LIMIT 1")).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM school_year WHERE is_current = TRUE LIMIT 1")).WillReturnError(sql.ErrNoRows)

	year, err := repo.FindCurrent(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", year.Year)

	_, err = repo.FindCurrent(context.Background(), nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectExec("INSERT INTO school_year").
		WithArgs(sqlmock.AnyArg(), "2025-2026", sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.SchoolYear{Year: "2025-2026", StartDate: time.Now(), EndDate: time.Now().AddDate(1, 0, 0)}
	require.NoError(t, repo.Create(context.Background(), nil, year))
	assert.NotEmpty(t, year.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositorySetCurrentLocksCurrentRowOnPostgres(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	repo := NewSchoolYearRepository(sqlx.NewDb(raw, "postgres"))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM school_year WHERE is_current = TRUE FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sy-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_year SET is_current = FALSE")).
		WithArgs(sqlmock.AnyArg(), "sy-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_year SET is_current = TRUE")).
		WithArgs(sqlmock.AnyArg(), "sy-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.SetCurrent(context.Background(), tx, "sy-2"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositorySetCurrentRaceIsContention(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectExec("UPDATE school_year SET is_current = FALSE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE school_year SET is_current = TRUE").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_school_year_current"})

	err := repo.SetCurrent(context.Background(), nil, "sy-3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrContention))
	assert.True(t, appErrors.IsRetryable(err))
	assert.False(t, errors.Is(err, appErrors.ErrDuplicateKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}
