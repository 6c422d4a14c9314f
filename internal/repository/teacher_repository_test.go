package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

func TestTeacherRepositoryListFiltersRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "active", "created_at", "updated_at"}).
		AddRow("t1", "maria@school.ph", "Maria Santos", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 AND (LOWER(full_name) LIKE $2 OR LOWER(email) LIKE $2) ORDER BY full_name ASC")).
		WithArgs(models.RoleTeacher, "%maria%").
		WillReturnRows(rows)

	teachers, err := repo.List(context.Background(), "Maria")
	require.NoError(t, err)
	assert.Len(t, teachers, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 AND role = $2")).
		WithArgs("registrar-1", models.RoleTeacher).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "registrar-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "maria@school.ph", "Maria Santos", models.RoleTeacher, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{Email: "maria@school.ph", FullName: "Maria Santos", Active: true}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NotEmpty(t, teacher.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryLockByIDOnPostgres(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	repo := NewTeacherRepository(sqlx.NewDb(raw, "postgres"))

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "active", "created_at", "updated_at"}).
		AddRow("t1", "maria@school.ph", "Maria Santos", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 AND role = $2 FOR UPDATE")).
		WithArgs("t1", models.RoleTeacher).
		WillReturnRows(rows)
	mock.ExpectCommit()

	tx, err := repo.db.Beginx()
	require.NoError(t, err)
	teacher, err := repo.LockByID(context.Background(), tx, "t1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.True(t, teacher.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "", NewTeacherRepository(sqlx.NewDb(raw, "sqlite3")).lock)
}
