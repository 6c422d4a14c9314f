package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

func TestSectionRepositoryListAppliesLifecycleFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "strand", "grade_level", "capacity", "is_active", "created_at", "updated_at"}).
		AddRow("sec-1", "STEM-11A", "STEM", 11, 40, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM section WHERE is_active = TRUE AND strand = $1 ORDER BY grade_level ASC, strand ASC, name ASC")).
		WithArgs("STEM").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM section ORDER BY")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sections, err := repo.List(context.Background(), models.SectionFilter{Strand: "STEM", Active: models.OnlyActive})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.NotNil(t, sections[0].Capacity)
	assert.Equal(t, 40, *sections[0].Capacity)

	_, err = repo.List(context.Background(), models.SectionFilter{Active: models.AnyActivity})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindByIDInactiveIsNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM section WHERE id = $1 AND is_active = TRUE")).
		WithArgs("sec-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "sec-9", models.OnlyActive)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE section SET is_active = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(false, sqlmock.AnyArg(), "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE section SET is_active")).
		WithArgs(true, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetActive(context.Background(), "sec-1", false))
	assert.ErrorIs(t, repo.SetActive(context.Background(), "missing", true), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListKeepsCoreSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "grade_level", "strand", "is_active", "created_at", "updated_at"}).
		AddRow("sub-1", "Oral Communication", 11, nil, true, time.Now(), time.Now()).
		AddRow("sub-2", "Pre-Calculus", 11, "STEM", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM subject WHERE is_active = TRUE AND (strand = $1 OR strand IS NULL) AND grade_level = $2")).
		WithArgs("STEM", 11).
		WillReturnRows(rows)

	subjects, err := repo.List(context.Background(), models.SubjectFilter{Strand: "STEM", GradeLevel: 11})
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.True(t, subjects[0].IsCore())
	assert.False(t, subjects[1].IsCore())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("INSERT INTO subject").
		WithArgs(sqlmock.AnyArg(), "General Mathematics", 11, nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	subject := &models.Subject{Name: "General Mathematics", GradeLevel: 11, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), subject))
	assert.NotEmpty(t, subject.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
