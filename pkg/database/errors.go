package database

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

// PostgreSQL SQLSTATE codes the store treats specially.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// Classify maps driver failures onto the typed store errors. Lock contention
// becomes ErrContention and unique violations become ErrDuplicateKey; anything
// else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, appErrors.ErrContention) || errors.Is(err, appErrors.ErrDuplicateKey) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return contention(err)
		case pgUniqueViolation:
			return duplicateKey(err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return contention(err)
		case sqlite3.ErrConstraint:
			if liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				return duplicateKey(err)
			}
		}
	}
	return err
}

// IsContention reports whether err is a retryable store busy failure.
func IsContention(err error) bool {
	return errors.Is(Classify(err), appErrors.ErrContention)
}

func contention(err error) error {
	return appErrors.Wrap(err, appErrors.ErrContention.Code, appErrors.ErrContention.Status, appErrors.ErrContention.Message)
}

func duplicateKey(err error) error {
	return appErrors.Wrap(err, appErrors.ErrDuplicateKey.Code, appErrors.ErrDuplicateKey.Status, appErrors.ErrDuplicateKey.Message)
}
