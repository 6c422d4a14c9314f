package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/shs-registrar-api/pkg/database"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

// txRunner executes a unit of work inside a retried transaction.
type txRunner interface {
	Run(ctx context.Context, operation string, fn database.TxFunc) error
}

// wrapStore converts a repository failure into a typed error. Errors that are
// already typed pass through, and classified store failures keep their kind
// so the coordinator can still retry contention.
func wrapStore(err error, message string) error {
	if err == nil {
		return nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	classified := database.Classify(err)
	if errors.Is(classified, appErrors.ErrContention) || errors.Is(classified, appErrors.ErrDuplicateKey) {
		return classified
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps sql.ErrNoRows to a not found error naming the entity.
func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return wrapStore(err, "failed to load "+entity)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
