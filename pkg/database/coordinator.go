package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

// Transaction outcomes reported to the Observer.
const (
	OutcomeCommitted = "committed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
	OutcomeExhausted = "exhausted"
)

// TxFunc is one attempt of a transactional unit of work. It must not keep
// references to exec after returning.
type TxFunc func(ctx context.Context, exec sqlx.ExtContext) error

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Observer receives one call per attempt.
type Observer interface {
	ObserveTxAttempt(operation, outcome string, attempt int)
}

// CoordinatorConfig tunes the retry loop.
type CoordinatorConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	Isolation      sql.IsolationLevel
	Logger         *zap.Logger
	Observer       Observer
}

// Coordinator runs units of work in bounded-retry transactions. Contention and
// per-attempt timeouts are retried with linear backoff; every other failure is
// returned on first occurrence.
type Coordinator struct {
	db             txBeginner
	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	isolation      sql.IsolationLevel
	logger         *zap.Logger
	observer       Observer
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewCoordinator builds a coordinator over db.
func NewCoordinator(db txBeginner, cfg CoordinatorConfig) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Coordinator{
		db:             db,
		maxAttempts:    cfg.MaxAttempts,
		baseDelay:      cfg.BaseDelay,
		attemptTimeout: cfg.AttemptTimeout,
		isolation:      cfg.Isolation,
		logger:         cfg.Logger,
		observer:       cfg.Observer,
		sleep:          sleepContext,
	}
}

// Run executes fn inside a transaction, committing on success. When attempts
// run out the last retryable error is returned unchanged.
func (c *Coordinator) Run(ctx context.Context, operation string, fn TxFunc) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.attempt(ctx, fn)
		if err == nil {
			c.observe(operation, OutcomeCommitted, attempt)
			return nil
		}
		if !appErrors.IsRetryable(err) {
			c.observe(operation, OutcomeFailed, attempt)
			return err
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}

		c.observe(operation, OutcomeRetried, attempt)
		delay := c.baseDelay * time.Duration(attempt)
		c.logger.Warn("transaction contention, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			c.observe(operation, OutcomeFailed, attempt)
			return lastErr
		}
	}

	c.observe(operation, OutcomeExhausted, c.maxAttempts)
	c.logger.Error("transaction retries exhausted",
		zap.String("operation", operation),
		zap.Int("attempts", c.maxAttempts),
		zap.Error(lastErr),
	)
	return lastErr
}

func (c *Coordinator) attempt(ctx context.Context, fn TxFunc) (err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	tx, err := c.db.BeginTxx(attemptCtx, &sql.TxOptions{Isolation: c.isolation})
	if err != nil {
		return c.classify(ctx, attemptCtx, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(attemptCtx, tx); err != nil {
		err = c.classify(ctx, attemptCtx, err)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = c.classify(ctx, attemptCtx, fmt.Errorf("commit transaction: %w", err))
		return err
	}
	return nil
}

// classify folds an expired attempt deadline into ErrTimeout as long as the
// caller's own context is still alive and the failure is not a domain error.
func (c *Coordinator) classify(parent, attemptCtx context.Context, err error) error {
	err = Classify(err)
	if parent.Err() != nil || !errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return err
	}
	if appErrors.FromError(err).Code != appErrors.ErrInternal.Code {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
}

func (c *Coordinator) observe(operation, outcome string, attempt int) {
	if c.observer != nil {
		c.observer.ObserveTxAttempt(operation, outcome, attempt)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
