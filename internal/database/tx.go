package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 15 * time.Millisecond
)

// Transactor runs fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back on error or panic.
type Transactor interface {
	InTx(ctx context.Context, isolation sql.IsolationLevel, fn func(tx *gorm.DB) error) error
}

// GormTransactor is the gorm-backed Transactor. Transient conflicts
// (serialization failures, deadlocks, busy sqlite files) re-run the whole
// fn from the start, so fn must not leak state between attempts.
type GormTransactor struct {
	db          *gorm.DB
	dialect     Dialect
	maxAttempts int
	backoff     time.Duration
}

func NewTransactor(db *gorm.DB, dialect Dialect, maxAttempts int) *GormTransactor {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &GormTransactor{
		db:          db,
		dialect:     dialect,
		maxAttempts: maxAttempts,
		backoff:     defaultBackoff,
	}
}

func (t *GormTransactor) InTx(ctx context.Context, isolation sql.IsolationLevel, fn func(tx *gorm.DB) error) error {
	opts := t.txOptions(isolation)

	for attempt := 1; ; attempt++ {
		err := t.db.WithContext(ctx).Transaction(fn, opts...)
		if err == nil || attempt >= t.maxAttempts || !IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(t.backoff * time.Duration(attempt)):
		}
	}
}

// sqlite serializes writers on its own and rejects non-default levels.
func (t *GormTransactor) txOptions(isolation sql.IsolationLevel) []*sql.TxOptions {
	if t.dialect != DialectPostgres || isolation == sql.LevelDefault {
		return nil
	}
	return []*sql.TxOptions{{Isolation: isolation}}
}

// IsRetryable reports whether err is a transient conflict that is safe to
// resolve by re-running the whole transaction.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
