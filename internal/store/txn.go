package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

// maxBusyRetries bounds how many times WithTxn will retry a transaction that
// fails to begin or commit because SQLite reports the database as busy. The
// file system already serializes all callbacks through its own mutex (see
// internal/fs), so contention here can only come from another process
// holding the database open, which the retry is meant to ride out briefly
// rather than mask indefinitely.
const maxBusyRetries = 5

// WithTxn runs fn inside a database transaction, committing on success and
// rolling back on error. Failures classified as SQLITE_BUSY are retried with
// jittered exponential backoff before being given up on.
func WithTxn(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	b := &backoff.Backoff{
		Min:    10 * time.Millisecond,
		Max:    200 * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= maxBusyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := runOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isBusy(err) {
			return err
		}
	}
	return lastErr
}

func runOnce(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces busy/locked conditions as *sqlite.Error with
	// a message containing "SQLITE_BUSY" or "database is locked"; matching on
	// text keeps this store package decoupled from the driver's internal
	// error type.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "database is locked")
}

// IsNotFound reports whether err is sql.ErrNoRows, the sentinel returned by
// QueryRow-style lookups that find nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
