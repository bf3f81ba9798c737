// Package postgres implements the persistence layer on PostgreSQL via
// database/sql and lib/pq: the pooled connection handle, a typed error
// taxonomy, a connection-error retry policy, and the spend, idea, and user
// repositories.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Retry policy for connection-kind failures. The delay doubles after every
// failed attempt.
const (
	maxAttempts = 4
	baseBackoff = 250 * time.Millisecond
)

// Options tune the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps the pooled sql.DB handle. It is constructed once at process
// start, injected into the repositories, and closed on shutdown; there is
// deliberately no package-level instance.
type DB struct {
	sql *sql.DB
	log zerolog.Logger
}

// Open connects to PostgreSQL and verifies the connection with a retried
// ping, so a database that is still starting up does not fail the process
// immediately.
func Open(ctx context.Context, dsn string, opts Options, log zerolog.Logger) (*DB, error) {
	handle, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: opening connection pool: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		handle.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		handle.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		handle.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	db := &DB{
		sql: handle,
		log: log.With().Str("component", "postgres").Logger(),
	}

	err = db.withRetry(ctx, "Open", func() error {
		return classify("Open: pinging database", handle.PingContext(ctx))
	})
	if err != nil {
		handle.Close()
		return nil, err
	}

	return db, nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return classify("Ping: pinging database", db.sql.PingContext(ctx))
}

// Close drains and closes the connection pool.
func (db *DB) Close() error {
	return db.sql.Close()
}

// withRetry runs fn, re-attempting only classified connection failures with
// exponential backoff. Constraint and query errors propagate immediately. A
// cancelled context aborts the wait between attempts.
func (db *DB) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := baseBackoff

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsConnection(err) || attempt == maxAttempts {
			return err
		}

		db.log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Connection error, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", op, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return err
}
