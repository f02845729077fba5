package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Session is one unit of work. The first statement lazily begins a
// transaction; every following statement joins it, so staged changes
// are visible to reads within the session before they are durable.
// Commit flushes the transaction, Rollback discards it; either way the
// session can start a fresh unit of work afterwards.
//
// A Session is safe for use from multiple goroutines, but statements
// serialize on its single transaction.
type Session struct {
	db *DB

	mu     sync.Mutex
	tx     pgx.Tx
	closed bool
}

// DB returns the connection the session works on.
func (s *Session) DB() *DB {
	return s.db
}

// begin returns the open transaction, starting one if none is open.
// Callers hold s.mu.
func (s *Session) begin(ctx context.Context) (pgx.Tx, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.db == nil {
		return nil, ErrNoConnection
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "begin", Err: err}
	}
	s.tx = tx
	return tx, nil
}

// Exec runs a statement inside the session's transaction and returns
// the number of rows affected.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	tag, err := tx.Exec(ctx, sql, args...)
	s.db.echo(sql, args, start, err)
	if err != nil {
		return 0, &PersistenceError{Op: "exec", Err: err}
	}
	return tag.RowsAffected(), nil
}

// Query runs a query inside the session's transaction.
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := tx.Query(ctx, sql, args...)
	s.db.echo(sql, args, start, err)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return rows, nil
}

// QueryRow runs a query inside the session's transaction, returning at
// most one row.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return errRow{err}
	}
	start := time.Now()
	row := tx.QueryRow(ctx, sql, args...)
	s.db.echo(sql, args, start, nil)
	return row
}

// Commit makes the staged work durable and ends the current
// transaction. Committing with nothing staged is a no-op. On failure
// the error wraps the storage error as a PersistenceError and the
// session stays in the failed transaction until Rollback.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	if err := s.tx.Commit(ctx); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	s.tx = nil
	return nil
}

// Rollback discards the staged work. Rolling back with nothing staged,
// or after a failed commit already aborted the transaction, is a no-op.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback(ctx)
	s.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &PersistenceError{Op: "rollback", Err: err}
	}
	return nil
}

// Savepoint sets a named savepoint inside the current transaction,
// beginning one if needed.
func (s *Session) Savepoint(ctx context.Context, name string) error {
	_, err := s.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}
	return nil
}

// RollbackTo rolls the transaction back to a named savepoint, keeping
// the transaction open.
func (s *Session) RollbackTo(ctx context.Context, name string) error {
	_, err := s.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return fmt.Errorf("failed to rollback to savepoint %s: %w", name, err)
	}
	return nil
}

// ReleaseSavepoint releases a named savepoint.
func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := s.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}

// InTransaction reports whether the session has an open transaction.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Close rolls back any staged work and makes the session unusable.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback(ctx)
	s.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &PersistenceError{Op: "close", Err: err}
	}
	return nil
}

// errRow defers a begin failure until Scan, since pgx.Row has no error
// return of its own.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
