// Package session manages database connections and units of work on
// top of pgx. A DB wraps a connection pool; a Session stages work in a
// lazily opened transaction until Commit makes it durable.
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrNoPrimaryKey is returned when a table defines no primary key.
	ErrNoPrimaryKey = errors.New("no primary key defined")

	// ErrNotPersisted is returned when an update or delete targets a
	// record whose primary key still holds its zero value.
	ErrNotPersisted = errors.New("record has not been persisted")

	// ErrSessionClosed is returned when operating on a closed session.
	ErrSessionClosed = errors.New("session already closed")

	// ErrNoConnection is returned when no database connection is available.
	ErrNoConnection = errors.New("no database connection")
)

// PersistenceError reports that the storage layer rejected a statement
// or a commit (constraint violation, lost connection, serialization
// failure). The underlying error is never swallowed; after a failed
// commit the caller must roll the session back before retrying.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that an id used as a precondition for update or
// delete resolved to no record.
type NotFoundError struct {
	Model string
	ID    int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Model, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for NotFoundError values.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a field patch that cannot be applied: an
// unknown column name, an unusable value, or a missing part of an
// association's natural key.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
