package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrFailure marks any driver, connectivity or constraint failure.
	ErrFailure = errors.New("store failure")

	// ErrConflict marks uniqueness violations and rejected state changes.
	ErrConflict = errors.New("conflict")
)

// OpError wraps a driver error with the store operation that produced it.
// It matches both ErrFailure and the underlying error under errors.Is.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{ErrFailure, e.Err}
}

// Fail wraps err as an OpError for op. A nil err stays nil and
// sql.ErrNoRows becomes ErrNotFound.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &OpError{Op: op, Err: err}
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// IsForeignKeyViolation reports whether err came from a FOREIGN KEY
// constraint.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
