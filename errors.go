package lkey

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned by singular reads that require a row.
	ErrNotFound = errors.New("lkey: entity not found")

	// ErrNoTransaction is returned when WithCommit is used on a session
	// that is not bound to a transaction. Sessions never open transactions
	// on their own.
	ErrNoTransaction = errors.New("lkey: session is not transactional")

	// ErrTxStarted is returned by Tx on a session that is already bound
	// to a transaction.
	ErrTxStarted = errors.New("lkey: session is already transactional")

	// ErrTxUnsupported is returned by Tx when the session's connection
	// cannot start transactions.
	ErrTxUnsupported = errors.New("lkey: session connection cannot start transactions")
)

// NoLogicalKeyError reports a logical-key operation on a type that
// declares no logical-key column. It indicates a schema declaration
// mistake, not a transient condition.
type NoLogicalKeyError struct {
	Type string
}

// Error returns the error string.
func (e *NoLogicalKeyError) Error() string {
	return fmt.Sprintf("lkey: type %q declares no logical key column", e.Type)
}

// NewNoLogicalKeyError returns a new NoLogicalKeyError for the given type.
func NewNoLogicalKeyError(typeName string) *NoLogicalKeyError {
	return &NoLogicalKeyError{Type: typeName}
}

// IsNoLogicalKey returns true if the error is a NoLogicalKeyError.
func IsNoLogicalKey(err error) bool {
	if err == nil {
		return false
	}
	var e *NoLogicalKeyError
	return errors.As(err, &e)
}

// AlreadyKeyedError reports an attach on an entity that already holds
// primary-key values without overwrite permission. This is a caller
// invariant violation.
type AlreadyKeyedError struct {
	Type string
	Keys []any
}

// Error returns the error string.
func (e *AlreadyKeyedError) Error() string {
	return fmt.Sprintf("lkey: attach on %q: entity already holds primary key values %v", e.Type, e.Keys)
}

// NewAlreadyKeyedError returns a new AlreadyKeyedError.
func NewAlreadyKeyedError(typeName string, keys []any) *AlreadyKeyedError {
	return &AlreadyKeyedError{Type: typeName, Keys: keys}
}

// IsAlreadyKeyed returns true if the error is an AlreadyKeyedError.
func IsAlreadyKeyed(err error) bool {
	if err == nil {
		return false
	}
	var e *AlreadyKeyedError
	return errors.As(err, &e)
}

// ConstraintError wraps a database constraint violation. The underlying
// driver error is preserved unchanged for inspection.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("lkey: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) *ConstraintError {
	return &ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}

// QueryError wraps a read failure with the statement context needed for
// diagnosis: the operation, the type, its key-column definitions, and the
// bound parameters.
type QueryError struct {
	Type    string
	Op      string
	Columns []string
	Args    []any
	Err     error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("lkey: querying %s (%s) key columns %v args %v: %v", e.Type, e.Op, e.Columns, e.Args, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a write failure with the statement context needed
// for diagnosis.
type MutationError struct {
	Type    string
	Op      string
	Columns []string
	Args    []any
	Err     error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("lkey: %s %s columns %v args %v: %v", e.Op, e.Type, e.Columns, e.Args, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
