package userdb

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("userdb: entity not found")

	// ErrNotSingular is returned when a lookup that expects exactly one row
	// returns more than one.
	ErrNotSingular = errors.New("userdb: entity not singular")

	// ErrInvalidIdentifier is wrapped by a ValidationError when a table or
	// column name is not a plain SQL identifier.
	ErrInvalidIdentifier = errors.New("userdb: invalid identifier")
)

// MissingFieldError is returned when a required entity field was not provided.
type MissingFieldError struct {
	Field string
}

// Error returns the error string.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("userdb: %s is required", e.Field)
}

// NewMissingFieldError returns a new MissingFieldError for the given field.
func NewMissingFieldError(field string) *MissingFieldError {
	return &MissingFieldError{Field: field}
}

// IsMissingField returns true if the error is a MissingFieldError.
func IsMissingField(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingFieldError
	return errors.As(err, &e)
}

// UnknownTypeError is returned when a value is tagged with a kind the
// statement builder does not know how to bind.
type UnknownTypeError struct {
	Column string // Column the value was destined for, if known.
	Kind   string // Kind name or numeric tag.
}

// Error returns the error string.
func (e *UnknownTypeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("userdb: unknown type %q for column %q", e.Kind, e.Column)
	}
	return fmt.Sprintf("userdb: unknown type %q", e.Kind)
}

// NewUnknownTypeError returns a new UnknownTypeError.
func NewUnknownTypeError(column, kind string) *UnknownTypeError {
	return &UnknownTypeError{Column: column, Kind: kind}
}

// IsUnknownType returns true if the error is an UnknownTypeError.
func IsUnknownType(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownTypeError
	return errors.As(err, &e)
}

// ArityMismatchError is returned when paired sequences passed to a
// multi-statement builder differ in length.
type ArityMismatchError struct {
	Op      string // Statement kind, e.g. "delete".
	Tables  int    // Number of tables.
	Other   int    // Length of the mismatching sequence.
	Operand string // Name of the mismatching sequence.
}

// Error returns the error string.
func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("userdb: %s: %d tables but %d %s", e.Op, e.Tables, e.Other, e.Operand)
}

// NewArityMismatchError returns a new ArityMismatchError.
func NewArityMismatchError(op string, tables, other int, operand string) *ArityMismatchError {
	return &ArityMismatchError{Op: op, Tables: tables, Other: other, Operand: operand}
}

// IsArityMismatch returns true if the error is an ArityMismatchError.
func IsArityMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *ArityMismatchError
	return errors.As(err, &e)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	key   any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("userdb: %s not found (key=%v)", e.label, e.key)
	}
	return fmt.Sprintf("userdb: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithKey returns a new NotFoundError with the key that was searched for.
func NewNotFoundErrorWithKey(label string, key any) *NotFoundError {
	return &NotFoundError{label: label, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a lookup expects a singular
// result but receives multiple rows.
type NotSingularError struct {
	label string
	count int
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("userdb: %s not singular (got %d results, expected 1)", e.label, e.count)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Count returns the number of rows returned.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError with the result count.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("userdb: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// ValidationError represents a validation error for field values.
type ValidationError struct {
	Name string // Field, column or table name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("userdb: validator failed for %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given name.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// IsUserError reports whether err was caused by bad caller input rather than
// by the database: missing fields, unknown kinds, arity or validation failures.
func IsUserError(err error) bool {
	return IsMissingField(err) || IsUnknownType(err) || IsArityMismatch(err) || IsValidationError(err)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("userdb: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("userdb: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("userdb: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "create", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("userdb: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
