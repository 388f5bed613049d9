package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness rule was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict occurs when the operation clashes with current state.
	ErrConflict = errors.New("conflict")
	// ErrForbidden occurs when the principal lacks a permission.
	ErrForbidden = errors.New("forbidden")
)
