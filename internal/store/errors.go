package store

import "errors"

// Predefined errors for the store layer.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates the row changed underneath a conditional update,
	// e.g. a settlement that is no longer pending.
	ErrConflict = errors.New("conflict")
)
