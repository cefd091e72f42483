package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a
	// uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInsufficientFunds is returned when a guarded balance update would
	// drive a balance negative. The enclosing transaction is rolled back.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
