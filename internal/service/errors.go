package service

import (
	"errors"

	"bankledger/internal/repository"
)

var (
	// ErrAccountNotFound indicates the identity key resolves to no account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientFunds indicates the balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrDestinationNotFound indicates a transfer destination account
	// number matches no account.
	ErrDestinationNotFound = errors.New("destination account not found")
	// ErrSameAccount indicates a transfer where source and destination
	// are the same account.
	ErrSameAccount = errors.New("cannot transfer to the same account")
	// ErrDuplicateIdentity indicates a username, email, or phone collision.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrLocked indicates the failed-attempt throttle is engaged.
	ErrLocked = errors.New("account is locked")
	// ErrInvalidCredentials indicates the supplied secret is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates a malformed request field.
	ErrValidation = errors.New("validation failed")
)

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
