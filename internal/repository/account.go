package repository

import (
	"context"

	"bankledger/internal/domain"
)

// AccountRepository defines persistence operations for Account records.
// It carries no business policy; balance invariants are enforced by the
// ledger repository's guarded updates and by the service layer.
type AccountRepository interface {
	Init(ctx context.Context) error
	// Create inserts the profile together with its zero-balance ledger
	// head as one atomic unit. Returns ErrDuplicate on a username, email,
	// or phone collision.
	Create(ctx context.Context, account *domain.Account) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	GetByAccountNumber(ctx context.Context, number string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, username string, profile domain.Profile) error
	UpdateBalance(ctx context.Context, username string, newBalance int64) error
	ChangePassword(ctx context.Context, username, passwordHash string) error
	// Delete removes the profile and balance head. Transaction history is
	// retained: the ledger is append-only and survives account closure.
	Delete(ctx context.Context, username string) error

	// Failed-attempt bookkeeping for the banking credential gate. The
	// counter lives on the account row and has no auto-expiry.
	IncrementFailedAttempts(ctx context.Context, username string) (int, error)
	ResetFailedAttempts(ctx context.Context, username string) error
}

// LedgerRepository performs balance mutations and their ledger appends as
// single atomic units. Guarded conditional updates make concurrent
// withdrawals and transfers on the same account safe: a mutation that would
// overdraw fails with ErrInsufficientFunds and leaves no partial state.
type LedgerRepository interface {
	Init(ctx context.Context) error
	Deposit(ctx context.Context, accountNumber string, amount int64, narrative string) (int64, error)
	Withdraw(ctx context.Context, accountNumber string, amount int64, narrative string) (int64, error)
	// Transfer debits from, credits to, and appends both legs sharing the
	// given reference. All four writes commit or none do.
	Transfer(ctx context.Context, from, to string, amount int64, outNarrative, inNarrative, reference string) (int64, error)
	ListTransactions(ctx context.Context, accountNumber string, direction *domain.Direction, order domain.SortOrder) ([]domain.Transaction, error)
}
