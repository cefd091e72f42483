package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

const (
	depositNarrative  = "Deposit via ATM"
	withdrawNarrative = "Withdraw via ATM"
)

// History bundles the balance head with the filtered transaction listing.
type History struct {
	AccountNumber string
	Balance       int64
	Transactions  []domain.Transaction
}

// LedgerService orchestrates balance mutations against the account store.
// Every mutation is a one-shot operation: validate, then apply atomically
// through the ledger repository, which guarantees the balance never goes
// negative and a transfer's net effect on the sum of balances is zero.
type LedgerService interface {
	Deposit(ctx context.Context, username string, amount int64) (int64, error)
	Withdraw(ctx context.Context, username string, amount int64) (int64, error)
	Transfer(ctx context.Context, username, destinationNumber string, amount int64, narrative string) (int64, error)
	GetBalance(ctx context.Context, username string) (string, int64, error)
	GetTransactionHistory(ctx context.Context, username string, direction *domain.Direction, order domain.SortOrder) (*History, error)
}

type ledgerService struct {
	accounts repository.AccountRepository
	ledger   repository.LedgerRepository
}

func NewLedgerService(accounts repository.AccountRepository, ledger repository.LedgerRepository) LedgerService {
	return &ledgerService{accounts: accounts, ledger: ledger}
}

func (s *ledgerService) Deposit(ctx context.Context, username string, amount int64) (int64, error) {
	account, err := s.resolve(ctx, username)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	newBalance, err := s.ledger.Deposit(ctx, account.AccountNumber, amount, depositNarrative)
	if err != nil {
		return 0, mapLedgerErr(err)
	}
	return newBalance, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, username string, amount int64) (int64, error) {
	account, err := s.resolve(ctx, username)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	newBalance, err := s.ledger.Withdraw(ctx, account.AccountNumber, amount, withdrawNarrative)
	if err != nil {
		return 0, mapLedgerErr(err)
	}
	return newBalance, nil
}

// Transfer debits the source and credits the destination as one unit,
// appending exactly two records that share the amount, narrative, and a
// generated reference. The destination is resolved before any mutation.
func (s *ledgerService) Transfer(ctx context.Context, username, destinationNumber string, amount int64, narrative string) (int64, error) {
	source, err := s.resolve(ctx, username)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	destination, err := s.accounts.GetByAccountNumber(ctx, destinationNumber)
	if err != nil {
		if isNotFound(err) {
			return 0, ErrDestinationNotFound
		}
		return 0, err
	}
	if destination.AccountNumber == source.AccountNumber {
		return 0, ErrSameAccount
	}

	outNarrative := fmt.Sprintf("Transfer to %s %s: %s", destination.FullName, destination.AccountNumber, narrative)
	inNarrative := fmt.Sprintf("Transfer from %s %s: %s", source.FullName, source.AccountNumber, narrative)
	reference := uuid.NewString()

	newBalance, err := s.ledger.Transfer(ctx, source.AccountNumber, destination.AccountNumber, amount, outNarrative, inNarrative, reference)
	if err != nil {
		return 0, mapLedgerErr(err)
	}
	return newBalance, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, username string) (string, int64, error) {
	account, err := s.resolve(ctx, username)
	if err != nil {
		return "", 0, err
	}
	return account.AccountNumber, account.Balance, nil
}

func (s *ledgerService) GetTransactionHistory(ctx context.Context, username string, direction *domain.Direction, order domain.SortOrder) (*History, error) {
	account, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListTransactions(ctx, account.AccountNumber, direction, order)
	if err != nil {
		return nil, err
	}
	return &History{
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Transactions:  entries,
	}, nil
}

func (s *ledgerService) resolve(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func mapLedgerErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrNotFound):
		return ErrAccountNotFound
	default:
		return err
	}
}
