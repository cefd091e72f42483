package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"bankledger/internal/auth"
	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

const accountNumberLength = 10

// AccountService manages the account lifecycle: registration, profile
// reads and updates, password changes, and closure. Credential gating is
// the caller's concern; these operations assume authorization already
// happened.
type AccountService interface {
	Register(ctx context.Context, profile domain.Profile, username, password string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, username string, profile domain.Profile) error
	ChangePassword(ctx context.Context, username, newPassword string) error
	Close(ctx context.Context, username string) error
}

type accountService struct {
	accounts repository.AccountRepository
	hasher   auth.PasswordHasher
}

func NewAccountService(accounts repository.AccountRepository, hasher auth.PasswordHasher) AccountService {
	return &accountService{accounts: accounts, hasher: hasher}
}

func (s *accountService) Register(ctx context.Context, profile domain.Profile, username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	profile.Email = strings.TrimSpace(profile.Email)
	profile.Phone = strings.TrimSpace(profile.Phone)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if profile.Email == "" || profile.Phone == "" {
		return nil, fmt.Errorf("%w: email and phone are required", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	if err := s.checkIdentityFree(ctx, 0, username, profile.Email, profile.Phone); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	number, err := generateAccountNumber()
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		AccountNumber: number,
		Username:      username,
		FullName:      profile.FullName,
		BirthPlace:    profile.BirthPlace,
		BirthDate:     profile.BirthDate,
		Gender:        profile.Gender,
		Address:       profile.Address,
		Phone:         profile.Phone,
		Email:         profile.Email,
		PasswordHash:  hash,
		Balance:       0,
	}

	if _, err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, username string, profile domain.Profile) error {
	account, err := s.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	profile.Email = strings.TrimSpace(profile.Email)
	profile.Phone = strings.TrimSpace(profile.Phone)
	if profile.Email == "" || profile.Phone == "" {
		return fmt.Errorf("%w: email and phone are required", ErrValidation)
	}

	if err := s.checkIdentityFree(ctx, account.ID, "", profile.Email, profile.Phone); err != nil {
		return err
	}

	if err := s.accounts.UpdateProfile(ctx, username, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDuplicateIdentity
		}
		if isNotFound(err) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

func (s *accountService) ChangePassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.ChangePassword(ctx, username, hash); err != nil {
		if isNotFound(err) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

// Close deletes the profile and balance head. The transaction history is
// retained; archived statements are handled separately by the caller.
func (s *accountService) Close(ctx context.Context, username string) error {
	if err := s.accounts.Delete(ctx, username); err != nil {
		if isNotFound(err) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

// checkIdentityFree rejects a username, email, or phone that belongs to a
// different account. An account re-submitting its own email or phone
// (selfID matches) passes.
func (s *accountService) checkIdentityFree(ctx context.Context, selfID int64, username, email, phone string) error {
	if username != "" {
		if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
			return ErrDuplicateIdentity
		} else if !isNotFound(err) {
			return err
		}
	}
	if other, err := s.accounts.GetByEmail(ctx, email); err == nil {
		if other.ID != selfID {
			return ErrDuplicateIdentity
		}
	} else if !isNotFound(err) {
		return err
	}
	if other, err := s.accounts.GetByPhone(ctx, phone); err == nil {
		if other.ID != selfID {
			return ErrDuplicateIdentity
		}
	} else if !isNotFound(err) {
		return err
	}
	return nil
}

func generateAccountNumber() (string, error) {
	var b strings.Builder
	for i := 0; i < accountNumberLength; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate account number: %w", err)
		}
		b.WriteString(digit.String())
	}
	return b.String(), nil
}
