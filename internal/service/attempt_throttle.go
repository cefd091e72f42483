package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

// AttemptStore is the minimal persistence surface the throttle needs.
// Implemented by the sqlite login_attempts repository (login path) and by
// an adapter over the account row's failed-attempts column (banking path).
type AttemptStore interface {
	Get(ctx context.Context, key string) (*domain.AttemptState, error)
	Increment(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
	SetLockout(ctx context.Context, key string, until time.Time) error
	ClearLockout(ctx context.Context, key string) error
}

// AttemptThrottle counts consecutive credential failures per identity key
// and engages a lockout once the limit is reached. A zero lockout duration
// means the lock never expires on its own and must be cleared by an
// explicit reset.
type AttemptThrottle struct {
	store   AttemptStore
	limit   int
	lockout time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAttemptThrottle(store AttemptStore, limit int, lockout time.Duration, logger *logrus.Logger) *AttemptThrottle {
	if logger == nil {
		logger = logrus.New()
	}
	return &AttemptThrottle{
		store:   store,
		limit:   limit,
		lockout: lockout,
		now:     time.Now,
		logger:  logger,
	}
}

// Check reports whether key is currently locked. An expired lockout is
// cleared durably, and its counter zeroed, before the limit is consulted;
// after clearing, the key is not locked. A missing record is never locked.
func (t *AttemptThrottle) Check(ctx context.Context, key string) (bool, error) {
	state, err := t.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, nil
	}

	if state.LockedUntil != nil && !state.LockedUntil.After(t.now()) {
		// Clearing is a durable side effect; if it fails the key is
		// still treated as unlocked, since the expiry has passed.
		if err := t.store.Reset(ctx, key); err != nil {
			t.logger.Warnf("clear expired lockout for %s: %v", key, err)
		}
		return false, nil
	}

	return state.Failures >= t.limit, nil
}

// RecordFailure increments the counter and reports whether the key is now
// locked. Reaching the limit arms the lockout expiry when one is
// configured. Bookkeeping write failures are logged and do not surface.
func (t *AttemptThrottle) RecordFailure(ctx context.Context, key string) bool {
	count, err := t.store.Increment(ctx, key)
	if err != nil {
		t.logger.Warnf("record failed attempt for %s: %v", key, err)
		return false
	}

	if count >= t.limit {
		if count == t.limit && t.lockout > 0 {
			if err := t.store.SetLockout(ctx, key, t.now().Add(t.lockout)); err != nil {
				t.logger.Warnf("arm lockout for %s: %v", key, err)
			}
		}
		return true
	}
	return false
}

// RecordSuccess zeroes the counter and clears any lockout.
func (t *AttemptThrottle) RecordSuccess(ctx context.Context, key string) {
	if err := t.store.Reset(ctx, key); err != nil {
		t.logger.Warnf("reset attempts for %s: %v", key, err)
	}
}

// Remaining reports how many failures are left before key locks, based on
// the stored counter.
func (t *AttemptThrottle) Remaining(ctx context.Context, key string) (int, error) {
	state, err := t.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return t.limit, nil
	}
	left := t.limit - state.Failures
	if left < 0 {
		left = 0
	}
	return left, nil
}

// accountAttemptStore adapts the failed-attempts column on the account row
// to the AttemptStore interface for the banking credential gate. The
// banking lock is purely count-based: SetLockout and ClearLockout are
// no-ops, so the lock holds until an explicit reset.
type accountAttemptStore struct {
	accounts repository.AccountRepository
}

func NewAccountAttemptStore(accounts repository.AccountRepository) AttemptStore {
	return &accountAttemptStore{accounts: accounts}
}

func (s *accountAttemptStore) Get(ctx context.Context, key string) (*domain.AttemptState, error) {
	account, err := s.accounts.GetByUsername(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.AttemptState{
		Key:       key,
		Failures:  account.FailedAttempts,
		UpdatedAt: account.UpdatedAt,
	}, nil
}

func (s *accountAttemptStore) Increment(ctx context.Context, key string) (int, error) {
	return s.accounts.IncrementFailedAttempts(ctx, key)
}

func (s *accountAttemptStore) Reset(ctx context.Context, key string) error {
	return s.accounts.ResetFailedAttempts(ctx, key)
}

func (s *accountAttemptStore) SetLockout(ctx context.Context, key string, until time.Time) error {
	return nil
}

func (s *accountAttemptStore) ClearLockout(ctx context.Context, key string) error {
	return nil
}
