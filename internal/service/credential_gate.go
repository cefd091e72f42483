package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bankledger/internal/auth"
	"bankledger/internal/domain"
)

// AuthResult is the outcome of a credential check.
type AuthResult int

const (
	Rejected AuthResult = iota
	Authorized
	Locked
)

// AccountResolver maps an identity key (email or username, depending on the
// gate) to its account. A miss must be reported via repository.ErrNotFound.
type AccountResolver func(ctx context.Context, key string) (*domain.Account, error)

// CredentialGate wraps an operation with password verification and
// failed-attempt throttling, independent of the operation itself.
type CredentialGate struct {
	resolve  AccountResolver
	hasher   auth.PasswordHasher
	throttle *AttemptThrottle
	logger   *logrus.Logger

	// placeholderDigest is compared against when the identity key does
	// not resolve, so a probe cannot tell "unknown identity" from "wrong
	// secret" by timing. Security property, not an optimization target.
	placeholderDigest string
}

func NewCredentialGate(resolve AccountResolver, hasher auth.PasswordHasher, throttle *AttemptThrottle, logger *logrus.Logger) (*CredentialGate, error) {
	if logger == nil {
		logger = logrus.New()
	}
	placeholder, err := hasher.Hash("placeholder-credential-filler")
	if err != nil {
		return nil, fmt.Errorf("hash placeholder secret: %w", err)
	}
	return &CredentialGate{
		resolve:           resolve,
		hasher:            hasher,
		throttle:          throttle,
		logger:            logger,
		placeholderDigest: placeholder,
	}, nil
}

// Authorize verifies secret for key. Order matters: a locked key aborts
// before any secret comparison; otherwise the comparison always runs, even
// for unknown keys; success resets the counter, failure increments it and
// re-checks the limit. The returned account is non-nil only for Authorized.
func (g *CredentialGate) Authorize(ctx context.Context, key, secret string) (AuthResult, *domain.Account, error) {
	locked, err := g.throttle.Check(ctx, key)
	if err != nil {
		return Rejected, nil, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		return Locked, nil, nil
	}

	account, err := g.resolve(ctx, key)
	if err != nil && !isNotFound(err) {
		return Rejected, nil, fmt.Errorf("resolve identity: %w", err)
	}

	digest := g.placeholderDigest
	if account != nil {
		digest = account.PasswordHash
	}
	matched := g.hasher.Verify(secret, digest)

	if matched && account != nil {
		g.throttle.RecordSuccess(ctx, key)
		return Authorized, account, nil
	}

	if g.throttle.RecordFailure(ctx, key) {
		return Locked, nil, nil
	}
	return Rejected, nil, nil
}

// Remaining exposes how many failures are left before key locks, for
// caller-facing messages.
func (g *CredentialGate) Remaining(ctx context.Context, key string) int {
	left, err := g.throttle.Remaining(ctx, key)
	if err != nil {
		g.logger.Warnf("read remaining attempts for %s: %v", key, err)
		return 0
	}
	return left
}
