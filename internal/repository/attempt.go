package repository

import (
	"context"
	"time"

	"bankledger/internal/domain"
)

// AttemptRepository stores failed-attempt state per identity key. Records
// are created lazily on first failure; a missing record means zero failures
// and no lockout.
type AttemptRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (*domain.AttemptState, error)
	// Increment adds one failure for key, creating the record if absent,
	// and returns the new count.
	Increment(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
	SetLockout(ctx context.Context, key string, until time.Time) error
	ClearLockout(ctx context.Context, key string) error
}
