package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

const createLoginAttemptsTable = `
CREATE TABLE IF NOT EXISTS login_attempts (
	identity_key TEXT PRIMARY KEY,
	failures INTEGER NOT NULL DEFAULT 0,
	locked_until DATETIME NULL,
	updated_at DATETIME NOT NULL
);
`

type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) repository.AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createLoginAttemptsTable); err != nil {
		return fmt.Errorf("create login attempts table: %w", err)
	}
	return nil
}

// Get returns nil without error when no record exists for key; absence is
// equivalent to zero failures.
func (r *AttemptRepository) Get(ctx context.Context, key string) (*domain.AttemptState, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT identity_key, failures, locked_until, updated_at
FROM login_attempts
WHERE identity_key = ?`,
		key,
	)

	var state domain.AttemptState
	var lockedUntil sql.NullTime
	if err := row.Scan(&state.Key, &state.Failures, &lockedUntil, &state.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan attempt state: %w", err)
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		state.LockedUntil = &t
	}
	return &state, nil
}

func (r *AttemptRepository) Increment(ctx context.Context, key string) (int, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO login_attempts (identity_key, failures, updated_at)
VALUES (?, 1, ?)
ON CONFLICT(identity_key) DO UPDATE SET failures = failures + 1, updated_at = excluded.updated_at`,
		key, now,
	); err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT failures FROM login_attempts WHERE identity_key = ?`, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return count, nil
}

func (r *AttemptRepository) Reset(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE login_attempts SET failures = 0, locked_until = NULL, updated_at = ? WHERE identity_key = ?`,
		time.Now().UTC(), key,
	); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

func (r *AttemptRepository) SetLockout(ctx context.Context, key string, until time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO login_attempts (identity_key, failures, locked_until, updated_at)
VALUES (?, 0, ?, ?)
ON CONFLICT(identity_key) DO UPDATE SET locked_until = excluded.locked_until, updated_at = excluded.updated_at`,
		key, until.UTC(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("set lockout: %w", err)
	}
	return nil
}

func (r *AttemptRepository) ClearLockout(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE login_attempts SET locked_until = NULL, updated_at = ? WHERE identity_key = ?`,
		time.Now().UTC(), key,
	); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}
