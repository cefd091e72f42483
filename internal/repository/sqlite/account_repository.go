package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_number TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	birth_place TEXT NOT NULL DEFAULT '',
	birth_date TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

// Create inserts the profile and its zero-balance ledger head. Both live in
// one row, so the insert is the atomic unit the registration flow needs.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (int64, error) {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (account_number, username, full_name, birth_place, birth_date, gender, address, phone, email, password_hash, balance, failed_attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.AccountNumber,
		account.Username,
		account.FullName,
		account.BirthPlace,
		account.BirthDate,
		account.Gender,
		account.Address,
		account.Phone,
		account.Email,
		account.PasswordHash,
		account.Balance,
		account.FailedAttempts,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert account: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account last insert id: %w", err)
	}
	account.ID = id
	return id, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getWhere(ctx, "username = ?", username)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getWhere(ctx, "email = ?", email)
}

func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.getWhere(ctx, "phone = ?", phone)
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, number string) (*domain.Account, error) {
	return r.getWhere(ctx, "account_number = ?", number)
}

func (r *AccountRepository) getWhere(ctx context.Context, where string, arg any) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, account_number, username, full_name, birth_place, birth_date, gender, address, phone, email, password_hash, balance, failed_attempts, created_at, updated_at
FROM accounts
WHERE `+where,
		arg,
	)
	return scanAccount(row)
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, username string, profile domain.Profile) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET full_name = ?, birth_place = ?, birth_date = ?, gender = ?, address = ?, phone = ?, email = ?, updated_at = ?
WHERE username = ?`,
		profile.FullName,
		profile.BirthPlace,
		profile.BirthDate,
		profile.Gender,
		profile.Address,
		profile.Phone,
		profile.Email,
		time.Now().UTC(),
		username,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update profile: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res, "update profile")
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, username string, newBalance int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET balance = ?, updated_at = ? WHERE username = ?`,
		newBalance, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return requireAffected(res, "update balance")
}

func (r *AccountRepository) ChangePassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET password_hash = ?, updated_at = ? WHERE username = ?`,
		passwordHash, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return requireAffected(res, "change password")
}

// Delete removes the profile and balance head. Rows in the transactions
// table are left in place: the ledger is an append-only audit trail and
// survives account closure.
func (r *AccountRepository) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res, "delete account")
}

func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, username string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET failed_attempts = failed_attempts + 1, updated_at = ? WHERE username = ?`,
		time.Now().UTC(), username,
	)
	if err != nil {
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}
	if err := requireAffected(res, "increment failed attempts"); err != nil {
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT failed_attempts FROM accounts WHERE username = ?`, username).Scan(&count); err != nil {
		return 0, fmt.Errorf("read failed attempts: %w", err)
	}
	return count, nil
}

func (r *AccountRepository) ResetFailedAttempts(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET failed_attempts = 0, updated_at = ? WHERE username = ?`,
		time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return requireAffected(res, "reset failed attempts")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.Username,
		&account.FullName,
		&account.BirthPlace,
		&account.BirthDate,
		&account.Gender,
		&account.Address,
		&account.Phone,
		&account.Email,
		&account.PasswordHash,
		&account.Balance,
		&account.FailedAttempts,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}
