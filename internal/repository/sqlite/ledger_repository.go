package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_number TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	direction TEXT NOT NULL,
	narrative TEXT NOT NULL DEFAULT '',
	amount INTEGER NOT NULL CHECK (amount > 0),
	reference TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_number, timestamp);
`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTransactionsTable); err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	return nil
}

// Deposit credits the account and appends the inbound entry in one
// transaction.
func (r *LedgerRepository) Deposit(ctx context.Context, accountNumber string, amount int64, narrative string) (int64, error) {
	var newBalance int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE account_number = ?`,
			amount, now, accountNumber,
		)
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		if err := requireAffected(res, "credit account"); err != nil {
			return err
		}
		if err := appendEntry(ctx, tx, accountNumber, now, domain.DirectionInbound, narrative, amount, ""); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE account_number = ?`, accountNumber).Scan(&newBalance)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Withdraw debits the account and appends the outbound entry in one
// transaction. The debit is guarded: it only applies when the current
// balance covers the amount, so a concurrent mutation cannot interleave a
// stale read with the write.
func (r *LedgerRepository) Withdraw(ctx context.Context, accountNumber string, amount int64, narrative string) (int64, error) {
	var newBalance int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := debitGuarded(ctx, tx, accountNumber, amount, now); err != nil {
			return err
		}
		if err := appendEntry(ctx, tx, accountNumber, now, domain.DirectionOutbound, narrative, amount, ""); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE account_number = ?`, accountNumber).Scan(&newBalance)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Transfer moves amount between two accounts and appends both legs. All
// four writes commit together or roll back together; a failed debit guard
// leaves neither side changed.
func (r *LedgerRepository) Transfer(ctx context.Context, from, to string, amount int64, outNarrative, inNarrative, reference string) (int64, error) {
	var newBalance int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := debitGuarded(ctx, tx, from, amount, now); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE account_number = ?`,
			amount, now, to,
		)
		if err != nil {
			return fmt.Errorf("credit destination: %w", err)
		}
		if err := requireAffected(res, "credit destination"); err != nil {
			return err
		}

		if err := appendEntry(ctx, tx, from, now, domain.DirectionOutbound, outNarrative, amount, reference); err != nil {
			return err
		}
		if err := appendEntry(ctx, tx, to, now, domain.DirectionInbound, inNarrative, amount, reference); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE account_number = ?`, from).Scan(&newBalance)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, accountNumber string, direction *domain.Direction, order domain.SortOrder) ([]domain.Transaction, error) {
	query := `
SELECT id, account_number, timestamp, direction, narrative, amount, reference
FROM transactions
WHERE account_number = ?`
	args := []any{accountNumber}
	if direction != nil {
		query += ` AND direction = ?`
		args = append(args, string(*direction))
	}
	if order == domain.OrderNewestFirst {
		query += ` ORDER BY timestamp DESC, id DESC`
	} else {
		query += ` ORDER BY timestamp ASC, id ASC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		var entry domain.Transaction
		var dir string
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountNumber,
			&entry.Timestamp,
			&dir,
			&entry.Narrative,
			&entry.Amount,
			&entry.Reference,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entry.Direction = domain.Direction(dir)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// debitGuarded subtracts amount only when the balance covers it. Zero rows
// affected means either an unknown account or an overdraw; the follow-up
// existence check tells the two apart.
func debitGuarded(ctx context.Context, tx *sql.Tx, accountNumber string, amount int64, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
UPDATE accounts SET balance = balance - ?, updated_at = ?
WHERE account_number = ? AND balance >= ?`,
		amount, now, accountNumber, amount,
	)
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE account_number = ?`, accountNumber).Scan(&exists); err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("debit account: %w", repository.ErrNotFound)
	}
	return fmt.Errorf("debit account: %w", repository.ErrInsufficientFunds)
}

func appendEntry(ctx context.Context, tx *sql.Tx, accountNumber string, ts time.Time, direction domain.Direction, narrative string, amount int64, reference string) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions (account_number, timestamp, direction, narrative, amount, reference)
VALUES (?, ?, ?, ?, ?, ?)`,
		accountNumber,
		ts,
		string(direction),
		strings.TrimSpace(narrative),
		amount,
		reference,
	); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
