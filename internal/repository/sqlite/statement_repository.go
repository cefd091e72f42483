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

const createStatementJobsTable = `
CREATE TABLE IF NOT EXISTS statement_jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_number TEXT NOT NULL,
	status TEXT NOT NULL,
	local_path TEXT NOT NULL DEFAULT '',
	s3_location TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	uploaded_at DATETIME NULL
);
`

type StatementJobRepository struct {
	db *sql.DB
}

func NewStatementJobRepository(db *sql.DB) repository.StatementJobRepository {
	return &StatementJobRepository{db: db}
}

func (r *StatementJobRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createStatementJobsTable); err != nil {
		return fmt.Errorf("create statement jobs table: %w", err)
	}
	return nil
}

func (r *StatementJobRepository) Create(ctx context.Context, job *domain.StatementJob) (int64, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO statement_jobs (account_number, status, local_path, s3_location, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.AccountNumber,
		string(job.Status),
		job.LocalPath,
		job.S3Location,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert statement job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("statement job last insert id: %w", err)
	}
	job.ID = id
	return id, nil
}

func (r *StatementJobRepository) Get(ctx context.Context, id int64) (*domain.StatementJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, account_number, status, local_path, s3_location, error_message, created_at, updated_at, uploaded_at
FROM statement_jobs
WHERE id = ?`,
		id,
	)
	return scanStatementJob(row)
}

func (r *StatementJobRepository) ListByAccount(ctx context.Context, accountNumber string) ([]domain.StatementJob, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, account_number, status, local_path, s3_location, error_message, created_at, updated_at, uploaded_at
FROM statement_jobs
WHERE account_number = ?
ORDER BY created_at DESC, id DESC`,
		accountNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("list statement jobs: %w", err)
	}
	return collectStatementJobs(rows)
}

func (r *StatementJobRepository) ListByStatuses(ctx context.Context, statuses ...domain.StatementStatus) ([]domain.StatementJob, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, account_number, status, local_path, s3_location, error_message, created_at, updated_at, uploaded_at
FROM statement_jobs
WHERE status IN (`+placeholders+`)
ORDER BY created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list statement jobs by status: %w", err)
	}
	return collectStatementJobs(rows)
}

func (r *StatementJobRepository) UpdateStatus(ctx context.Context, id int64, status domain.StatementStatus, errorMessage *string) error {
	msg := ""
	if errorMessage != nil {
		msg = *errorMessage
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE statement_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update statement job status: %w", err)
	}
	return requireAffected(res, "update statement job status")
}

func (r *StatementJobRepository) MarkUploaded(ctx context.Context, id int64, s3Location string, uploadedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE statement_jobs SET status = ?, s3_location = ?, uploaded_at = ?, updated_at = ? WHERE id = ?`,
		string(domain.StatementStatusUploaded), s3Location, uploadedAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark statement job uploaded: %w", err)
	}
	return requireAffected(res, "mark statement job uploaded")
}

func (r *StatementJobRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM statement_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete statement job: %w", err)
	}
	return requireAffected(res, "delete statement job")
}

func collectStatementJobs(rows *sql.Rows) ([]domain.StatementJob, error) {
	defer rows.Close()

	var jobs []domain.StatementJob
	for rows.Next() {
		job, err := scanStatementJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statement jobs: %w", err)
	}
	return jobs, nil
}

func scanStatementJob(row interface {
	Scan(dest ...any) error
}) (*domain.StatementJob, error) {
	var job domain.StatementJob
	var status string
	var uploadedAt sql.NullTime
	if err := row.Scan(
		&job.ID,
		&job.AccountNumber,
		&status,
		&job.LocalPath,
		&job.S3Location,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&uploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("statement job: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan statement job: %w", err)
	}
	job.Status = domain.StatementStatus(status)
	if uploadedAt.Valid {
		t := uploadedAt.Time
		job.UploadedAt = &t
	}
	return &job, nil
}
