package repository

import (
	"context"
	"time"

	"bankledger/internal/domain"
)

// StatementJobRepository tracks statement export jobs.
type StatementJobRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, job *domain.StatementJob) (int64, error)
	Get(ctx context.Context, id int64) (*domain.StatementJob, error)
	ListByAccount(ctx context.Context, accountNumber string) ([]domain.StatementJob, error)
	ListByStatuses(ctx context.Context, statuses ...domain.StatementStatus) ([]domain.StatementJob, error)
	UpdateStatus(ctx context.Context, id int64, status domain.StatementStatus, errorMessage *string) error
	MarkUploaded(ctx context.Context, id int64, s3Location string, uploadedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}
