package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
)

// StatementService tracks statement export jobs. Rendering and uploading
// are done by the export manager; this service owns job state.
type StatementService interface {
	CreateJob(ctx context.Context, username, spoolDir string) (*domain.StatementJob, error)
	GetJob(ctx context.Context, id int64) (*domain.StatementJob, error)
	ListJobs(ctx context.Context, username string) ([]domain.StatementJob, error)
	ListByStatuses(ctx context.Context, statuses ...domain.StatementStatus) ([]domain.StatementJob, error)
	UpdateStatus(ctx context.Context, id int64, status domain.StatementStatus, errMsg *string) error
	MarkUploaded(ctx context.Context, id int64, s3Location string) error
	DeleteJob(ctx context.Context, id int64) error
}

type statementService struct {
	jobs     repository.StatementJobRepository
	accounts repository.AccountRepository
}

func NewStatementService(jobs repository.StatementJobRepository, accounts repository.AccountRepository) StatementService {
	return &statementService{jobs: jobs, accounts: accounts}
}

func (s *statementService) CreateJob(ctx context.Context, username, spoolDir string) (*domain.StatementJob, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	job := &domain.StatementJob{
		AccountNumber: account.AccountNumber,
		Status:        domain.StatementStatusPending,
		LocalPath:     filepath.Join(spoolDir, fmt.Sprintf("statement-%s.csv", uuid.NewString())),
	}
	if _, err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *statementService) GetJob(ctx context.Context, id int64) (*domain.StatementJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *statementService) ListJobs(ctx context.Context, username string) ([]domain.StatementJob, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.jobs.ListByAccount(ctx, account.AccountNumber)
}

func (s *statementService) ListByStatuses(ctx context.Context, statuses ...domain.StatementStatus) ([]domain.StatementJob, error) {
	return s.jobs.ListByStatuses(ctx, statuses...)
}

func (s *statementService) UpdateStatus(ctx context.Context, id int64, status domain.StatementStatus, errMsg *string) error {
	return s.jobs.UpdateStatus(ctx, id, status, errMsg)
}

func (s *statementService) MarkUploaded(ctx context.Context, id int64, s3Location string) error {
	return s.jobs.MarkUploaded(ctx, id, s3Location, time.Now())
}

func (s *statementService) DeleteJob(ctx context.Context, id int64) error {
	return s.jobs.Delete(ctx, id)
}
