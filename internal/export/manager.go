package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bankledger/internal/domain"
	"bankledger/internal/repository"
	"bankledger/internal/service"
	"bankledger/internal/storage"
)

// Manager coordinates statement export jobs: rendering the transaction
// history to CSV and archiving the file in object storage.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(ctx context.Context, jobID int64) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context, jobID int64) error
}

type Config struct {
	SpoolDir      string
	MaxConcurrent int
	UploadOptions storage.UploadOptions
	Logger        *logrus.Logger
}

type manager struct {
	cfg        Config
	statements service.StatementService
	ledger     repository.LedgerRepository
	storage    storage.Service

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[int64]*jobHandle
}

type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, statements service.StatementService, ledger repository.LedgerRepository, store storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:        cfg,
		statements: statements,
		ledger:     ledger,
		storage:    store,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		active:     make(map[int64]*jobHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.SpoolDir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("statement export manager started, spool dir: %s", m.cfg.SpoolDir)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("statement export manager stopped")
}

func (m *manager) Enqueue(ctx context.Context, jobID int64) error {
	job, err := m.statements.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	m.spawnJob(*job)
	return nil
}

// Resume re-queues jobs interrupted by a previous shutdown.
func (m *manager) Resume(ctx context.Context) error {
	jobs, err := m.statements.ListByStatuses(ctx,
		domain.StatementStatusPending,
		domain.StatementStatusRunning,
		domain.StatementStatusUploading,
	)
	if err != nil {
		return err
	}
	for i := range jobs {
		m.spawnJob(jobs[i])
	}
	return nil
}

func (m *manager) Cancel(ctx context.Context, jobID int64) error {
	m.mu.Lock()
	handle, ok := m.active[jobID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	handle.cancel()
	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) spawnJob(job domain.StatementJob) {
	jobCtx, cancel := context.WithCancel(m.ctx)
	handle := &jobHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.mu.Lock()
	m.active[job.ID] = handle
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.active, job.ID)
			m.mu.Unlock()
			close(handle.done)
		}()
		select {
		case <-m.ctx.Done():
			return
		case <-jobCtx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.handleJob(jobCtx, &job)
		}
	}()
}

func (m *manager) handleJob(ctx context.Context, job *domain.StatementJob) {
	logger := m.cfg.Logger.WithField("job_id", job.ID)

	switch job.Status {
	case domain.StatementStatusUploaded:
		logger.Debug("job already uploaded, skipping")
		return
	case domain.StatementStatusUploading:
		logger.Info("job mid-upload, resuming upload")
		if _, err := os.Stat(job.LocalPath); err != nil {
			// spool file lost between restarts; render again
			break
		}
		m.uploadAndCleanup(ctx, job)
		return
	}

	if err := m.statements.UpdateStatus(ctx, job.ID, domain.StatementStatusRunning, nil); err != nil {
		logger.Errorf("update status: %v", err)
		return
	}

	if err := m.renderStatement(ctx, job); err != nil {
		m.failJob(ctx, job.ID, err)
		return
	}
	m.uploadAndCleanup(ctx, job)
}

func (m *manager) uploadAndCleanup(ctx context.Context, job *domain.StatementJob) {
	logger := m.cfg.Logger.WithField("job_id", job.ID)

	if err := m.statements.UpdateStatus(ctx, job.ID, domain.StatementStatusUploading, nil); err != nil {
		logger.Errorf("update status: %v", err)
		return
	}

	location, err := m.storage.UploadFile(ctx, job.LocalPath, m.cfg.UploadOptions)
	if err != nil {
		m.failJob(ctx, job.ID, fmt.Errorf("upload statement: %w", err))
		return
	}

	if err := m.statements.MarkUploaded(ctx, job.ID, location); err != nil {
		logger.Errorf("mark uploaded: %v", err)
		return
	}
	if err := os.Remove(job.LocalPath); err != nil && !os.IsNotExist(err) {
		logger.Warnf("remove spool file: %v", err)
	}
	logger.Infof("statement archived at %s", location)
}

// renderStatement writes the account's full ledger, oldest first, as CSV.
func (m *manager) renderStatement(ctx context.Context, job *domain.StatementJob) error {
	entries, err := m.ledger.ListTransactions(ctx, job.AccountNumber, nil, domain.OrderOldestFirst)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(job.LocalPath), 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}
	f, err := os.Create(job.LocalPath)
	if err != nil {
		return fmt.Errorf("create statement file: %w", err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write([]string{"timestamp", "direction", "amount", "narrative", "reference"})
	for _, entry := range entries {
		if writeErr != nil {
			break
		}
		writeErr = w.Write([]string{
			entry.Timestamp.Format(time.RFC3339),
			string(entry.Direction),
			strconv.FormatInt(entry.Amount, 10),
			entry.Narrative,
			entry.Reference,
		})
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("write statement: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close statement file: %w", closeErr)
	}
	return nil
}

func (m *manager) failJob(ctx context.Context, jobID int64, cause error) {
	msg := cause.Error()
	m.cfg.Logger.WithField("job_id", jobID).Errorf("statement export failed: %v", cause)
	if err := m.statements.UpdateStatus(ctx, jobID, domain.StatementStatusFailed, &msg); err != nil {
		m.cfg.Logger.Errorf("update failed status for job %d: %v", jobID, err)
	}
}
