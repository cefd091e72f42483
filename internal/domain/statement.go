package domain

import "time"

type StatementStatus string

const (
	StatementStatusPending   StatementStatus = "pending"
	StatementStatusRunning   StatementStatus = "running"
	StatementStatusUploading StatementStatus = "uploading"
	StatementStatusUploaded  StatementStatus = "uploaded"
	StatementStatusFailed    StatementStatus = "failed"
)

// StatementJob tracks one asynchronous statement export: the account's
// transaction history rendered to CSV and archived to object storage.
type StatementJob struct {
	ID            int64
	AccountNumber string
	Status        StatementStatus
	LocalPath     string
	S3Location    string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UploadedAt    *time.Time
}
