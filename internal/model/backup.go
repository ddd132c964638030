package model

import "time"

// BackupStatus tracks a snapshot's progress through the upload pipeline.
type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusUploading BackupStatus = "uploading"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup is one encrypted database snapshot stored in the S3 bucket.
type Backup struct {
	ID          int64        `json:"id"`
	Filename    string       `json:"filename"`
	ObjectKey   string       `json:"object_key"`
	SizeBytes   int64        `json:"size_bytes"`
	Status      BackupStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
