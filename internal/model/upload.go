package model

import "time"

const (
	UploadStatusSuccess = "success"
	UploadStatusFailed  = "failed"
)

// UploadRecord is one append-only audit row per ingestion attempt.
type UploadRecord struct {
	UploadedAt    time.Time
	SnapshotDate  *time.Time
	Filename      string
	AssetType     AssetType
	RowCount      int
	Status        string
	FailureReason *string
}
