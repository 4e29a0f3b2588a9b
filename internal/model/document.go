package model

import "time"

// Document processing status. Completed and failed are terminal for an
// upload attempt; a resubmission creates a new document.
const (
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"not null;index" json:"tenant_id"`
	Filename    string    `gorm:"size:256;not null" json:"filename"`
	ContentType string    `gorm:"size:128;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
	Status      string    `gorm:"size:16;not null;index" json:"status"`
	FailReason  string    `gorm:"size:256" json:"fail_reason,omitempty"`
	ChunkCount  int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
