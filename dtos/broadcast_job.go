package dtos

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastJob represents the progress of one broadcast run
type BroadcastJob struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"` // pending, processing, completed, failed
	Notices     int        `json:"notices"`
	Promotions  int        `json:"promotions"`
	Failed      int        `json:"failed"`
	Errors      []JobError `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// JobError represents a single failed delivery
type JobError struct {
	ChatID  int64  `json:"chat_id"`
	Message string `json:"message"`
}

// JobStatus constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
