package utils

import (
	"sync"
	"time"

	"kiprej-bot/dtos"

	"github.com/google/uuid"
)

// maxJobErrors bounds how many delivery errors a job keeps.
const maxJobErrors = 50

// JobStore tracks broadcast runs in memory
type JobStore struct {
	jobs map[uuid.UUID]*dtos.BroadcastJob
	mu   sync.RWMutex
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]*dtos.BroadcastJob)}
}

// CleanupOldJobs removes finished jobs older than 1 hour.
func (js *JobStore) CleanupOldJobs() {
	js.mu.Lock()
	defer js.mu.Unlock()

	cutoff := time.Now().Add(-1 * time.Hour)
	for id, job := range js.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(js.jobs, id)
		}
	}
}

// CreateJob registers a new pending job
func (js *JobStore) CreateJob() dtos.BroadcastJob {
	js.CleanupOldJobs()

	js.mu.Lock()
	defer js.mu.Unlock()

	job := &dtos.BroadcastJob{
		ID:        uuid.New(),
		Status:    dtos.JobStatusPending,
		Errors:    []dtos.JobError{},
		StartedAt: time.Now(),
	}
	js.jobs[job.ID] = job
	return *job
}

// GetJob returns a snapshot of the job
func (js *JobStore) GetJob(id uuid.UUID) (dtos.BroadcastJob, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()

	job, exists := js.jobs[id]
	if !exists {
		return dtos.BroadcastJob{}, false
	}
	snapshot := *job
	snapshot.Errors = append([]dtos.JobError(nil), job.Errors...)
	return snapshot, true
}

// UpdateJob applies updates to the job under the store lock
func (js *JobStore) UpdateJob(id uuid.UUID, updates func(*dtos.BroadcastJob)) {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobs[id]; exists {
		updates(job)
	}
}

// SetProcessing marks job as processing
func (js *JobStore) SetProcessing(id uuid.UUID) {
	js.UpdateJob(id, func(job *dtos.BroadcastJob) {
		job.Status = dtos.JobStatusProcessing
	})
}

// AddFailure counts a failed delivery and keeps its message
func (js *JobStore) AddFailure(id uuid.UUID, chatID int64, err error) {
	js.UpdateJob(id, func(job *dtos.BroadcastJob) {
		job.Failed++
		if len(job.Errors) < maxJobErrors {
			job.Errors = append(job.Errors, dtos.JobError{ChatID: chatID, Message: err.Error()})
		}
	})
}

// CompleteJob marks a job as finished with the given status
func (js *JobStore) CompleteJob(id uuid.UUID, status string) {
	js.UpdateJob(id, func(job *dtos.BroadcastJob) {
		job.Status = status
		now := time.Now()
		job.CompletedAt = &now
	})
}
