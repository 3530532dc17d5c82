package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job status constants
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Job is the record of one page action.
type Job struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	Params      map[string]any `json:"params,omitempty"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMs  int64          `json:"duration_ms,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// JobStore keeps jobs in memory until CleanupOld drops them.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func (s *JobStore) Create(action string, params map[string]any) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		Action:    action,
		Params:    params,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	return *job
}

// Get returns a copy of the job.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (s *JobStore) MarkRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = StatusRunning
		job.StartedAt = &now
	}
}

// Finish moves the job to a terminal status and returns the final copy.
func (s *JobStore) Finish(id, status, errMsg string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{ID: id, Status: status, Error: errMsg}
	}
	now := time.Now()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
	if job.StartedAt != nil {
		job.DurationMs = now.Sub(*job.StartedAt).Milliseconds()
	}
	return *job
}

// FinishPending finishes the job only while it is still pending.
func (s *JobStore) FinishPending(id, status, errMsg string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusPending {
		return Job{}, false
	}
	now := time.Now()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
	return *job, true
}

// CountStatus returns how many jobs currently have status.
func (s *JobStore) CountStatus(status string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, job := range s.jobs {
		if job.Status == status {
			n++
		}
	}
	return n
}

// CleanupOld drops finished jobs older than maxAge.
func (s *JobStore) CleanupOld(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
