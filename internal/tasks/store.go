// Package tasks tracks background pipeline runs and dispatches them to workers.
package tasks

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-hunter/internal/types"
)

// Status represents the state of a task
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition can happen from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrNotFound is returned for task ids that were never created
	ErrNotFound = errors.New("task not found")
	// ErrAlreadyTerminal is returned when a finished task is completed or failed again
	ErrAlreadyTerminal = errors.New("task already finished")
)

// Record is a snapshot of one task. Result is set only when completed and
// Error only when failed.
type Record struct {
	ID         string            `json:"task_id"`
	Status     Status            `json:"status"`
	Result     *types.CrewResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// Store holds task records for the lifetime of the process.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Create adds a new running task with a fresh id.
func (s *Store) Create() Record {
	rec := &Record{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	slog.Info("task created", "task_id", rec.ID)
	return *rec
}

// Complete marks a running task completed with its result.
func (s *Store) Complete(id string, result *types.CrewResult) error {
	return s.finish(id, func(rec *Record) {
		rec.Status = StatusCompleted
		rec.Result = result
	})
}

// Fail marks a running task failed with an error message.
func (s *Store) Fail(id string, message string) error {
	return s.finish(id, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Error = message
	})
}

func (s *Store) finish(id string, apply func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	apply(rec)
	now := s.now()
	rec.FinishedAt = &now

	slog.Info("task finished", "task_id", id, "status", rec.Status, "duration", now.Sub(rec.CreatedAt))
	return nil
}

// Get returns a snapshot of a task.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// List returns the status of every known task.
func (s *Store) List() map[string]Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[string]Status, len(s.records))
	for id, rec := range s.records {
		statuses[id] = rec.Status
	}
	return statuses
}
