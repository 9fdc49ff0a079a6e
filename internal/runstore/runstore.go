// Package runstore tracks the lifecycle of test runs in memory.
package runstore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prowlqa/prowl/internal/model"
)

// Status of a registered run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the registry's view of a single run.
type Run struct {
	ID        string           `json:"id"`
	Status    Status           `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at,omitempty"`
	Report    *model.RunReport `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Registry holds run state behind a mutex. Lookups return copies so
// callers never observe in-progress mutation.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Begin registers a run as running. Reusing a live run ID is an error.
func (r *Registry) Begin(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.runs[runID]; ok && existing.Status == StatusRunning {
		return fmt.Errorf("run %s is already running", runID)
	}
	r.runs[runID] = &Run{
		ID:        runID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	return nil
}

// Complete marks a run as finished with its report.
func (r *Registry) Complete(runID string, report *model.RunReport) error {
	return r.finish(runID, StatusCompleted, report, "")
}

// Fail marks a run as failed. The report stays nil; errMsg explains
// what broke.
func (r *Registry) Fail(runID, errMsg string) error {
	return r.finish(runID, StatusFailed, nil, errMsg)
}

func (r *Registry) finish(runID string, status Status, report *model.RunReport, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return fmt.Errorf("unknown run %s", runID)
	}
	if run.Status != StatusRunning {
		return fmt.Errorf("run %s already finished with status %s", runID, run.Status)
	}
	run.Status = status
	run.EndedAt = time.Now().UTC()
	run.Report = report
	run.Error = errMsg
	return nil
}

// Get returns a snapshot of a run.
func (r *Registry) Get(runID string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// List returns snapshots of all runs, newest first.
func (r *Registry) List() []Run {
	r.mu.RLock()
	runs := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, *run)
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs
}
