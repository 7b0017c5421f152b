package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
)

// RunStatus represents the current state of an audit run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

func (s RunStatus) finished() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunEntry is the live view of one audit started through the server
type RunEntry struct {
	ID           string              `json:"id"`
	SitemapURL   string              `json:"sitemapUrl"`
	Status       RunStatus           `json:"status"`
	Progress     int                 `json:"progress"`
	Message      string              `json:"message,omitempty"`
	StartedAt    time.Time           `json:"startedAt"`
	CompletedAt  time.Time           `json:"completedAt,omitempty"`
	Stats        *models.Stats       `json:"stats,omitempty"`
	Files        *models.ReportFiles `json:"files,omitempty"`
	ErrorMessage string              `json:"error,omitempty"`

	cancel context.CancelFunc
}

// Registry tracks audit runs started through the server. Finished runs are kept for
// retention and at most maxFinished of them; older ones are served by the store, if any.
// A zero bound disables it.
type Registry struct {
	runs        map[string]*RunEntry
	retention   time.Duration
	maxFinished int
	now         func() time.Time
	mu          sync.RWMutex
}

// NewRegistry creates an empty Registry
func NewRegistry(retention time.Duration, maxFinished int) *Registry {
	return &Registry{
		runs:        make(map[string]*RunEntry),
		retention:   retention,
		maxFinished: maxFinished,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// prune drops expired and surplus finished runs. Callers hold r.mu.
func (r *Registry) prune() {
	var finished []*RunEntry
	for id, entry := range r.runs {
		if !entry.Status.finished() {
			continue
		}
		if r.retention > 0 && r.now().Sub(entry.CompletedAt) >= r.retention {
			delete(r.runs, id)
			continue
		}
		finished = append(finished, entry)
	}

	if r.maxFinished <= 0 || len(finished) <= r.maxFinished {
		return
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].CompletedAt.Before(finished[j].CompletedAt) })
	for _, entry := range finished[:len(finished)-r.maxFinished] {
		delete(r.runs, entry.ID)
	}
}

// Create registers a pending run and returns its ID with a context that Cancel ends
func (r *Registry) Create(parent context.Context, sitemapURL string) (string, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	entry := &RunEntry{
		ID:         uuid.New().String(),
		SitemapURL: sitemapURL,
		Status:     RunStatusPending,
		StartedAt:  r.now(),
		cancel:     cancel,
	}

	r.mu.Lock()
	r.prune()
	r.runs[entry.ID] = entry
	r.mu.Unlock()
	return entry.ID, ctx
}

// Get returns a snapshot of a run, or false if unknown
func (r *Registry) Get(id string) (RunEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[id]
	if !ok {
		return RunEntry{}, false
	}
	return *entry, true
}

// Observe folds a progress event into the run's live view
func (r *Registry) Observe(id string, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[id]
	if !ok || entry.Status.finished() {
		return
	}
	entry.Status = RunStatusRunning

	switch e := ev.(type) {
	case models.ProgressEvent:
		entry.Progress = e.Progress
		entry.Message = e.Message
	case models.StatsEvent:
		stats := e.Stats
		entry.Stats = &stats
	case models.CompleteEvent:
		files := e.Files
		stats := e.Stats
		entry.Files = &files
		entry.Stats = &stats
	}
}

// Finish marks a run as completed, or failed when err is non-nil, and releases its context
func (r *Registry) Finish(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[id]
	if !ok || entry.Status.finished() {
		return
	}
	entry.Status = RunStatusCompleted
	if err != nil {
		entry.Status = RunStatusFailed
		entry.ErrorMessage = err.Error()
	}
	entry.CompletedAt = r.now()
	entry.cancel()
	r.prune()
}

// Cancel stops a pending or running run. It reports whether anything was cancelled.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[id]
	if !ok || entry.Status.finished() {
		return false
	}
	entry.cancel()
	entry.Status = RunStatusCancelled
	entry.CompletedAt = r.now()
	return true
}

// CancelAll cancels every unfinished run
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.runs {
		if !entry.Status.finished() {
			entry.cancel()
			entry.Status = RunStatusCancelled
			entry.CompletedAt = r.now()
		}
	}
}

// List returns snapshots of all retained runs, newest first
func (r *Registry) List() []RunEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	entries := make([]RunEntry, 0, len(r.runs))
	for _, entry := range r.runs {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].StartedAt.After(entries[j].StartedAt) })
	return entries
}
