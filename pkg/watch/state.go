package watch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

const stateFileName = "watch_state.json"

// TargetState contains the last audit result for a watched sitemap
type TargetState struct {
	LastRunTime    time.Time `json:"last_run_time"`
	LastRunSuccess bool      `json:"last_run_success"`
	LastRunID      string    `json:"last_run_id,omitempty"`
	Pages          int       `json:"pages"`
	AvgScore       int       `json:"avg_score"`
	PrevAvgScore   int       `json:"prev_avg_score,omitempty"` // Score of the previous successful audit
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// WatchState contains the persistent state for the watch scheduler
type WatchState struct {
	Targets   map[string]TargetState `json:"targets"` // Keyed by sitemap URL
	UpdatedAt time.Time              `json:"updated_at"`
}

// StateManager handles persisting and loading watch state
type StateManager struct {
	stateDir  string
	statePath string
	state     WatchState
	mu        sync.RWMutex
}

// NewStateManager creates a new state manager
func NewStateManager(stateDir string) *StateManager {
	return &StateManager{
		stateDir:  stateDir,
		statePath: filepath.Join(stateDir, stateFileName),
		state:     WatchState{Targets: make(map[string]TargetState)},
	}
}

// Load reads watch_state.json. A missing file leaves the state empty.
func (m *StateManager) Load() error {
	f, err := os.Open(m.statePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", utils.ErrFilesystem, m.statePath, err)
	}
	defer f.Close()

	var loaded WatchState
	if err := json.NewDecoder(f).Decode(&loaded); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", utils.ErrParsing, m.statePath, err)
	}
	if loaded.Targets == nil {
		loaded.Targets = make(map[string]TargetState)
	}

	m.mu.Lock()
	m.state = loaded
	m.mu.Unlock()
	return nil
}

// Save writes the state to a temp file and renames it over watch_state.json
func (m *StateManager) Save() error {
	m.mu.Lock()
	m.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(m.state, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding watch state: %w", err)
	}

	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", utils.ErrFilesystem, m.stateDir, err)
	}
	tmp, err := os.CreateTemp(m.stateDir, stateFileName+".*")
	if err != nil {
		return fmt.Errorf("%w: creating temp state file: %w", utils.ErrFilesystem, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", utils.ErrFilesystem, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", utils.ErrFilesystem, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), m.statePath); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", utils.ErrFilesystem, m.statePath, err)
	}
	return nil
}

// GetTargetState returns the state for a sitemap URL
func (m *StateManager) GetTargetState(sitemapURL string) (TargetState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Targets[sitemapURL]
	return state, ok
}

// RecordRun stores the outcome of an audit. A failed audit keeps the last known scores.
func (m *StateManager) RecordRun(sitemapURL string, run *models.AnalysisRun, runErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state.Targets[sitemapURL]
	next := TargetState{
		LastRunTime:    time.Now(),
		LastRunSuccess: runErr == nil,
		Pages:          prev.Pages,
		AvgScore:       prev.AvgScore,
		PrevAvgScore:   prev.PrevAvgScore,
	}
	if run != nil {
		next.LastRunID = run.ID
	}
	if runErr != nil {
		next.ErrorMessage = runErr.Error()
	} else if run != nil {
		next.PrevAvgScore = prev.AvgScore
		next.Pages = run.Stats.Total
		next.AvgScore = run.Stats.AvgScore
	}
	m.state.Targets[sitemapURL] = next
}

// ShouldRun reports whether a target is due: never audited, or audited at least interval ago
func (m *StateManager) ShouldRun(sitemapURL string, interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Targets[sitemapURL]
	if !ok {
		return true
	}
	return time.Since(state.LastRunTime) >= interval
}

// GetNextRunTime returns when the target should next run
func (m *StateManager) GetNextRunTime(sitemapURL string, interval time.Duration) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Targets[sitemapURL]
	if !ok {
		return time.Now()
	}
	return state.LastRunTime.Add(interval)
}
