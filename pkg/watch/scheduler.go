package watch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/config"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/orchestrate"
)

// Runner executes one audit. *orchestrate.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestrate.Request, emit func(models.Event)) (*models.AnalysisRun, error)
}

// Scheduler re-audits a fixed set of sitemaps on an interval
type Scheduler struct {
	runner       Runner
	targets      []config.WatchTarget
	interval     time.Duration
	log          *logrus.Entry
	stateManager *StateManager
	now          func() time.Time
}

// NewScheduler creates a scheduler from the watch section of the config
func NewScheduler(runner Runner, cfg config.WatchConfig, log *logrus.Entry) (*Scheduler, error) {
	interval, err := ParseInterval(cfg.Interval)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", cfg.Interval)
	}
	return &Scheduler{
		runner:       runner,
		targets:      cfg.Targets,
		interval:     interval,
		log:          log.WithField("component", "watch"),
		stateManager: NewStateManager(cfg.StateDir),
		now:          time.Now,
	}, nil
}

// State exposes the state manager for status reporting
func (s *Scheduler) State() *StateManager {
	return s.stateManager
}

// Run audits due targets and then checks again on every tick until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.stateManager.Load(); err != nil {
		s.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}

	s.log.Infof("Starting watch mode for %d sitemaps with interval %s", len(s.targets), FormatInterval(s.interval))
	s.logSchedule()

	s.RunDue(ctx)

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			return nil
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue audits every target that is due, one at a time, and persists the state.
// It returns the number of audits that were started.
func (s *Scheduler) RunDue(ctx context.Context) int {
	due := s.dueTargets()
	if len(due) == 0 {
		s.logNextRun()
		return 0
	}

	s.log.Infof("Running audit for %d due sitemaps", len(due))
	started := 0
	for _, target := range due {
		if ctx.Err() != nil {
			break
		}
		started++
		s.runTarget(ctx, target)
	}

	if err := s.stateManager.Save(); err != nil {
		s.log.Errorf("Failed to save watch state: %v", err)
	}
	s.logNextRun()
	return started
}

func (s *Scheduler) runTarget(ctx context.Context, target config.WatchTarget) {
	tLog := s.log.WithField("sitemap", target.SitemapURL)
	req := orchestrate.Request{
		SitemapURL: target.SitemapURL,
		Options: models.Options{
			CheckMultipleSitemaps: target.CheckMultipleSitemaps,
			DetectLanguages:       target.DetectLanguages,
			DetectDuplicates:      target.DetectDuplicates,
		},
	}

	run, err := s.runner.Run(ctx, req, func(ev models.Event) {
		tLog.Debugf("Event: %s", ev.EventType())
	})
	if err != nil {
		tLog.Errorf("Audit failed: %v", err)
	} else if run != nil {
		prev, _ := s.stateManager.GetTargetState(target.SitemapURL)
		tLog.Infof("Audit complete: %d pages, avg score %d (previous %d)", run.Stats.Total, run.Stats.AvgScore, prev.AvgScore)
	}
	s.stateManager.RecordRun(target.SitemapURL, run, err)
}

func (s *Scheduler) dueTargets() []config.WatchTarget {
	var due []config.WatchTarget
	for _, t := range s.targets {
		if s.stateManager.ShouldRun(t.SitemapURL, s.interval) {
			due = append(due, t)
		}
	}
	return due
}

// calculateTickInterval returns how often to check for due targets
func (s *Scheduler) calculateTickInterval() time.Duration {
	// Check at least every minute, or every 1/10th of the interval
	checkInterval := s.interval / 10
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

func (s *Scheduler) logSchedule() {
	s.log.Info("Watch schedule:")
	for _, t := range s.targets {
		state, exists := s.stateManager.GetTargetState(t.SitemapURL)
		if !exists {
			s.log.Infof("  %s: never run, will run immediately", t.SitemapURL)
			continue
		}
		status := "success"
		if !state.LastRunSuccess {
			status = "failed"
		}
		s.log.Infof("  %s: last run %v (%s, %d pages, score %d), next run %v",
			t.SitemapURL,
			state.LastRunTime.Format(time.RFC3339),
			status,
			state.Pages,
			state.AvgScore,
			s.stateManager.GetNextRunTime(t.SitemapURL, s.interval).Format(time.RFC3339))
	}
}

func (s *Scheduler) logNextRun() {
	type nextRun struct {
		sitemap string
		at      time.Time
	}
	var runs []nextRun
	for _, t := range s.targets {
		runs = append(runs, nextRun{t.SitemapURL, s.stateManager.GetNextRunTime(t.SitemapURL, s.interval)})
	}
	if len(runs) == 0 {
		return
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].at.Before(runs[j].at) })

	next := runs[0]
	until := next.at.Sub(s.now())
	if until < 0 {
		until = 0
	}
	s.log.Infof("Next audit: %s in %v (at %s)", next.sitemap, until.Round(time.Second), next.at.Format("15:04:05"))
}

// GetStatus returns the current status of all watched sitemaps
func (s *Scheduler) GetStatus() map[string]TargetStatus {
	status := make(map[string]TargetStatus, len(s.targets))
	for _, t := range s.targets {
		state, exists := s.stateManager.GetTargetState(t.SitemapURL)
		status[t.SitemapURL] = TargetStatus{
			TargetState: state,
			SitemapURL:  t.SitemapURL,
			NextRunTime: s.stateManager.GetNextRunTime(t.SitemapURL, s.interval),
			NeverRun:    !exists,
		}
	}
	return status
}

// TargetStatus contains the status of a watched sitemap
type TargetStatus struct {
	TargetState
	SitemapURL  string
	NextRunTime time.Time
	NeverRun    bool
}

// FormatInterval formats a duration for display
func FormatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a duration string with support for a leading day count ("7d", "1d12h")
func ParseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	var days int
	var remaining string
	n, _ := fmt.Sscanf(s, "%dd%s", &days, &remaining)
	if n >= 1 {
		d = time.Duration(days) * 24 * time.Hour
		if remaining != "" {
			extra, err := time.ParseDuration(remaining)
			if err != nil {
				return 0, fmt.Errorf("invalid interval format: %s", s)
			}
			d += extra
		}
		return d, nil
	}

	return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
}
