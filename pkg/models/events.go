package models

// Event types carried in the "type" field of every progress event
const (
	EventProgress      = "progress"
	EventStats         = "stats"
	EventLanguageStats = "language-stats"
	EventIssues        = "issues"
	EventComplete      = "complete"
	EventError         = "error"
)

// Event is one message of a run's progress stream. Each concrete type marshals to a flat JSON object.
type Event interface {
	EventType() string
}

// ProgressEvent reports overall completion in percent
type ProgressEvent struct {
	Type     string `json:"type"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// StatsEvent carries the run summary
type StatsEvent struct {
	Type  string `json:"type"`
	Stats Stats  `json:"stats"`
}

// LanguageStatsEvent carries per-language page counts
type LanguageStatsEvent struct {
	Type      string         `json:"type"`
	Languages map[string]int `json:"languages"`
}

// IssuesEvent carries cross-page issue counts
type IssuesEvent struct {
	Type   string         `json:"type"`
	Issues []IssueSummary `json:"issues"`
}

// CompleteEvent is the terminal success event
type CompleteEvent struct {
	Type  string      `json:"type"`
	Files ReportFiles `json:"files"`
	Stats Stats       `json:"stats"`
}

// ErrorEvent is the terminal failure event
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e ProgressEvent) EventType() string      { return e.Type }
func (e StatsEvent) EventType() string         { return e.Type }
func (e LanguageStatsEvent) EventType() string { return e.Type }
func (e IssuesEvent) EventType() string        { return e.Type }
func (e CompleteEvent) EventType() string      { return e.Type }
func (e ErrorEvent) EventType() string         { return e.Type }

func NewProgress(progress int, message string) ProgressEvent {
	return ProgressEvent{Type: EventProgress, Progress: progress, Message: message}
}

func NewStats(stats Stats) StatsEvent {
	return StatsEvent{Type: EventStats, Stats: stats}
}

func NewLanguageStats(languages map[string]int) LanguageStatsEvent {
	if languages == nil {
		languages = map[string]int{}
	}
	return LanguageStatsEvent{Type: EventLanguageStats, Languages: languages}
}

func NewIssues(issues []IssueSummary) IssuesEvent {
	if issues == nil {
		issues = []IssueSummary{}
	}
	return IssuesEvent{Type: EventIssues, Issues: issues}
}

func NewComplete(files ReportFiles, stats Stats) CompleteEvent {
	return CompleteEvent{Type: EventComplete, Files: files, Stats: stats}
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}
