package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Type enumerates the supported job categories.
type Type string

const (
	TypeRender    Type = "render"
	TypeDub       Type = "dub"
	TypeSubtitles Type = "subtitles"
	TypeTranslate Type = "translate"
	TypeEdit      Type = "edit"
	TypeAvatar    Type = "avatar"
)

var allTypes = []Type{TypeRender, TypeDub, TypeSubtitles, TypeTranslate, TypeEdit, TypeAvatar}

var typeSet = func() map[Type]struct{} {
	set := make(map[Type]struct{}, len(allTypes))
	for _, t := range allTypes {
		set[t] = struct{}{}
	}
	return set
}()

// AllTypes returns the ordered list of known job types.
func AllTypes() []Type {
	cp := make([]Type, len(allTypes))
	copy(cp, allTypes)
	return cp
}

// ParseType converts a string into a known job Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := typeSet[normalized]
	return normalized, ok
}

// ErrorKind classifies a terminal job failure for API consumers.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindUpstream   ErrorKind = "upstream"
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindInternal   ErrorKind = "internal"
)

// Job is a render job persisted in SQLite. The scheduler exclusively owns
// status, progress, and error transitions; clients only create jobs and
// request cancellation.
type Job struct {
	ID              string
	ProjectID       string
	Type            Type
	Status          Status
	Progress        int
	ProgressMessage string
	ParamsJSON      string
	SnapshotJSON    string
	OutputRef       string
	ErrorKind       ErrorKind
	ErrorMessage    string
	Attempts        int
	RunAfter        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// IsTerminal reports whether the job reached a terminal status.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// SetFailed marks the job failed with a classified error.
func (j *Job) SetFailed(kind ErrorKind, message string) {
	j.Status = StatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// SetCompleted marks the job completed with its output reference.
func (j *Job) SetCompleted(outputRef string) {
	j.Status = StatusCompleted
	j.Progress = 100
	j.OutputRef = outputRef
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.LastHeartbeat = nil
}

// SetCancelled marks the job cancelled.
func (j *Job) SetCancelled() {
	j.Status = StatusCancelled
	j.LastHeartbeat = nil
}

// HealthSummary describes aggregated job counts per key lifecycle state.
type HealthSummary struct {
	Total     int
	Queued    int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}
