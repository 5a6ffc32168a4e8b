package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
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

// IsTerminal reports whether no further transition can occur from a status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Outcome is the success payload a handler returns for a completed job.
type Outcome struct {
	ProcessingTime time.Duration
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Job represents one unit of submitted work.
//
// The Store owns the canonical record; callers only ever see clones. Status
// moves Pending -> Processing -> Completed|Failed, or Pending -> Cancelled,
// and never leaves a terminal state. OutputRef is fixed at construction.
type Job struct {
	ID          string
	InputRef    string
	OutputRef   string
	Operation   string
	Parameters  Params
	Status      Status
	Progress    float64
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	Result      *Outcome
}

// Clone returns a deep copy safe to hand outside the store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Parameters = j.Parameters.Clone()
	if j.StartedAt != nil {
		started := *j.StartedAt
		cp.StartedAt = &started
	}
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		cp.CompletedAt = &completed
	}
	if j.Result != nil {
		result := *j.Result
		cp.Result = &result
	}
	return &cp
}
