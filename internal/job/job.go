// Package job defines the domain types for republishing jobs and the
// accounts they publish to.
package job

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	// StatusPending is the initial state: the job is waiting to become due.
	StatusPending Status = "pending"
	// StatusProcessing means a processor instance is acting on the job.
	StatusProcessing Status = "processing"
	// StatusCompleted is the terminal success state.
	StatusCompleted Status = "completed"
	// StatusFailed is the terminal failure state. There is no automatic
	// retry; a failed job stays failed until an operator creates a new one.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. Terminal states never transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Job is a persisted request to publish one media item to one target
// account, optionally at a future time.
type Job struct {
	ID           string
	VideoURL     string     // share link to acquire the media from
	MediaPath    string     // local media file; empty until downloaded
	Caption      string     // optional caption text
	ScheduleTime *time.Time // nil means due immediately
	AccountID    string     // target account reference
	Requester    string     // originating requester (chat id) for notifications
	Status       Status
	Error        string // last error message, truncated
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Due reports whether the job should be processed at the given time.
func (j *Job) Due(now time.Time) bool {
	if j.Status != StatusPending {
		return false
	}
	return j.ScheduleTime == nil || !j.ScheduleTime.After(now)
}

// Account is a named session bundle for the publish target: a label plus an
// opaque cookie export of an already-authenticated browser session.
type Account struct {
	ID        string
	Name      string
	Cookies   string // session-cookie export, JSON
	CreatedAt time.Time
}
