// Package store persists jobs and publish-target accounts.
// The Store interface is the single source of truth for job status; only the
// job processor mutates it once a job is picked up.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hieund/repostbot/internal/job"
)

var (
	// ErrNotFound is returned when a job or account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status update would violate
	// the job lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CreateJobParams carries the validated inputs for a new job.
type CreateJobParams struct {
	VideoURL     string
	MediaPath    string // set when the media was supplied locally
	Caption      string
	ScheduleTime *time.Time
	AccountID    string
	Requester    string
}

// Store is the persistence contract consumed by the poller, the processor,
// and the chat channel.
type Store interface {
	CreateJob(ctx context.Context, params CreateJobParams) (string, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	// GetDueJobs returns pending jobs whose schedule time is absent or has
	// arrived, ordered oldest-created first.
	GetDueJobs(ctx context.Context, now time.Time) ([]*job.Job, error)
	GetJobsByRequester(ctx context.Context, requester string, limit int) ([]*job.Job, error)
	// ListByStatus returns jobs currently in the given state, used at
	// startup to surface jobs left in processing by a crash.
	ListByStatus(ctx context.Context, status job.Status) ([]*job.Job, error)
	SetStatus(ctx context.Context, id string, status job.Status, errMsg string) error
	SetMediaPath(ctx context.Context, id, path string) error
	// DeleteJob cancels a job that has not started yet. It reports false
	// for unknown jobs and for jobs past the pending state.
	DeleteJob(ctx context.Context, id string) (bool, error)

	CreateAccount(ctx context.Context, name, cookies string) (string, error)
	GetAccount(ctx context.Context, id string) (*job.Account, error)
	ListAccounts(ctx context.Context) ([]*job.Account, error)
	DeleteAccount(ctx context.Context, id string) (bool, error)

	Close() error
}
