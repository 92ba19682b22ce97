// Package processor orchestrates the per-job pipeline: status transitions,
// media acquisition, delegation to the browser automation controller,
// notification, and temp-file cleanup. All failures are caught here and
// converted into a terminal failed status; nothing escapes to the scheduler.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hieund/repostbot/internal/browser"
	"github.com/hieund/repostbot/internal/job"
	"github.com/hieund/repostbot/internal/logger"
	"github.com/hieund/repostbot/internal/resolver"
)

// maxStoredErrorLen bounds failure messages before storage and notification.
const maxStoredErrorLen = 200

// JobStore is the slice of the store the processor needs.
type JobStore interface {
	SetStatus(ctx context.Context, id string, status job.Status, errMsg string) error
	SetMediaPath(ctx context.Context, id, path string) error
	GetAccount(ctx context.Context, id string) (*job.Account, error)
}

// Publisher drives the publish target's web UI for one media file.
type Publisher interface {
	Publish(ctx context.Context, req browser.Request) error
}

// Notifier delivers best-effort messages to the requester. Failures are
// logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, requester, message string) error
}

// Recorder receives processing metrics. Kept as an interface so tests and
// metric-less setups can pass a no-op.
type Recorder interface {
	JobStarted()
	JobDone()
	JobFinished(status string)
	StepFailed(step string)
	ObservePublishDuration(d time.Duration)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) JobStarted()                         {}
func (NopRecorder) JobDone()                            {}
func (NopRecorder) JobFinished(string)                  {}
func (NopRecorder) StepFailed(string)                   {}
func (NopRecorder) ObservePublishDuration(time.Duration) {}

// Processor runs one job at a time to a terminal state.
type Processor struct {
	store     JobStore
	acquirer  resolver.Acquirer
	publisher Publisher
	notifier  Notifier
	recorder  Recorder
	logger    *logger.Logger

	// mu enforces the single-worker invariant: at most one job is in
	// processing at any instant.
	mu sync.Mutex
}

// New creates a job processor. A nil recorder defaults to NopRecorder.
func New(store JobStore, acquirer resolver.Acquirer, publisher Publisher, notifier Notifier, recorder Recorder, log *logger.Logger) *Processor {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Processor{
		store:     store,
		acquirer:  acquirer,
		publisher: publisher,
		notifier:  notifier,
		recorder:  recorder,
		logger:    log,
	}
}

// Process runs a single job to a terminal state. The returned error reports
// why the job failed; the job's stored status is already terminal either way.
func (p *Processor) Process(ctx context.Context, j *job.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.recorder.JobStarted()
	defer p.recorder.JobDone()

	log := p.logger.With(logger.Field{Key: "job_id", Value: j.ID})
	log.Info("processing job",
		logger.Field{Key: "video_url", Value: j.VideoURL},
		logger.Field{Key: "account_id", Value: j.AccountID})

	// Persist the transition before any network or browser work, so a
	// mid-crash leaves an inspectable status instead of a stuck pending.
	if err := p.store.SetStatus(ctx, j.ID, job.StatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	account, err := p.store.GetAccount(ctx, j.AccountID)
	if err != nil {
		return p.fail(ctx, j, "", fmt.Errorf("account lookup failed: %w", err))
	}

	mediaPath := j.MediaPath
	downloaded := false
	if mediaPath == "" {
		clip, err := p.acquirer.Resolve(ctx, j.VideoURL)
		if err != nil {
			// Acquisition failure: no automation attempt is made.
			return p.fail(ctx, j, account.Name, err)
		}
		log.Info("share link resolved",
			logger.Field{Key: "platform", Value: clip.Platform},
			logger.Field{Key: "title", Value: clip.Title},
			logger.Field{Key: "author", Value: clip.Author})

		mediaPath, err = p.acquirer.Download(ctx, clip.MediaURL)
		if err != nil {
			return p.fail(ctx, j, account.Name, err)
		}
		downloaded = true

		if err := p.store.SetMediaPath(ctx, j.ID, mediaPath); err != nil {
			log.Warn("failed to persist media path", logger.Field{Key: "error", Value: err})
		}
	}

	// Media downloaded by this job is scoped to it: remove it on both the
	// success and the failure path. User-supplied files are left alone.
	if downloaded {
		defer func() {
			if err := os.Remove(mediaPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("failed to remove downloaded media",
					logger.Field{Key: "path", Value: mediaPath},
					logger.Field{Key: "error", Value: err})
			}
		}()
	}

	// The job's own due-time already elapsed; the poller only hands over
	// due jobs. No in-platform schedule is passed.
	start := time.Now()
	pubErr := p.publisher.Publish(ctx, browser.Request{
		MediaPath:   mediaPath,
		CookiesJSON: account.Cookies,
		Caption:     j.Caption,
	})
	p.recorder.ObservePublishDuration(time.Since(start))

	if pubErr != nil {
		var stepErr *browser.StepError
		if errors.As(pubErr, &stepErr) {
			p.recorder.StepFailed(stepErr.Step)
		}
		return p.fail(ctx, j, account.Name, pubErr)
	}

	if err := p.store.SetStatus(ctx, j.ID, job.StatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	p.recorder.JobFinished(string(job.StatusCompleted))
	log.Info("job completed", logger.Field{Key: "account", Value: account.Name})

	caption := j.Caption
	if caption == "" {
		caption = "none"
	}
	p.notify(ctx, j.Requester, fmt.Sprintf(
		"✅ Job %s published successfully!\n👤 Account: %s\n📝 Caption: %s",
		j.ID, account.Name, caption))
	return nil
}

// fail records a terminal failure and notifies the requester. The message is
// truncated before it reaches storage or chat.
func (p *Processor) fail(ctx context.Context, j *job.Job, accountName string, cause error) error {
	msg := browser.Truncate(cause.Error(), maxStoredErrorLen)

	if err := p.store.SetStatus(ctx, j.ID, job.StatusFailed, msg); err != nil {
		p.logger.Error("failed to mark job failed", err,
			logger.Field{Key: "job_id", Value: j.ID})
	}
	p.recorder.JobFinished(string(job.StatusFailed))

	p.logger.Error("job failed", cause, logger.Field{Key: "job_id", Value: j.ID})

	if accountName == "" {
		accountName = j.AccountID
	}
	p.notify(ctx, j.Requester, fmt.Sprintf(
		"❌ Job %s failed!\n👤 Account: %s\n🔴 Error: %s",
		j.ID, accountName, msg))

	return cause
}

// notify sends a best-effort notification; a delivery failure is logged only.
func (p *Processor) notify(ctx context.Context, requester, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, requester, message); err != nil {
		p.logger.Warn("failed to send notification",
			logger.Field{Key: "requester", Value: requester},
			logger.Field{Key: "error", Value: err})
	}
}
