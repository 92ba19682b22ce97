package browser

import (
	"context"
	"fmt"
)

// Step names used for diagnostics. On failure the current step name is
// embedded verbatim in the error message.
const (
	StepInit              = "init"
	StepInitDriver        = "init_driver"
	StepOpenTargetPage    = "open_target_page"
	StepInjectSession     = "inject_session"
	StepLocateTrigger     = "locate_publish_trigger"
	StepUploadMedia       = "upload_media"
	StepAwaitProcessing   = "await_processing"
	StepFillCaption       = "fill_caption"
	StepFillSchedule      = "fill_schedule"
	StepAwaitFinalize     = "await_finalize"
	StepSubmitPublish     = "submit_publish"
	StepAwaitConfirmation = "await_confirmation"
)

// maxErrorLen bounds failure messages before they reach storage or chat.
const maxErrorLen = 200

// StepError tags a failure with the automation step it occurred in.
type StepError struct {
	Step string
	Err  error
}

// Error renders the step-tagged message: "[<step>] <cause, truncated>".
func (e *StepError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Step, Truncate(e.Err.Error(), maxErrorLen))
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Truncate bounds s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// step is one unit of the publish sequence.
type step struct {
	name string
	// skip marks conditional steps (caption, in-platform scheduling) that
	// do not apply to the current request.
	skip bool
	run  func(ctx context.Context) error
}

// runSteps executes the sequence in order, stopping at the first failure and
// wrapping it with the failing step's name. Skipped steps produce no result.
func runSteps(ctx context.Context, steps []step) error {
	for _, s := range steps {
		if s.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
		if err := s.run(ctx); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
	}
	return nil
}
