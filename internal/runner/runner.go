package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mmr-tortoise/renderbuild/internal/model"
)

// Step is one unit of the build sequence. Steps are constructed by the
// CLI layer from the resolved configuration and executed in slice order.
type Step struct {
	// ID identifies the step in reports and JSON output.
	ID model.StepID

	// Name is the human-readable description shown in step banners.
	Name string

	// Run performs the step. A nil return marks the step succeeded;
	// any error fails the step and aborts the sequence.
	Run func(ctx context.Context) error
}

// Runner executes a fixed sequence of steps.
type Runner struct {
	// Steps is the ordered sequence to execute.
	Steps []Step

	// OnStepStart, when non-nil, is called immediately before each step
	// runs. The CLI uses it to print step banners; tests use it to
	// observe execution order.
	OnStepStart func(step Step)
}

// New creates a Runner over the given steps.
func New(steps []Step) *Runner {
	return &Runner{Steps: steps}
}

// Run executes the sequence and returns the report together with the
// first error, if any. The report is always populated; on failure it
// records the failed step and marks every remaining step skipped.
//
// Context cancellation between steps stops the run the same way a step
// failure does; a step already running observes cancellation through the
// context passed to it.
func (r *Runner) Run(ctx context.Context) (*model.BuildReport, error) {
	report := &model.BuildReport{
		BuildID:   uuid.NewString(),
		StartedAt: time.Now(),
		Steps:     make([]model.StepResult, 0, len(r.Steps)),
	}

	var firstErr error

	for _, step := range r.Steps {
		if firstErr != nil || ctx.Err() != nil {
			// Fail-fast: nothing after a failure (or cancellation) runs.
			report.Steps = append(report.Steps, model.StepResult{
				ID:     step.ID,
				Name:   step.Name,
				Status: model.StatusSkipped,
			})
			continue
		}

		if r.OnStepStart != nil {
			r.OnStepStart(step)
		}

		started := time.Now()
		err := step.Run(ctx)
		elapsed := time.Since(started)

		result := model.StepResult{
			ID:       step.ID,
			Name:     step.Name,
			Status:   model.StatusSucceeded,
			Duration: elapsed,
		}
		if err != nil {
			result.Status = model.StatusFailed
			result.Error = err.Error()
			firstErr = err
		}
		report.Steps = append(report.Steps, result)
	}

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	report.Duration = time.Since(report.StartedAt)
	report.Succeeded = firstErr == nil
	return report, firstErr
}
