package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Skip reasons surfaced on Result.Reason.
const (
	ReasonGateNotMet  = "prerequisite gate not met"
	ReasonSlowSkipped = "slow stages disabled"
	ReasonNotSelected = "not selected by tags"
)

// Options configure a verification run.
type Options struct {
	// Log receives per-stage progress. Defaults to logr.Discard.
	Log logr.Logger

	// GateThreshold is the number of non-gated passes required before
	// gated stages run. Zero leaves the gate permanently open.
	GateThreshold int

	// SkipSlow skips every gated stage regardless of the gate.
	SkipSlow bool

	// Tags, when non-empty, restricts the run to stages carrying at
	// least one of them. Gate accounting still counts only stages that
	// actually ran.
	Tags []string
}

// Runner executes a stage registry in order and records outcomes.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	return &Runner{opts: opts}
}

// Run executes every registered stage sequentially and returns one
// Result per stage, in registry order. A failing stage never stops the
// run; cancellation marks all remaining stages Cancelled.
func (r *Runner) Run(ctx context.Context, reg *Registry) []Result {
	results := make([]Result, 0, reg.Len())
	passed := 0

	for _, stage := range reg.Stages() {
		res := Result{Name: stage.Name, Tags: stage.Tags, Gated: stage.Gated, Outcome: OutcomePending}

		switch {
		case len(r.opts.Tags) > 0 && !stage.HasAnyTag(r.opts.Tags):
			res.Outcome = OutcomeSkip
			res.Reason = ReasonNotSelected
		case ctx.Err() != nil:
			res.Outcome = OutcomeCancelled
			res.Reason = ctx.Err().Error()
		case stage.Gated && r.opts.SkipSlow:
			res.Outcome = OutcomeSkip
			res.Reason = ReasonSlowSkipped
		case stage.Gated && passed < r.opts.GateThreshold:
			res.Outcome = OutcomeSkip
			res.Reason = fmt.Sprintf("%s (%d/%d passes)", ReasonGateNotMet, passed, r.opts.GateThreshold)
		default:
			r.opts.Log.Info("stage starting", "stage", stage.Name, "gated", stage.Gated)
			start := time.Now()
			err := r.execute(ctx, stage)
			res.Duration = time.Since(start)

			switch {
			case err == nil:
				res.Outcome = OutcomePass
				passed++
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				res.Outcome = OutcomeCancelled
				res.Reason = err.Error()
			default:
				res.Outcome = OutcomeFail
				res.Reason = err.Error()
			}
		}

		r.opts.Log.Info("stage finished",
			"stage", stage.Name, "outcome", string(res.Outcome),
			"duration", res.Duration.String(), "reason", res.Reason)
		results = append(results, res)
	}

	return results
}

// execute runs a stage body, converting a panic into an error so one
// misbehaving stage cannot take down the whole run.
func (r *Runner) execute(ctx context.Context, stage Stage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("stage panicked: %v", p)
		}
	}()
	return stage.Run(ctx)
}
