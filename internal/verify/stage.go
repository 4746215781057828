// Package verify runs the ordered, gated verification pipeline against
// a converged deployment.
//
// Stages execute strictly in registry order. Gated stages are the
// expensive ones (long poll budgets against the data plane); they are
// skipped when too few foundational stages have passed, so a broken
// environment fails fast instead of paying multi-minute waits.
package verify

import (
	"context"
	"slices"
	"time"
)

// Outcome is a stage's terminal result.
type Outcome string

const (
	OutcomePending   Outcome = "Pending"
	OutcomePass      Outcome = "Pass"
	OutcomeFail      Outcome = "Fail"
	OutcomeSkip      Outcome = "Skip"
	OutcomeCancelled Outcome = "Cancelled"
)

// StageFunc is a stage's executable body. It must observe ctx: any
// internal poll loop has to stop within one polling interval of
// cancellation.
type StageFunc func(ctx context.Context) error

// Stage is one named verification step.
type Stage struct {
	// Name is the human-readable stage identifier.
	Name string

	// Tags categorize the stage for selective execution.
	Tags []string

	// Gated marks expensive stages that only run once the pass-count
	// gate is open.
	Gated bool

	// Run executes the stage.
	Run StageFunc
}

// HasAnyTag reports whether the stage carries at least one of the tags.
func (s Stage) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(s.Tags, t) {
			return true
		}
	}
	return false
}

// Result is a stage's terminal outcome snapshot.
type Result struct {
	Name     string
	Tags     []string
	Gated    bool
	Outcome  Outcome
	Duration time.Duration
	Reason   string
}

// Registry is the static, ordered list of stages for one run.
type Registry struct {
	stages []Stage
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a stage, preserving registration order.
func (r *Registry) Add(s Stage) {
	r.stages = append(r.stages, s)
}

// Stages returns the stages in registration order.
func (r *Registry) Stages() []Stage {
	return r.stages
}

// Len returns the number of registered stages.
func (r *Registry) Len() int {
	return len(r.stages)
}
