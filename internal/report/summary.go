// Package report aggregates verification results into a machine-readable
// summary and renders it for humans and CI.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/verify"
)

// StageRecord is one stage's outcome in the summary document.
type StageRecord struct {
	Name       string         `json:"name"`
	Outcome    verify.Outcome `json:"outcome"`
	DurationMS int64          `json:"durationMs"`
	Gated      bool           `json:"gated,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Summary is the machine-readable result of one verification run. The
// counters always satisfy Passed+Failed+Skipped+Cancelled == Total.
type Summary struct {
	RunID       string        `json:"runId"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Cancelled   int           `json:"cancelled"`
	Stages      []StageRecord `json:"stages"`
}

// Summarize folds stage results into a Summary, preserving stage order.
func Summarize(results []verify.Result) *Summary {
	s := &Summary{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Total:       len(results),
		Stages:      make([]StageRecord, 0, len(results)),
	}

	for _, r := range results {
		switch r.Outcome {
		case verify.OutcomePass:
			s.Passed++
		case verify.OutcomeFail:
			s.Failed++
		case verify.OutcomeSkip:
			s.Skipped++
		case verify.OutcomeCancelled:
			s.Cancelled++
		}
		s.Stages = append(s.Stages, StageRecord{
			Name:       r.Name,
			Outcome:    r.Outcome,
			DurationMS: r.Duration.Milliseconds(),
			Gated:      r.Gated,
			Tags:       r.Tags,
			Reason:     r.Reason,
		})
	}

	return s
}

// Succeeded reports whether the run finished with no failures and was
// not cancelled.
func (s *Summary) Succeeded() bool {
	return s.Failed == 0 && s.Cancelled == 0
}
