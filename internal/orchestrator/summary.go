package orchestrator

import (
	"time"

	"yoloset/internal/rebalance"
)

// RunSummary contains statistics from one execution.
type RunSummary struct {
	Planned         int                    `json:"planned"`
	Moved           int                    `json:"moved"`
	Failed          int                    `json:"failed"`
	LabelMismatches int                    `json:"labelMismatches"` // images moved whose label stayed behind
	NotAttempted    int                    `json:"notAttempted"`    // left over after cancellation
	Cancelled       bool                   `json:"cancelled"`
	Duration        time.Duration          `json:"duration"`
	ByCategory      map[string]int         `json:"byCategory"` // successful moves per category key
	Results         []rebalance.MoveResult `json:"results"`
}

// GenerateSummary counts the outcome of an execution of planned actions.
func GenerateSummary(results []rebalance.MoveResult, planned int, cancelled bool, duration time.Duration) *RunSummary {
	summary := &RunSummary{
		Planned:    planned,
		Cancelled:  cancelled,
		Duration:   duration,
		ByCategory: make(map[string]int),
		Results:    results,
	}
	for _, r := range results {
		if !r.Success {
			summary.Failed++
			continue
		}
		summary.Moved++
		summary.ByCategory[r.Action.Category.Key()]++
		if r.LabelMismatch() {
			summary.LabelMismatches++
		}
	}
	summary.NotAttempted = planned - len(results)
	return summary
}

// HasErrors reports whether any move failed or left a label behind.
func (s *RunSummary) HasErrors() bool {
	return s.Failed > 0 || s.LabelMismatches > 0
}
