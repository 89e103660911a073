// Package rebalance plans and executes image moves between dataset splits so
// that each split approaches its target category ratios, and undoes them.
package rebalance

import (
	"fmt"
	"strings"
)

// SelectionStrategy decides which images of a category are moved first.
type SelectionStrategy string

const (
	Random           SelectionStrategy = "random"
	FewestDetections SelectionStrategy = "fewest-detections"
	OldestFirst      SelectionStrategy = "oldest-first"
	NewestFirst      SelectionStrategy = "newest-first"
)

// AllStrategies returns every strategy in menu order.
func AllStrategies() []SelectionStrategy {
	return []SelectionStrategy{Random, FewestDetections, OldestFirst, NewestFirst}
}

// Label returns the human readable name.
func (s SelectionStrategy) Label() string {
	switch s {
	case Random:
		return "Random"
	case FewestDetections:
		return "Fewest Detections"
	case OldestFirst:
		return "Oldest First"
	case NewestFirst:
		return "Newest First"
	default:
		return string(s)
	}
}

// ParseStrategy accepts the strategy key with '-', '_' or no separator.
func ParseStrategy(s string) (SelectionStrategy, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	for _, st := range AllStrategies() {
		if norm == strings.ReplaceAll(string(st), "-", "") {
			return st, nil
		}
	}
	if norm == "" {
		return Random, nil
	}
	return "", fmt.Errorf("unknown selection strategy %q", s)
}
