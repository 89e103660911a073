// Package dataset describes the on-disk layout of a YOLO dataset for yoloset.
package dataset

import (
	"fmt"
	"strings"
)

// Split identifies one partition of the dataset.
type Split string

const (
	Train Split = "train"
	Val   Split = "val"
	Test  Split = "test"
)

// AllSplits returns every split in enumeration order. The order is used as the
// tie-break wherever planners must be reproducible.
func AllSplits() []Split {
	return []Split{Train, Val, Test}
}

// Index returns the position of the split in enumeration order, or -1.
func (s Split) Index() int {
	switch s {
	case Train:
		return 0
	case Val:
		return 1
	case Test:
		return 2
	default:
		return -1
	}
}

// IsValid reports whether s is one of the known splits.
func (s Split) IsValid() bool {
	return s.Index() >= 0
}

func (s Split) String() string {
	return string(s)
}

// ParseSplit converts a user-supplied name into a Split.
// Matching is case-insensitive and accepts "validation" as an alias for val.
func ParseSplit(name string) (Split, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "train", "training":
		return Train, nil
	case "val", "valid", "validation":
		return Val, nil
	case "test":
		return Test, nil
	default:
		return "", fmt.Errorf("unknown split %q (expected train, val or test)", name)
	}
}

// ParseSplits parses a list of split names, dropping duplicates and keeping
// enumeration order. An empty list yields all splits.
func ParseSplits(names []string) ([]Split, error) {
	if len(names) == 0 {
		return AllSplits(), nil
	}
	seen := make(map[Split]bool, len(names))
	for _, name := range names {
		s, err := ParseSplit(name)
		if err != nil {
			return nil, err
		}
		seen[s] = true
	}
	var splits []Split
	for _, s := range AllSplits() {
		if seen[s] {
			splits = append(splits, s)
		}
	}
	return splits, nil
}
