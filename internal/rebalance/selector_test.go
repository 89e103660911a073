package rebalance

import (
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

func TestSelect_SubsetSize(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("selection size is min(count, matching pool)", prop.ForAll(
		func(bg, ct, count, strat int) bool {
			pool := append(meta(dataset.Train, balance.Background, bg, "bg"), meta(dataset.Train, balance.CTOnly, ct, "ct")...)
			pool = append(pool, meta(dataset.Val, balance.Background, 5, "other")...)
			got := NewSeededSelector(1).Select(AllStrategies()[strat], balance.Background, dataset.Train, count, pool, false)
			if len(got) != min(count, bg) {
				return false
			}
			seen := map[string]bool{}
			for _, m := range got {
				if m.Category != balance.Background || m.Split != dataset.Train || seen[m.Path] {
					return false
				}
				seen[m.Path] = true
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(0, 20),
		gen.IntRange(0, 80),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestSelect_FewestDetections(t *testing.T) {
	pool := []ImageMetadata{
		{Path: "d.jpg", Split: dataset.Val, Category: balance.TOnly, DetectionCount: intPtr(3)},
		{Path: "a.jpg", Split: dataset.Val, Category: balance.TOnly, DetectionCount: nil},
		{Path: "c.jpg", Split: dataset.Val, Category: balance.TOnly, DetectionCount: intPtr(1)},
		{Path: "b.jpg", Split: dataset.Val, Category: balance.TOnly, DetectionCount: intPtr(1)},
	}
	got := NewSelector().Select(FewestDetections, balance.TOnly, dataset.Val, 4, pool, false)
	want := []string{"b.jpg", "c.jpg", "d.jpg", "a.jpg"}
	for i, m := range got {
		if m.Path != want[i] {
			t.Fatalf("order = %v, want %v", paths(got), want)
		}
	}
}

func TestSelect_Timestamps(t *testing.T) {
	t1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	pool := []ImageMetadata{
		{Path: "none.jpg", Split: dataset.Test, Category: balance.Background},
		{Path: "late.jpg", Split: dataset.Test, Category: balance.Background, Timestamp: timePtr(t2)},
		{Path: "early.jpg", Split: dataset.Test, Category: balance.Background, Timestamp: timePtr(t1)},
	}

	oldest := paths(NewSelector().Select(OldestFirst, balance.Background, dataset.Test, 3, pool, false))
	if want := []string{"early.jpg", "late.jpg", "none.jpg"}; !equal(oldest, want) {
		t.Errorf("oldest = %v, want %v", oldest, want)
	}
	newest := paths(NewSelector().Select(NewestFirst, balance.Background, dataset.Test, 3, pool, false))
	if want := []string{"late.jpg", "early.jpg", "none.jpg"}; !equal(newest, want) {
		t.Errorf("newest = %v, want %v", newest, want)
	}
}

func TestSelect_RandomIsSeededShuffle(t *testing.T) {
	pool := meta(dataset.Train, balance.Background, 50, "bg")
	a := paths(NewSeededSelector(42).Select(Random, balance.Background, dataset.Train, 50, pool, false))
	b := paths(NewSeededSelector(42).Select(Random, balance.Background, dataset.Train, 50, pool, false))
	if !equal(a, b) {
		t.Error("same seed should give the same order")
	}
	if sort.StringsAreSorted(a) {
		t.Error("random selection kept enumeration order")
	}
}

func TestSelect_PreserveBalance(t *testing.T) {
	pool := append(meta(dataset.Train, balance.CTOnly, 60, "ct"), meta(dataset.Train, balance.TOnly, 30, "t")...)
	pool = append(pool, meta(dataset.Train, balance.MultiplePlayer, 10, "m")...)

	got := NewSeededSelector(7).Select(Random, balance.CTOnly, dataset.Train, 20, pool, true)
	var s balance.BalanceStats
	for _, m := range got {
		s.Add(m.Category, 1)
	}
	if s.CTOnly != 12 || s.TOnly != 6 || s.MultiplePlayer != 2 {
		t.Errorf("stratified selection = %+v, want 12/6/2", s)
	}

	// Without preserve only the requested category is taken.
	got = NewSeededSelector(7).Select(Random, balance.CTOnly, dataset.Train, 20, pool, false)
	for _, m := range got {
		if m.Category != balance.CTOnly {
			t.Fatalf("unexpected category %v", m.Category)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]SelectionStrategy{
		"random":            Random,
		"fewest_detections": FewestDetections,
		"OldestFirst":       OldestFirst,
		"newest-first":      NewestFirst,
		"":                  Random,
	} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("largest"); err == nil {
		t.Error("expected error")
	}
}

func paths(ms []ImageMetadata) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Path
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
