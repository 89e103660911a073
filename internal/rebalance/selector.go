package rebalance

import (
	"math/rand/v2"
	"sort"
	"time"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

// Selector orders and picks candidate images according to a strategy.
type Selector struct {
	rng *rand.Rand
}

// NewSelector returns a Selector whose Random strategy is seeded from the
// clock.
func NewSelector() *Selector {
	seed := uint64(time.Now().UnixNano())
	return NewSeededSelector(seed)
}

// NewSeededSelector returns a Selector with a fixed seed, for reproducible
// runs.
func NewSeededSelector(seed uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Select returns at most count images of category from split. When preserve
// is set and category is a player category, all player categories are
// candidates and the picked subset keeps the source's CT/T/multiple mix.
func (s *Selector) Select(strategy SelectionStrategy, category balance.ImageCategory, split dataset.Split,
	count int, pool []ImageMetadata, preserve bool) []ImageMetadata {
	if count <= 0 {
		return nil
	}

	if preserve && category.IsPlayer() {
		return s.selectStratified(strategy, split, count, pool)
	}

	candidates := filter(pool, split, category)
	s.order(strategy, candidates)
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

func (s *Selector) selectStratified(strategy SelectionStrategy, split dataset.Split, count int, pool []ImageMetadata) []ImageMetadata {
	cats := balance.PlayerCategories()
	strata := make([][]ImageMetadata, len(cats))
	weights := make([]int, len(cats))
	for i, c := range cats {
		strata[i] = filter(pool, split, c)
		weights[i] = len(strata[i])
	}

	quotas := apportion(count, weights)
	var out []ImageMetadata
	for i, stratum := range strata {
		s.order(strategy, stratum)
		out = append(out, stratum[:quotas[i]]...)
	}
	return out
}

// Available counts the images in pool that Select could return.
func Available(category balance.ImageCategory, split dataset.Split, pool []ImageMetadata, preserve bool) int {
	n := 0
	for _, m := range pool {
		if m.Split != split {
			continue
		}
		if m.Category == category || (preserve && category.IsPlayer() && m.Category.IsPlayer()) {
			n++
		}
	}
	return n
}

func filter(pool []ImageMetadata, split dataset.Split, category balance.ImageCategory) []ImageMetadata {
	var out []ImageMetadata
	for _, m := range pool {
		if m.Split == split && m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// order sorts items in place. Candidates are first put in path order so the
// deterministic strategies do not depend on how the pool was built.
func (s *Selector) order(strategy SelectionStrategy, items []ImageMetadata) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Path < items[j].Path })

	switch strategy {
	case FewestDetections:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].DetectionCount, items[j].DetectionCount
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return *a < *b
		})
	case OldestFirst, NewestFirst:
		newest := strategy == NewestFirst
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].Timestamp, items[j].Timestamp
			if a == nil || b == nil {
				// Unparsable timestamps sort last in both directions.
				return a != nil && b == nil
			}
			if newest {
				return a.After(*b)
			}
			return a.Before(*b)
		})
	default:
		s.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}
}
