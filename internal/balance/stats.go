package balance

import (
	"math"

	"yoloset/internal/dataset"
)

// BalanceStats counts the images of one split per category.
// Total always equals the sum of the five category counts; percentages are
// derived on demand.
type BalanceStats struct {
	Total          int `json:"totalImages"`
	CTOnly         int `json:"ctOnly"`
	TOnly          int `json:"tOnly"`
	MultiplePlayer int `json:"multiplePlayer"`
	Background     int `json:"background"`
	HardCase       int `json:"hardCase"`
}

// Add records n images of category c.
func (s *BalanceStats) Add(c ImageCategory, n int) {
	switch c {
	case CTOnly:
		s.CTOnly += n
	case TOnly:
		s.TOnly += n
	case MultiplePlayer:
		s.MultiplePlayer += n
	case Background:
		s.Background += n
	case HardCase:
		s.HardCase += n
	default:
		return
	}
	s.Total += n
}

// Remove takes up to n images of category c away and returns how many were
// actually removed. Counts never go negative.
func (s *BalanceStats) Remove(c ImageCategory, n int) int {
	if n > s.Count(c) {
		n = s.Count(c)
	}
	if n <= 0 {
		return 0
	}
	s.Add(c, -n)
	return n
}

// Count returns the number of images in category c.
func (s BalanceStats) Count(c ImageCategory) int {
	switch c {
	case CTOnly:
		return s.CTOnly
	case TOnly:
		return s.TOnly
	case MultiplePlayer:
		return s.MultiplePlayer
	case Background:
		return s.Background
	case HardCase:
		return s.HardCase
	default:
		return 0
	}
}

// Percentage returns the share of category c in 0..100, or 0 for an empty split.
func (s BalanceStats) Percentage(c ImageCategory) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Count(c)) / float64(s.Total) * 100
}

// TotalPlayers returns CT-only + T-only + multiple-player images.
func (s BalanceStats) TotalPlayers() int {
	return s.CTOnly + s.TOnly + s.MultiplePlayer
}

// PlayerPercentage returns the share of player images in 0..100.
func (s BalanceStats) PlayerPercentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.TotalPlayers()) / float64(s.Total) * 100
}

// GroupCount returns the number of images in group g.
func (s BalanceStats) GroupCount(g Group) int {
	switch g {
	case PlayerGroup:
		return s.TotalPlayers()
	case BackgroundGroup:
		return s.Background
	case HardCaseGroup:
		return s.HardCase
	default:
		return 0
	}
}

// Merge adds the counts of o into s.
func (s *BalanceStats) Merge(o BalanceStats) {
	for _, c := range AllCategories() {
		s.Add(c, o.Count(c))
	}
}

// TargetRatios are the desired fractions of a split per category group. They
// are meant to sum to 1.0 but that is only checked by configuration
// validation.
type TargetRatios struct {
	Player     float64 `json:"player"`
	Background float64 `json:"background"`
	HardCase   float64 `json:"hardCase"`
}

// DefaultTargetRatios returns 85% players, 10% background, 5% hard cases.
func DefaultTargetRatios() TargetRatios {
	return TargetRatios{Player: 0.85, Background: 0.10, HardCase: 0.05}
}

// Ratio returns the target fraction for group g.
func (r TargetRatios) Ratio(g Group) float64 {
	switch g {
	case PlayerGroup:
		return r.Player
	case BackgroundGroup:
		return r.Background
	case HardCaseGroup:
		return r.HardCase
	default:
		return 0
	}
}

// Sum returns the total of the three ratios.
func (r TargetRatios) Sum() float64 {
	return r.Player + r.Background + r.HardCase
}

// TargetCount returns round(ratio(g) * total).
func (r TargetRatios) TargetCount(g Group, total int) int {
	return int(math.Round(r.Ratio(g) * float64(total)))
}

// ExcessCount returns how many images of category's group exceed the target
// in stats. Negative values are a deficit. Player categories are measured
// against the aggregate player count.
func ExcessCount(stats BalanceStats, category ImageCategory, ratios TargetRatios) int {
	if stats.Total == 0 {
		return 0
	}
	g := GroupOf(category)
	return stats.GroupCount(g) - ratios.TargetCount(g, stats.Total)
}

// GlobalStats holds one BalanceStats per split.
type GlobalStats struct {
	Splits map[dataset.Split]BalanceStats `json:"splits"`
}

// NewGlobalStats returns an empty GlobalStats with a zero entry for each split.
func NewGlobalStats() GlobalStats {
	g := GlobalStats{Splits: make(map[dataset.Split]BalanceStats, 3)}
	for _, s := range dataset.AllSplits() {
		g.Splits[s] = BalanceStats{}
	}
	return g
}

// Get returns the stats of split, zero if it was never analyzed.
func (g GlobalStats) Get(split dataset.Split) BalanceStats {
	return g.Splits[split]
}

// Set replaces the stats of split.
func (g *GlobalStats) Set(split dataset.Split, stats BalanceStats) {
	if g.Splits == nil {
		g.Splits = make(map[dataset.Split]BalanceStats, 3)
	}
	g.Splits[split] = stats
}

// Clone returns a deep copy.
func (g GlobalStats) Clone() GlobalStats {
	out := GlobalStats{Splits: make(map[dataset.Split]BalanceStats, len(g.Splits))}
	for k, v := range g.Splits {
		out.Splits[k] = v
	}
	return out
}

// Total returns the number of images across every split.
func (g GlobalStats) Total() int {
	total := 0
	for _, s := range g.Splits {
		total += s.Total
	}
	return total
}

// Combined returns the per-category sum over every split.
func (g GlobalStats) Combined() BalanceStats {
	var out BalanceStats
	for _, s := range dataset.AllSplits() {
		out.Merge(g.Splits[s])
	}
	return out
}

// IsBalanced reports whether every non-empty split has its background and
// player shares within tolerance of the targets.
func (g GlobalStats) IsBalanced(ratios TargetRatios, tolerance float64) bool {
	for _, split := range dataset.AllSplits() {
		stats := g.Splits[split]
		if stats.Total == 0 {
			continue
		}
		bgDiff := math.Abs(stats.Percentage(Background)/100 - ratios.Background)
		playerDiff := math.Abs(stats.PlayerPercentage()/100 - ratios.Player)
		if bgDiff > tolerance || playerDiff > tolerance {
			return false
		}
	}
	return true
}
