package rebalance

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

// SplitRatios are the desired shares of the whole dataset per split.
type SplitRatios struct {
	Train float64 `json:"train"`
	Val   float64 `json:"val"`
	Test  float64 `json:"test"`
}

// DefaultSplitRatios returns 70/20/10.
func DefaultSplitRatios() SplitRatios {
	return SplitRatios{Train: 0.70, Val: 0.20, Test: 0.10}
}

// Get returns the ratio for split.
func (r SplitRatios) Get(split dataset.Split) float64 {
	switch split {
	case dataset.Train:
		return r.Train
	case dataset.Val:
		return r.Val
	case dataset.Test:
		return r.Test
	default:
		return 0
	}
}

// GlobalRebalanceConfig holds the parameters of one global planning run.
type GlobalRebalanceConfig struct {
	Ratios             balance.TargetRatios
	SplitRatios        SplitRatios
	Strategy           SelectionStrategy
	PreserveCtTBalance bool
	// CtTRatio is the desired CT share among single-team images, used by the
	// split-size mode to pick which team to move first.
	CtTRatio      float64
	Tolerance     float64
	MaxIterations int
	// Splits limits planning to these splits; empty means all.
	Splits []dataset.Split
}

// DefaultGlobalConfig returns the stock settings.
func DefaultGlobalConfig() GlobalRebalanceConfig {
	return GlobalRebalanceConfig{
		Ratios:        balance.DefaultTargetRatios(),
		SplitRatios:   DefaultSplitRatios(),
		Strategy:      Random,
		CtTRatio:      0.5,
		Tolerance:     0.02,
		MaxIterations: 10,
	}
}

func (c GlobalRebalanceConfig) splits() []dataset.Split {
	if len(c.Splits) == 0 {
		return dataset.AllSplits()
	}
	out := append([]dataset.Split(nil), c.Splits...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// MoveGroup is an aggregated plan entry: Count images of Category move from
// From to To. Individual files are chosen at execution time.
type MoveGroup struct {
	From     dataset.Split         `json:"from"`
	To       dataset.Split         `json:"to"`
	Category balance.ImageCategory `json:"category"`
	Count    int                   `json:"count"`
}

// PlanMode names the objective of a global plan.
type PlanMode string

const (
	CategoryMode PlanMode = "category"
	SizeMode     PlanMode = "size"
)

// GlobalRebalancePlan is the output of the global planners.
type GlobalRebalancePlan struct {
	Mode           PlanMode            `json:"mode"`
	Groups         []MoveGroup         `json:"groups"`
	Before         balance.GlobalStats `json:"before"`
	After          balance.GlobalStats `json:"after"`
	TotalMoves     int                 `json:"totalMoves"`
	IterationsUsed int                 `json:"iterationsUsed"`
}

// IsEmpty reports whether the plan moves nothing.
func (p *GlobalRebalancePlan) IsEmpty() bool {
	return p.TotalMoves == 0
}

func (p *GlobalRebalancePlan) add(g MoveGroup) {
	if g.Count <= 0 {
		return
	}
	for i := range p.Groups {
		if p.Groups[i].From == g.From && p.Groups[i].To == g.To && p.Groups[i].Category == g.Category {
			p.Groups[i].Count += g.Count
			p.TotalMoves += g.Count
			return
		}
	}
	p.Groups = append(p.Groups, g)
	p.TotalMoves += g.Count
}

func applyMove(stats *balance.GlobalStats, g MoveGroup) int {
	from := stats.Get(g.From)
	to := stats.Get(g.To)
	n := from.Remove(g.Category, g.Count)
	to.Add(g.Category, n)
	stats.Set(g.From, from)
	stats.Set(g.To, to)
	return n
}

func toleranceCount(tolerance float64, total int) int {
	return int(math.Floor(tolerance * float64(total)))
}

// groupDelta is count - target for one split and group; positive is excess.
func groupDelta(s balance.BalanceStats, g balance.Group, ratios balance.TargetRatios) int {
	return s.GroupCount(g) - ratios.TargetCount(g, s.Total)
}

type candidate struct {
	split dataset.Split
	group balance.Group
	delta int
}

// CalculateGlobalPlan moves category groups between splits until every split
// is within tolerance of the target ratios or MaxIterations is reached. Each
// iteration takes the largest excess (split, group) that has a partner and
// transfers min(excess, deficit) images to the split with the largest deficit
// for the same group. Ties follow split order then group order, so the same
// input always yields the same plan. stats is not modified.
func CalculateGlobalPlan(stats balance.GlobalStats, cfg GlobalRebalanceConfig) *GlobalRebalancePlan {
	plan := &GlobalRebalancePlan{Mode: CategoryMode, Before: stats.Clone()}
	projected := stats.Clone()
	splits := cfg.splits()

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		var excesses []candidate
		for _, split := range splits {
			s := projected.Get(split)
			tol := toleranceCount(cfg.Tolerance, s.Total)
			for _, g := range balance.AllGroups() {
				if d := groupDelta(s, g, cfg.Ratios); d > tol {
					excesses = append(excesses, candidate{split, g, d})
				}
			}
		}
		sort.SliceStable(excesses, func(i, j int) bool { return excesses[i].delta > excesses[j].delta })

		var src, dst candidate
		found := false
		for _, ex := range excesses {
			if d, ok := largestDeficit(projected, splits, ex, cfg); ok {
				src, dst, found = ex, d, true
				break
			}
		}
		if !found {
			break
		}

		n := min(src.delta, -dst.delta, projected.Get(src.split).GroupCount(src.group))
		if n <= 0 {
			break
		}

		moved := 0
		for _, g := range breakdown(projected.Get(src.split), src.group, n) {
			g.From, g.To = src.split, dst.split
			g.Count = applyMove(&projected, g)
			moved += g.Count
			plan.add(g)
		}
		if moved == 0 {
			break
		}
		plan.IterationsUsed++
	}

	plan.After = projected
	log.Info().
		Int("moves", plan.TotalMoves).
		Int("groups", len(plan.Groups)).
		Int("iterations", plan.IterationsUsed).
		Msg("Global rebalance plan")
	return plan
}

func largestDeficit(stats balance.GlobalStats, splits []dataset.Split, ex candidate, cfg GlobalRebalanceConfig) (candidate, bool) {
	var best candidate
	found := false
	for _, split := range splits {
		if split == ex.split {
			continue
		}
		s := stats.Get(split)
		tol := toleranceCount(cfg.Tolerance, s.Total)
		d := groupDelta(s, ex.group, cfg.Ratios)
		if -d > tol && (!found || d < best.delta) {
			best, found = candidate{split, ex.group, d}, true
		}
	}
	return best, found
}

// breakdown turns n images of group g into per-category move groups. Player
// moves follow the source split's CT/T/multiple composition.
func breakdown(src balance.BalanceStats, g balance.Group, n int) []MoveGroup {
	switch g {
	case balance.BackgroundGroup:
		return []MoveGroup{{Category: balance.Background, Count: n}}
	case balance.HardCaseGroup:
		return []MoveGroup{{Category: balance.HardCase, Count: n}}
	}

	cats := balance.PlayerCategories()
	weights := make([]int, len(cats))
	for i, c := range cats {
		weights[i] = src.Count(c)
	}
	var out []MoveGroup
	for i, q := range apportion(n, weights) {
		if q > 0 {
			out = append(out, MoveGroup{Category: cats[i], Count: q})
		}
	}
	return out
}

// CalculateSplitSizePlan moves images so each split's share of the dataset
// approaches SplitRatios within Tolerance. Categories are drawn from the
// source in priority order: the team the destination lacks relative to
// CtTRatio, the other team, multiple players, background, hard cases.
func CalculateSplitSizePlan(stats balance.GlobalStats, cfg GlobalRebalanceConfig) *GlobalRebalancePlan {
	plan := &GlobalRebalancePlan{Mode: SizeMode, Before: stats.Clone()}
	projected := stats.Clone()
	splits := cfg.splits()

	total := 0
	for _, s := range splits {
		total += projected.Get(s).Total
	}
	if total == 0 {
		plan.After = projected
		return plan
	}

	targets := splitTargets(total, splits, cfg.SplitRatios)
	tol := toleranceCount(cfg.Tolerance, total)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		var from, to dataset.Split
		var fromExcess, toDeficit int
		for _, s := range splits {
			d := projected.Get(s).Total - targets[s]
			if d > tol && d > fromExcess {
				from, fromExcess = s, d
			}
			if -d > tol && -d > toDeficit {
				to, toDeficit = s, -d
			}
		}
		if fromExcess == 0 || toDeficit == 0 {
			break
		}

		remaining := min(fromExcess, toDeficit)
		moved := 0
		for _, c := range sizePriority(projected.Get(to), cfg.CtTRatio) {
			if remaining == 0 {
				break
			}
			n := applyMove(&projected, MoveGroup{From: from, To: to, Category: c, Count: remaining})
			plan.add(MoveGroup{From: from, To: to, Category: c, Count: n})
			remaining -= n
			moved += n
		}
		if moved == 0 {
			break
		}
		plan.IterationsUsed++
	}

	plan.After = projected
	log.Info().
		Int("moves", plan.TotalMoves).
		Int("groups", len(plan.Groups)).
		Int("iterations", plan.IterationsUsed).
		Msg("Split size rebalance plan")
	return plan
}

// splitTargets rounds each split's share; the last split takes the remainder.
func splitTargets(total int, splits []dataset.Split, ratios SplitRatios) map[dataset.Split]int {
	targets := make(map[dataset.Split]int, len(splits))
	weight := 0.0
	for _, s := range splits {
		weight += ratios.Get(s)
	}
	assigned := 0
	for i, s := range splits {
		if i == len(splits)-1 {
			targets[s] = total - assigned
			break
		}
		share := ratios.Get(s)
		if weight > 0 {
			share /= weight
		}
		targets[s] = int(math.Round(share * float64(total)))
		assigned += targets[s]
	}
	return targets
}

func sizePriority(dest balance.BalanceStats, ctTRatio float64) []balance.ImageCategory {
	preferCT := true
	if players := dest.CTOnly + dest.TOnly; players > 0 {
		preferCT = float64(dest.CTOnly)/float64(players) < ctTRatio
	}
	if preferCT {
		return []balance.ImageCategory{balance.CTOnly, balance.TOnly, balance.MultiplePlayer, balance.Background, balance.HardCase}
	}
	return []balance.ImageCategory{balance.TOnly, balance.CTOnly, balance.MultiplePlayer, balance.Background, balance.HardCase}
}

// ResolveGroups picks concrete images for each move group. Images already
// chosen for an earlier group are not reused. Groups whose pool runs short
// resolve to fewer actions and are logged.
func ResolveGroups(plan *GlobalRebalancePlan, pools map[dataset.Split][]ImageMetadata, sel *Selector, strategy SelectionStrategy) []MoveAction {
	used := make(map[string]bool)
	var actions []MoveAction
	for _, g := range plan.Groups {
		var pool []ImageMetadata
		for _, m := range pools[g.From] {
			if !used[m.Path] {
				pool = append(pool, m)
			}
		}
		picked := sel.Select(strategy, g.Category, g.From, g.Count, pool, false)
		if len(picked) < g.Count {
			log.Warn().
				Str("category", g.Category.String()).
				Str("from", g.From.String()).
				Str("to", g.To.String()).
				Int("requested", g.Count).
				Int("resolved", len(picked)).
				Msg("Move group resolved short")
		}
		for _, m := range picked {
			used[m.Path] = true
			actions = append(actions, MoveAction{
				ImagePath: m.Path,
				LabelPath: m.LabelPath,
				Category:  m.Category,
				From:      g.From,
				To:        g.To,
			})
		}
	}
	return actions
}
