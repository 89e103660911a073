package rebalance

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

func TestCalculatePlan_ExcessBackground(t *testing.T) {
	from := balance.BalanceStats{Total: 1000, Background: 900, CTOnly: 100}
	to := balance.BalanceStats{Total: 200, CTOnly: 200}
	pool := append(meta(dataset.Train, balance.Background, 900, "bg"), meta(dataset.Train, balance.CTOnly, 100, "ct")...)

	cfg := RebalanceConfig{
		Ratios:   balance.DefaultTargetRatios(),
		Strategy: Random,
		Category: balance.Background,
		From:     dataset.Train,
		To:       dataset.Val,
	}
	plan, err := CalculatePlan(from, to, pool, cfg, NewSeededSelector(3))
	if err != nil {
		t.Fatalf("CalculatePlan: %v", err)
	}
	if plan.Excess != 800 || plan.CountRequested != 800 || plan.Len() != 800 {
		t.Fatalf("excess=%d requested=%d len=%d, want 800", plan.Excess, plan.CountRequested, plan.Len())
	}
	for _, a := range plan.Actions {
		if a.Category != balance.Background || a.From != dataset.Train || a.To != dataset.Val {
			t.Fatalf("unexpected action %+v", a)
		}
	}
	if plan.FromAfter.Background != 100 || plan.FromAfter.Total != 200 {
		t.Errorf("projected source = %+v", plan.FromAfter)
	}
	if plan.ToAfter.Background != 800 || plan.ToAfter.Total != 1000 {
		t.Errorf("projected destination = %+v", plan.ToAfter)
	}
	if plan.FromBefore != from || plan.ToBefore != to {
		t.Error("before snapshots changed")
	}
}

func TestCalculatePlan_NoExcess(t *testing.T) {
	from := balance.BalanceStats{Total: 100, CTOnly: 85, Background: 10, HardCase: 5}
	pool := meta(dataset.Train, balance.Background, 10, "bg")
	plan, err := CalculatePlan(from, balance.BalanceStats{}, pool, RebalanceConfig{
		Ratios:   balance.DefaultTargetRatios(),
		Category: balance.Background,
		From:     dataset.Train,
		To:       dataset.Test,
	}, NewSelector())
	if err != nil {
		t.Fatal(err)
	}
	if !plan.IsEmpty() || plan.CountRequested != 0 {
		t.Errorf("expected empty plan, got %d actions", plan.Len())
	}
}

func TestCalculatePlan_LimitedByAvailable(t *testing.T) {
	// Stats say 900 background but only 50 are in the pool.
	from := balance.BalanceStats{Total: 1000, Background: 900, CTOnly: 100}
	pool := meta(dataset.Train, balance.Background, 50, "bg")
	plan, err := CalculatePlan(from, balance.BalanceStats{}, pool, RebalanceConfig{
		Ratios:   balance.DefaultTargetRatios(),
		Category: balance.Background,
		From:     dataset.Train,
		To:       dataset.Val,
	}, NewSelector())
	if err != nil {
		t.Fatal(err)
	}
	if plan.Len() != 50 || plan.Excess != 800 {
		t.Errorf("len=%d excess=%d", plan.Len(), plan.Excess)
	}
}

func TestCalculatePlan_SameSplit(t *testing.T) {
	_, err := CalculatePlan(balance.BalanceStats{}, balance.BalanceStats{}, nil, RebalanceConfig{
		Category: balance.Background, From: dataset.Val, To: dataset.Val,
	}, NewSelector())
	if err == nil {
		t.Error("expected error for identical splits")
	}
}

func TestCalculatePlan_LengthBound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("plan length never exceeds the candidate count and is empty without excess", prop.ForAll(
		func(ct, tOnly, multi, bg, hc, catIdx int, bgRatio float64, preserve bool) bool {
			pool := meta(dataset.Train, balance.CTOnly, ct, "ct")
			pool = append(pool, meta(dataset.Train, balance.TOnly, tOnly, "t")...)
			pool = append(pool, meta(dataset.Train, balance.MultiplePlayer, multi, "m")...)
			pool = append(pool, meta(dataset.Train, balance.Background, bg, "bg")...)
			pool = append(pool, meta(dataset.Train, balance.HardCase, hc, "hc")...)
			var stats balance.BalanceStats
			for _, m := range pool {
				stats.Add(m.Category, 1)
			}

			category := balance.AllCategories()[catIdx]
			ratios := balance.TargetRatios{Player: 1 - bgRatio - 0.05, Background: bgRatio, HardCase: 0.05}
			plan, err := CalculatePlan(stats, balance.BalanceStats{}, pool, RebalanceConfig{
				Ratios:             ratios,
				Strategy:           FewestDetections,
				PreserveCtTBalance: preserve,
				Category:           category,
				From:               dataset.Train,
				To:                 dataset.Val,
			}, NewSeededSelector(9))
			if err != nil {
				return false
			}
			// With preserve, a player category stands for the whole player group.
			bound := stats.Count(category)
			if preserve && category.IsPlayer() {
				bound = stats.GroupCount(balance.PlayerGroup)
			}
			if plan.Len() > bound {
				return false
			}
			if balance.ExcessCount(stats, category, ratios) <= 0 && !plan.IsEmpty() {
				return false
			}
			return plan.FromAfter.Total == stats.Total-plan.Len()
		},
		gen.IntRange(0, 40),
		gen.IntRange(0, 40),
		gen.IntRange(0, 20),
		gen.IntRange(0, 80),
		gen.IntRange(0, 10),
		gen.IntRange(0, 4),
		gen.Float64Range(0.0, 0.5),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestBestDestination(t *testing.T) {
	all := balance.NewGlobalStats()
	all.Set(dataset.Train, balance.BalanceStats{Total: 100, Background: 50, CTOnly: 50})
	all.Set(dataset.Val, balance.BalanceStats{Total: 100, CTOnly: 100})
	all.Set(dataset.Test, balance.BalanceStats{Total: 50, CTOnly: 50})

	dest, needed, ok := BestDestination(all, dataset.Train, balance.Background, balance.DefaultTargetRatios())
	if !ok || dest != dataset.Val || needed != 10 {
		t.Errorf("BestDestination = %s, %d, %v; want val, 10", dest, needed, ok)
	}

	all.Set(dataset.Val, balance.BalanceStats{Total: 50, CTOnly: 50})
	dest, _, _ = BestDestination(all, dataset.Train, balance.Background, balance.DefaultTargetRatios())
	if dest != dataset.Val {
		t.Errorf("tie should go to val, got %s", dest)
	}

	all.Set(dataset.Val, balance.BalanceStats{Total: 10, Background: 10})
	all.Set(dataset.Test, balance.BalanceStats{Total: 10, Background: 10})
	if _, _, ok := BestDestination(all, dataset.Train, balance.Background, balance.DefaultTargetRatios()); ok {
		t.Error("no split lacks background")
	}
}
