package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

// StatusResult is a read-only snapshot of the dataset.
type StatusResult struct {
	Splits          []dataset.Split                          `json:"splits"`
	Stats           balance.GlobalStats                      `json:"stats"`
	Integrity       map[dataset.Split]balance.IntegrityStats `json:"integrity"`
	Recommendations map[dataset.Split][]string               `json:"recommendations"`
	Balanced        bool                                     `json:"balanced"`
}

// Status analyzes balance and integrity of the configured splits
// concurrently without modifying anything.
func (o *Orchestrator) Status(ctx context.Context) (*StatusResult, error) {
	splits, err := o.config.Splits()
	if err != nil {
		return nil, err
	}

	integrity := make([]balance.IntegrityStats, len(splits))
	var stats balance.GlobalStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = o.analyzer.AnalyzeAll(gctx, o.layout, splits)
		return err
	})
	for i, split := range splits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			integrity[i] = balance.AnalyzeIntegrity(o.layout, split)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &StatusResult{
		Splits:          splits,
		Stats:           stats,
		Integrity:       make(map[dataset.Split]balance.IntegrityStats, len(splits)),
		Recommendations: make(map[dataset.Split][]string, len(splits)),
		Balanced:        stats.IsBalanced(o.config.TargetRatios, o.config.Global.Tolerance),
	}
	for i, split := range splits {
		result.Integrity[split] = integrity[i]
		result.Recommendations[split] = balance.Recommendations(stats.Get(split), o.config.TargetRatios)
	}
	return result, nil
}
