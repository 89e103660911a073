package balance

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"yoloset/internal/dataset"
	"yoloset/internal/label"
	"yoloset/internal/task"
)

// DefaultAnalysisBatch is how many images are categorized between progress
// messages.
const DefaultAnalysisBatch = 10

// LabelSource resolves the label of an image. It returns label.ErrNotFound
// when the image has no label file.
type LabelSource interface {
	Lookup(imagePath string) (*label.Info, error)
}

// ProgressKind identifies a balance analysis message.
type ProgressKind string

const (
	ProgressUpdate    ProgressKind = "PROGRESS"
	ProgressComplete  ProgressKind = "COMPLETE"
	ProgressCancelled ProgressKind = "CANCELLED"
)

// Progress is streamed by AnalyzeAsync. Stats is partial for PROGRESS and
// CANCELLED messages and final for COMPLETE.
type Progress struct {
	Kind    ProgressKind
	Current int
	Total   int
	Stats   BalanceStats
}

// Analyzer categorizes every image of a split and aggregates BalanceStats.
type Analyzer struct {
	Categorizer Categorizer
	Labels      LabelSource
	BatchSize   int
}

// NewAnalyzer returns an Analyzer reading labels from disk.
func NewAnalyzer(c Categorizer) *Analyzer {
	return &Analyzer{Categorizer: c, Labels: label.FileLookup{}, BatchSize: DefaultAnalysisBatch}
}

// CategorizeImage looks up the label of imagePath and categorizes it. Missing
// or unreadable labels yield Background.
func (a *Analyzer) CategorizeImage(imagePath string) ImageCategory {
	info, err := a.lookup(imagePath)
	if err != nil {
		return Background
	}
	return a.Categorizer.Categorize(info)
}

func (a *Analyzer) lookup(imagePath string) (*label.Info, error) {
	info, err := a.Labels.Lookup(imagePath)
	if err != nil {
		if !errors.Is(err, label.ErrNotFound) {
			log.Warn().Err(err).Str("image", imagePath).Msg("Unreadable label, treating image as background")
		}
		return nil, err
	}
	if info.Skipped > 0 {
		log.Debug().Int("skipped", info.Skipped).Str("image", imagePath).Msg("Skipped malformed label lines")
	}
	return info, nil
}

// Analyze categorizes paths synchronously.
func (a *Analyzer) Analyze(paths []string) BalanceStats {
	stats, _ := a.run(paths, nil, nil)
	return stats
}

// AnalyzeAsync categorizes paths in a background goroutine. The handle
// receives PROGRESS messages every BatchSize images and on the last image,
// then exactly one COMPLETE or CANCELLED message.
func (a *Analyzer) AnalyzeAsync(ctx context.Context, paths []string) *task.Handle[Progress] {
	return task.Start(ctx, 0, func(e task.Emitter[Progress]) {
		stats, cancelled := a.run(paths, e.Cancelled, func(p Progress) { e.Emit(p) })
		if cancelled {
			e.Emit(Progress{Kind: ProgressCancelled, Total: len(paths), Stats: stats, Current: stats.Total})
			return
		}
		e.Emit(Progress{Kind: ProgressComplete, Current: len(paths), Total: len(paths), Stats: stats})
	})
}

func (a *Analyzer) run(paths []string, cancelled func() bool, emit func(Progress)) (BalanceStats, bool) {
	var stats BalanceStats
	batch := a.BatchSize
	if batch <= 0 {
		batch = DefaultAnalysisBatch
	}
	total := len(paths)

	for i, path := range paths {
		if cancelled != nil && cancelled() {
			log.Warn().Int("at", i+1).Int("total", total).Msg("Balance analysis cancelled")
			return stats, true
		}

		stats.Add(a.CategorizeImage(path), 1)

		if emit != nil && ((i+1)%batch == 0 || i == total-1) {
			emit(Progress{Kind: ProgressUpdate, Current: i + 1, Total: total, Stats: stats})
		}
	}

	log.Info().
		Int("total", stats.Total).
		Int("players", stats.TotalPlayers()).
		Int("background", stats.Background).
		Int("hardCases", stats.HardCase).
		Msg("Analysis complete")
	return stats, false
}

// AnalyzeSplit scans the images of split and categorizes them. An unreadable
// images directory is logged and counts as an empty split.
func (a *Analyzer) AnalyzeSplit(layout dataset.Layout, split dataset.Split) BalanceStats {
	return a.Analyze(a.splitPaths(layout, split))
}

// AnalyzeSplitAsync is AnalyzeSplit on a background goroutine.
func (a *Analyzer) AnalyzeSplitAsync(ctx context.Context, layout dataset.Layout, split dataset.Split) *task.Handle[Progress] {
	return a.AnalyzeAsync(ctx, a.splitPaths(layout, split))
}

func (a *Analyzer) splitPaths(layout dataset.Layout, split dataset.Split) []string {
	log.Info().Str("split", split.String()).Str("images", layout.ImagesDir(split)).Msg("Analyzing balance")
	paths, err := layout.ImagePaths(split)
	if err != nil {
		log.Warn().Err(err).Str("split", split.String()).Msg("Failed to read images directory")
		return nil
	}
	return paths
}

// AnalyzeAll analyzes splits concurrently, one goroutine per split.
func (a *Analyzer) AnalyzeAll(ctx context.Context, layout dataset.Layout, splits []dataset.Split) (GlobalStats, error) {
	if len(splits) == 0 {
		splits = dataset.AllSplits()
	}
	results := make([]BalanceStats, len(splits))

	g, ctx := errgroup.WithContext(ctx)
	for i, split := range splits {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.AnalyzeSplit(layout, split)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GlobalStats{}, err
	}

	global := NewGlobalStats()
	for i, split := range splits {
		global.Set(split, results[i])
	}
	return global, nil
}
