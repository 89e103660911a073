package rebalance

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
	"yoloset/internal/dateparser"
	"yoloset/internal/label"
)

// ImageMetadata is a snapshot of one image used while planning. It goes stale
// as soon as the dataset changes on disk.
type ImageMetadata struct {
	Path      string
	LabelPath string // empty when the image has no label file
	Category  balance.ImageCategory
	Split     dataset.Split
	// DetectionCount is nil when the label could not be read.
	DetectionCount *int
	// Timestamp comes from the filename, or the label header as a fallback.
	Timestamp *time.Time
}

// CollectMetadata builds ImageMetadata for every image of split.
func CollectMetadata(a *balance.Analyzer, layout dataset.Layout, split dataset.Split) ([]ImageMetadata, error) {
	paths, err := layout.ImagePaths(split)
	if err != nil {
		if dataset.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]ImageMetadata, 0, len(paths))
	for _, p := range paths {
		out = append(out, describe(a, p, split))
	}
	return out, nil
}

func describe(a *balance.Analyzer, path string, split dataset.Split) ImageMetadata {
	m := ImageMetadata{Path: path, Split: split, Category: balance.Background}

	info, err := a.Labels.Lookup(path)
	switch {
	case err == nil:
		m.LabelPath = dataset.LabelPathFor(path)
		n := len(info.Detections)
		m.DetectionCount = &n
		m.Category = a.Categorizer.Categorize(info)
	case errors.Is(err, label.ErrNotFound):
		zero := 0
		m.DetectionCount = &zero
	default:
		// The label exists but is unreadable; it still travels with the image.
		log.Warn().Err(err).Str("image", path).Msg("Unreadable label while collecting metadata")
		m.LabelPath = dataset.LabelPathFor(path)
	}

	if ts, err := dateparser.ExtractTimestamp(path); err == nil {
		m.Timestamp = &ts
	} else if info != nil && info.Time != nil {
		ts := *info.Time
		m.Timestamp = &ts
	}
	return m
}

// CollectAll gathers metadata for several splits concurrently.
func CollectAll(ctx context.Context, a *balance.Analyzer, layout dataset.Layout, splits []dataset.Split) (map[dataset.Split][]ImageMetadata, error) {
	results := make([][]ImageMetadata, len(splits))
	g, ctx := errgroup.WithContext(ctx)
	for i, split := range splits {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			md, err := CollectMetadata(a, layout, split)
			if err != nil {
				return err
			}
			results[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pools := make(map[dataset.Split][]ImageMetadata, len(splits))
	for i, split := range splits {
		pools[split] = results[i]
	}
	return pools, nil
}
