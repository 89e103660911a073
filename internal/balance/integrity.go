package balance

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"yoloset/internal/dataset"
	"yoloset/internal/task"
)

// DefaultIntegrityBatch is how many files are checked between progress messages.
const DefaultIntegrityBatch = 50

// IssueType identifies an integrity problem.
type IssueType string

const (
	ImageWithoutLabel IssueType = "IMAGE_WITHOUT_LABEL"
	LabelWithoutImage IssueType = "LABEL_WITHOUT_IMAGE"
)

// IntegrityIssue is one orphaned file.
type IntegrityIssue struct {
	Type IssueType `json:"type"`
	Path string    `json:"path"`
	// ExpectedCounterpart is where the missing partner file would live.
	ExpectedCounterpart string `json:"expectedCounterpart"`
}

// IntegrityStats lists the orphaned files of one split.
type IntegrityStats struct {
	ImagesWithoutLabels []IntegrityIssue `json:"imagesWithoutLabels"`
	LabelsWithoutImages []IntegrityIssue `json:"labelsWithoutImages"`
}

// TotalIssues returns the number of orphaned files.
func (s IntegrityStats) TotalIssues() int {
	return len(s.ImagesWithoutLabels) + len(s.LabelsWithoutImages)
}

// HasIssues reports whether any orphan was found.
func (s IntegrityStats) HasIssues() bool {
	return s.TotalIssues() > 0
}

func (s IntegrityStats) clone() IntegrityStats {
	return IntegrityStats{
		ImagesWithoutLabels: append([]IntegrityIssue(nil), s.ImagesWithoutLabels...),
		LabelsWithoutImages: append([]IntegrityIssue(nil), s.LabelsWithoutImages...),
	}
}

// IntegrityProgress is streamed by AnalyzeIntegrityAsync.
type IntegrityProgress struct {
	Kind    ProgressKind
	Current int
	Total   int
	Stats   IntegrityStats
}

// AnalyzeIntegrity finds images without labels and labels without images in
// split. Missing directories count as empty.
func AnalyzeIntegrity(layout dataset.Layout, split dataset.Split) IntegrityStats {
	stats, _ := runIntegrity(layout, split, 0, nil, nil)
	return stats
}

// AnalyzeIntegrityAsync runs AnalyzeIntegrity on a background goroutine,
// emitting progress every batch files.
func AnalyzeIntegrityAsync(ctx context.Context, layout dataset.Layout, split dataset.Split, batch int) *task.Handle[IntegrityProgress] {
	return task.Start(ctx, 0, func(e task.Emitter[IntegrityProgress]) {
		stats, cancelled := runIntegrity(layout, split, batch, e.Cancelled, func(p IntegrityProgress) { e.Emit(p) })
		kind := ProgressComplete
		if cancelled {
			kind = ProgressCancelled
		}
		e.Emit(IntegrityProgress{Kind: kind, Stats: stats})
	})
}

func runIntegrity(layout dataset.Layout, split dataset.Split, batch int, cancelled func() bool, emit func(IntegrityProgress)) (IntegrityStats, bool) {
	if batch <= 0 {
		batch = DefaultIntegrityBatch
	}
	var stats IntegrityStats

	images, err := layout.ScanImages(split)
	if err != nil && !dataset.IsNotFound(err) {
		log.Warn().Err(err).Str("split", split.String()).Msg("Failed to read images directory")
	}
	labels, err := layout.ScanLabels(split)
	if err != nil && !dataset.IsNotFound(err) {
		log.Warn().Err(err).Str("split", split.String()).Msg("Failed to read labels directory")
	}

	imageStems := make(map[string]bool, len(images))
	for _, img := range images {
		imageStems[dataset.Stem(img.Name)] = true
	}
	labelStems := make(map[string]bool, len(labels))
	for _, lbl := range labels {
		labelStems[dataset.Stem(lbl.Name)] = true
	}

	total := len(images) + len(labels)
	processed := 0
	step := func() {
		processed++
		if emit != nil && (processed%batch == 0 || processed == total) {
			emit(IntegrityProgress{Kind: ProgressUpdate, Current: processed, Total: total, Stats: stats.clone()})
		}
	}

	for _, img := range images {
		if cancelled != nil && cancelled() {
			log.Warn().Str("split", split.String()).Msg("Integrity analysis cancelled")
			return stats, true
		}
		stem := dataset.Stem(img.Name)
		if !labelStems[stem] {
			stats.ImagesWithoutLabels = append(stats.ImagesWithoutLabels, IntegrityIssue{
				Type:                ImageWithoutLabel,
				Path:                img.FullPath,
				ExpectedCounterpart: filepath.Join(layout.LabelsDir(split), stem+".txt"),
			})
		}
		step()
	}

	for _, lbl := range labels {
		if cancelled != nil && cancelled() {
			log.Warn().Str("split", split.String()).Msg("Integrity analysis cancelled")
			return stats, true
		}
		stem := dataset.Stem(lbl.Name)
		if !imageStems[stem] {
			ext := ".png"
			if len(layout.Extensions) > 0 {
				ext = layout.Extensions[0]
			}
			stats.LabelsWithoutImages = append(stats.LabelsWithoutImages, IntegrityIssue{
				Type:                LabelWithoutImage,
				Path:                lbl.FullPath,
				ExpectedCounterpart: filepath.Join(layout.ImagesDir(split), stem+ext),
			})
		}
		step()
	}

	log.Info().
		Str("split", split.String()).
		Int("imagesWithoutLabels", len(stats.ImagesWithoutLabels)).
		Int("labelsWithoutImages", len(stats.LabelsWithoutImages)).
		Msg("Integrity analysis complete")
	return stats, false
}
