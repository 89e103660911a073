package balance

import (
	"fmt"
	"math"

	"yoloset/internal/label"
)

// ClassMapping is the single canonical assignment of YOLO class ids to teams.
type ClassMapping struct {
	T  int `json:"tClassId"`
	CT int `json:"ctClassId"`
}

// DefaultClassMapping maps class 0 to T and class 1 to CT.
func DefaultClassMapping() ClassMapping {
	return ClassMapping{T: 0, CT: 1}
}

// Validate rejects mappings that assign both teams the same id.
func (m ClassMapping) Validate() error {
	if m.T == m.CT {
		return fmt.Errorf("class mapping assigns id %d to both T and CT", m.T)
	}
	if m.T < 0 || m.CT < 0 {
		return fmt.Errorf("class ids must be non-negative (t=%d, ct=%d)", m.T, m.CT)
	}
	return nil
}

// HardCaseRule holds the thresholds that promote an image to HardCase.
// The zero value disables both rules.
type HardCaseRule struct {
	// MinOverlappingPairs is the number of detection pairs whose IoU reaches
	// OverlapIoU needed to flag the image. Zero disables the overlap rule.
	MinOverlappingPairs int     `json:"minOverlappingPairs"`
	OverlapIoU          float64 `json:"overlapIoU"`
	// UnknownClassIsHardCase flags images with class ids outside the mapping.
	UnknownClassIsHardCase bool `json:"unknownClassIsHardCase"`
}

// Categorizer classifies an image's detections. It has no side effects.
type Categorizer struct {
	Classes  ClassMapping
	HardCase HardCaseRule
}

// NewCategorizer returns a Categorizer with the default mapping and hard-case
// rules disabled.
func NewCategorizer() Categorizer {
	return Categorizer{Classes: DefaultClassMapping()}
}

// Categorize returns the category for info. A nil label or one without
// detections is Background.
func (c Categorizer) Categorize(info *label.Info) ImageCategory {
	if info == nil || len(info.Detections) == 0 {
		return Background
	}

	var t, ct, unknown int
	for _, d := range info.Detections {
		switch d.ClassID {
		case c.Classes.T:
			t++
		case c.Classes.CT:
			ct++
		default:
			unknown++
		}
	}

	if c.HardCase.UnknownClassIsHardCase && unknown > 0 {
		return HardCase
	}
	if c.HardCase.MinOverlappingPairs > 0 &&
		overlappingPairs(info.Detections, c.HardCase.OverlapIoU) >= c.HardCase.MinOverlappingPairs {
		return HardCase
	}

	switch {
	case t > 0 && ct > 0:
		return MultiplePlayer
	case t > 0:
		return TOnly
	case ct > 0:
		return CTOnly
	default:
		return Background
	}
}

func overlappingPairs(dets []label.Detection, threshold float64) int {
	pairs := 0
	for i := 0; i < len(dets); i++ {
		for j := i + 1; j < len(dets); j++ {
			if IoU(dets[i], dets[j]) >= threshold {
				pairs++
			}
		}
	}
	return pairs
}

// IoU returns the intersection over union of two normalized boxes.
func IoU(a, b label.Detection) float64 {
	ax1, ay1 := a.XCenter-a.Width/2, a.YCenter-a.Height/2
	ax2, ay2 := a.XCenter+a.Width/2, a.YCenter+a.Height/2
	bx1, by1 := b.XCenter-b.Width/2, b.YCenter-b.Height/2
	bx2, by2 := b.XCenter+b.Width/2, b.YCenter+b.Height/2

	iw := math.Min(ax2, bx2) - math.Max(ax1, bx1)
	ih := math.Min(ay2, by2) - math.Max(ay1, by1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
