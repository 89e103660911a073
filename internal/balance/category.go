// Package balance categorizes dataset images by their annotations and
// aggregates per-split class-balance statistics.
package balance

import (
	"fmt"
	"strings"
)

// ImageCategory is the coarse bucket an image falls into based on its
// detections.
type ImageCategory int

const (
	CTOnly ImageCategory = iota
	TOnly
	MultiplePlayer
	Background
	HardCase
)

// AllCategories returns every category in display order.
func AllCategories() []ImageCategory {
	return []ImageCategory{CTOnly, TOnly, MultiplePlayer, Background, HardCase}
}

// PlayerCategories returns the categories that count towards the player ratio.
func PlayerCategories() []ImageCategory {
	return []ImageCategory{CTOnly, TOnly, MultiplePlayer}
}

// IsPlayer reports whether c is one of the player categories.
func (c ImageCategory) IsPlayer() bool {
	return c == CTOnly || c == TOnly || c == MultiplePlayer
}

func (c ImageCategory) String() string {
	switch c {
	case CTOnly:
		return "CT Only"
	case TOnly:
		return "T Only"
	case MultiplePlayer:
		return "Multiple Players"
	case Background:
		return "Background"
	case HardCase:
		return "Hard Case"
	default:
		return fmt.Sprintf("ImageCategory(%d)", int(c))
	}
}

// Key returns the short machine name used on the command line and in JSON.
func (c ImageCategory) Key() string {
	switch c {
	case CTOnly:
		return "ct"
	case TOnly:
		return "t"
	case MultiplePlayer:
		return "multi"
	case Background:
		return "background"
	case HardCase:
		return "hardcase"
	default:
		return ""
	}
}

// ParseCategory accepts the short key or the display name, case-insensitively.
func ParseCategory(s string) (ImageCategory, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllCategories() {
		if norm == c.Key() || norm == strings.ToLower(c.String()) {
			return c, nil
		}
	}
	switch norm {
	case "ct-only", "ct_only", "ctonly":
		return CTOnly, nil
	case "t-only", "t_only", "tonly":
		return TOnly, nil
	case "multiple", "multiple-player", "multipleplayer", "multiple_player":
		return MultiplePlayer, nil
	case "bg":
		return Background, nil
	case "hard-case", "hard_case":
		return HardCase, nil
	}
	return 0, fmt.Errorf("unknown category %q (expected ct, t, multi, background or hardcase)", s)
}

// Group is a category group that target ratios are expressed against.
type Group int

const (
	PlayerGroup Group = iota
	BackgroundGroup
	HardCaseGroup
)

// AllGroups returns the groups in tie-break order.
func AllGroups() []Group {
	return []Group{PlayerGroup, BackgroundGroup, HardCaseGroup}
}

func (g Group) String() string {
	switch g {
	case PlayerGroup:
		return "player"
	case BackgroundGroup:
		return "background"
	case HardCaseGroup:
		return "hard case"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// GroupOf maps a category to the group its target ratio belongs to.
func GroupOf(c ImageCategory) Group {
	switch c {
	case Background:
		return BackgroundGroup
	case HardCase:
		return HardCaseGroup
	default:
		return PlayerGroup
	}
}

// MarshalText encodes the category as its short key.
func (c ImageCategory) MarshalText() ([]byte, error) {
	if c.Key() == "" {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.Key()), nil
}

// UnmarshalText accepts anything ParseCategory does.
func (c *ImageCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
