package balance

import (
	"strings"
	"testing"
)

func TestRecommendations(t *testing.T) {
	ratios := DefaultTargetRatios()

	recs := Recommendations(BalanceStats{}, ratios)
	if len(recs) != 1 || !strings.Contains(recs[0], "No images") {
		t.Errorf("empty recs = %v", recs)
	}

	// 1000 images: 950 players (CT heavy), 50 background.
	s := BalanceStats{Total: 1000, CTOnly: 700, TOnly: 200, MultiplePlayer: 50, Background: 50}
	recs = Recommendations(s, ratios)
	if !strings.HasPrefix(recs[0], "Remove approximately 100 player images") {
		t.Errorf("player rec = %q", recs[0])
	}
	if !strings.Contains(recs[1], "CT-only") {
		t.Errorf("team rec = %q", recs[1])
	}
	if !strings.HasPrefix(recs[2], "Add approximately 50 more background") {
		t.Errorf("background rec = %q", recs[2])
	}
	if len(recs) != 3 {
		t.Errorf("hard-case advice should be omitted without hard cases: %v", recs)
	}

	s = BalanceStats{Total: 100, CTOnly: 43, TOnly: 42, Background: 10, HardCase: 5}
	for _, r := range Recommendations(s, ratios) {
		if !strings.Contains(r, "balanced") {
			t.Errorf("expected balanced, got %q", r)
		}
	}
}
