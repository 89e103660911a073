package balance

import "fmt"

// teamSkewThreshold is how many more CT-only than T-only images (or the
// reverse) make a player excess point at one team.
const teamSkewThreshold = 100

// Recommendations returns manual balancing advice for one split.
func Recommendations(stats BalanceStats, ratios TargetRatios) []string {
	if stats.Total == 0 {
		return []string{"No images found in dataset."}
	}

	var recs []string

	playerPct := stats.PlayerPercentage()
	playerDiff := stats.TotalPlayers() - ratios.TargetCount(PlayerGroup, stats.Total)
	switch {
	case playerDiff > 0:
		recs = append(recs, fmt.Sprintf("Remove approximately %d player images (currently %.1f%%, target %.1f%%)",
			playerDiff, playerPct, ratios.Player*100))
		switch {
		case stats.CTOnly > stats.TOnly+teamSkewThreshold:
			recs = append(recs, fmt.Sprintf("  -> Consider removing more CT-only images (%d available)", stats.CTOnly))
		case stats.TOnly > stats.CTOnly+teamSkewThreshold:
			recs = append(recs, fmt.Sprintf("  -> Consider removing more T-only images (%d available)", stats.TOnly))
		default:
			recs = append(recs, fmt.Sprintf("  -> Balance removals across CT (%d), T (%d), and Multiple (%d)",
				stats.CTOnly, stats.TOnly, stats.MultiplePlayer))
		}
	case playerDiff < 0:
		recs = append(recs, fmt.Sprintf("Add approximately %d more player images (currently %.1f%%, target %.1f%%)",
			-playerDiff, playerPct, ratios.Player*100))
	default:
		recs = append(recs, fmt.Sprintf("Player images are balanced (%.1f%%)", playerPct))
	}

	bgPct := stats.Percentage(Background)
	bgDiff := stats.Background - ratios.TargetCount(BackgroundGroup, stats.Total)
	switch {
	case bgDiff > 0:
		recs = append(recs, fmt.Sprintf("Remove approximately %d background images (currently %.1f%%, target %.1f%%)",
			bgDiff, bgPct, ratios.Background*100))
	case bgDiff < 0:
		recs = append(recs, fmt.Sprintf("Add approximately %d more background images (currently %.1f%%, target %.1f%%)",
			-bgDiff, bgPct, ratios.Background*100))
	default:
		recs = append(recs, fmt.Sprintf("Background images are balanced (%.1f%%)", bgPct))
	}

	// Hard cases are only reported once some exist.
	if stats.HardCase > 0 {
		hcPct := stats.Percentage(HardCase)
		hcDiff := stats.HardCase - ratios.TargetCount(HardCaseGroup, stats.Total)
		switch {
		case hcDiff > 0:
			recs = append(recs, fmt.Sprintf("Review and reduce hard cases by %d (currently %.1f%%, target %.1f%%)",
				hcDiff, hcPct, ratios.HardCase*100))
		case hcDiff < 0:
			recs = append(recs, fmt.Sprintf("Mark %d more images as hard cases for review (currently %.1f%%, target %.1f%%)",
				-hcDiff, hcPct, ratios.HardCase*100))
		default:
			recs = append(recs, fmt.Sprintf("Hard cases are balanced (%.1f%%)", hcPct))
		}
	}

	return recs
}
