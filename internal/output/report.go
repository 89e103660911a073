package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
	"yoloset/internal/rebalance"
)

// maxListed caps how many individual paths a report lists.
const maxListed = 20

// tabular runs fn against a tabwriter on the output writer. Nothing is
// written in JSON mode.
func (o *Output) tabular(fn func(w io.Writer)) {
	if o.config.JSON {
		return
	}
	o.clearProgressLine()
	tw := tabwriter.NewWriter(o.config.Writer, 0, 4, 2, ' ', 0)
	fn(tw)
	tw.Flush()
}

// Stats prints one split's category breakdown against the target ratios.
func (o *Output) Stats(split dataset.Split, s balance.BalanceStats, ratios balance.TargetRatios) {
	o.tabular(func(w io.Writer) {
		fmt.Fprintf(w, "\n%s: %d images\n", strings.ToUpper(string(split)), s.Total)
		fmt.Fprintln(w, "  CATEGORY\tCOUNT\tSHARE\tTARGET")
		for _, c := range balance.AllCategories() {
			target := ""
			if !c.IsPlayer() {
				target = fmt.Sprintf("%.1f%%", ratios.Ratio(balance.GroupOf(c))*100)
			}
			fmt.Fprintf(w, "  %s\t%d\t%.1f%%\t%s\n", c, s.Count(c), s.Percentage(c), target)
		}
		fmt.Fprintf(w, "  Players (total)\t%d\t%.1f%%\t%.1f%%\n",
			s.TotalPlayers(), s.PlayerPercentage(), ratios.Player*100)
	})
}

// GlobalStats prints every split in the given order and the combined totals.
func (o *Output) GlobalStats(stats balance.GlobalStats, splits []dataset.Split, ratios balance.TargetRatios) {
	for _, split := range splits {
		o.Stats(split, stats.Get(split), ratios)
	}
	if len(splits) > 1 {
		o.Stats("all", stats.Combined(), ratios)
	}
}

// Recommendations prints advice lines under a heading.
func (o *Output) Recommendations(split dataset.Split, recs []string) {
	if len(recs) == 0 {
		return
	}
	o.Info("\nRecommendations for %s:", split)
	for _, r := range recs {
		o.Info("  - %s", r)
	}
}

// Integrity prints orphaned images and labels for one split.
func (o *Output) Integrity(split dataset.Split, s balance.IntegrityStats) {
	if !s.HasIssues() {
		o.Info("%s: no integrity issues", split)
		return
	}
	o.Info("%s: %d image(s) without labels, %d label(s) without images",
		split, len(s.ImagesWithoutLabels), len(s.LabelsWithoutImages))
	o.issueList("Images without labels", s.ImagesWithoutLabels)
	o.issueList("Labels without images", s.LabelsWithoutImages)
}

func (o *Output) issueList(heading string, issues []balance.IntegrityIssue) {
	if len(issues) == 0 {
		return
	}
	o.Info("  %s:", heading)
	for i, issue := range issues {
		if i == maxListed {
			o.Info("    ... and %d more", len(issues)-maxListed)
			return
		}
		o.Info("    %s (expected %s)", issue.Path, issue.ExpectedCounterpart)
	}
}

// Plan prints a single-split plan with before/after counts for both splits.
func (o *Output) Plan(p *rebalance.RebalancePlan) {
	if p.IsEmpty() {
		o.Info("Nothing to move: %s in %s is at or below its target.", p.Category, p.From)
		return
	}
	o.Info("Plan: move %d %s image(s) from %s to %s (excess %d)",
		p.Len(), p.Category, p.From, p.To, p.Excess)
	o.tabular(func(w io.Writer) {
		fmt.Fprintln(w, "  SPLIT\tBEFORE\tAFTER")
		fmt.Fprintf(w, "  %s\t%d\t%d\n", p.From, p.FromBefore.Total, p.FromAfter.Total)
		fmt.Fprintf(w, "  %s\t%d\t%d\n", p.To, p.ToBefore.Total, p.ToAfter.Total)
	})
	if o.config.Verbose {
		for _, a := range p.Actions {
			o.Verbose("  %s -> %s: %s", a.From, a.To, a.ImagePath)
		}
	}
}

// GlobalPlan prints the move groups and the per-split totals before and after.
func (o *Output) GlobalPlan(p *rebalance.GlobalRebalancePlan, splits []dataset.Split) {
	if p.IsEmpty() {
		o.Info("Dataset is balanced within tolerance; nothing to move.")
		return
	}
	o.Info("Global plan (%s mode): %d move(s) in %d group(s), %d iteration(s)",
		p.Mode, p.TotalMoves, len(p.Groups), p.IterationsUsed)
	o.tabular(func(w io.Writer) {
		fmt.Fprintln(w, "  FROM\tTO\tCATEGORY\tCOUNT")
		for _, g := range p.Groups {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%d\n", g.From, g.To, g.Category, g.Count)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  SPLIT\tBEFORE\tAFTER")
		for _, split := range splits {
			fmt.Fprintf(w, "  %s\t%d\t%d\n", split, p.Before.Get(split).Total, p.After.Get(split).Total)
		}
	})
}

// ExecutionSummary prints move outcomes, listing failures.
func (o *Output) ExecutionSummary(results []rebalance.MoveResult, cancelled bool) {
	var ok, failed, mismatched int
	for _, r := range results {
		switch {
		case !r.Success:
			failed++
		case r.LabelMismatch():
			ok++
			mismatched++
		default:
			ok++
		}
	}
	status := "completed"
	if cancelled {
		status = "cancelled"
	}
	o.Info("Execution %s: %d moved, %d failed", status, ok, failed)
	if mismatched > 0 {
		o.Info("  %d image(s) moved without their label", mismatched)
	}
	listed := 0
	for _, r := range results {
		if r.Success && !r.LabelMismatch() {
			continue
		}
		if listed == maxListed {
			o.Info("  ... more issues in the log")
			break
		}
		listed++
		if !r.Success {
			o.Info("  FAILED %s: %s", r.Action.ImagePath, r.Error)
		} else {
			o.Info("  LABEL  %s: %s", r.Action.LabelPath, r.LabelError)
		}
	}
}

// UndoSummary prints the outcome of an undo run.
func (o *Output) UndoSummary(r *rebalance.UndoResult) {
	o.Info("Undo: %d restored, %d failed, %d skipped", r.Restored, r.Failed, r.Skipped)
	for i, d := range r.FailureDetails {
		if i == maxListed {
			o.Info("  ... and %d more", len(r.FailureDetails)-maxListed)
			return
		}
		o.Info("  %s %s: %s", d.Reason, d.OriginalPath, d.Message)
	}
}

// StaleChanges explains why a plan was discarded.
func (o *Output) StaleChanges(changes []string) {
	o.Error("The dataset changed after the plan was built; re-run to plan again.")
	for i, c := range changes {
		if i == maxListed {
			o.Error("  ... and %d more", len(changes)-maxListed)
			return
		}
		o.Error("  %s", c)
	}
}
