package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

// interruptible returns a context cancelled by SIGINT/SIGTERM. Calling stop
// restores default signal handling.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

type analyzeReport struct {
	Stats           balance.GlobalStats        `json:"stats"`
	Recommendations map[dataset.Split][]string `json:"recommendations"`
	Balanced        bool                       `json:"balanced"`
	Cancelled       bool                       `json:"cancelled"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [split...]",
		Short: "Categorize every image and report balance per split",
		Long: `Analyze categorizes each image of the selected splits (default: the configured
splits) and compares the category shares with the target ratios. Press Ctrl-C
to stop; the counts gathered so far are reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.engine()
			if err != nil {
				return err
			}
			splits, err := a.splitsFromArgs(args)
			if err != nil {
				return err
			}

			ctx, stop := interruptible(cmd)
			defer stop()

			report := analyzeReport{
				Stats:           balance.NewGlobalStats(),
				Recommendations: make(map[dataset.Split][]string),
			}
			for _, split := range splits {
				update, end := a.progress("Analyzing " + split.String())
				stats, cancelled := orch.AnalyzeSplit(ctx, split, func(p balance.Progress) {
					update(p.Current, p.Total)
				})
				end()
				report.Stats.Set(split, stats)
				report.Recommendations[split] = balance.Recommendations(stats, a.cfg.TargetRatios)
				if cancelled {
					report.Cancelled = true
					break
				}
			}
			report.Balanced = !report.Cancelled && report.Stats.IsBalanced(a.cfg.TargetRatios, a.cfg.Global.Tolerance)

			if a.json {
				return a.out.JSON(report)
			}
			for _, split := range splits {
				if _, ok := report.Recommendations[split]; !ok {
					continue
				}
				a.out.Stats(split, report.Stats.Get(split), a.cfg.TargetRatios)
				a.out.Recommendations(split, report.Recommendations[split])
			}
			switch {
			case report.Cancelled:
				a.out.Info("\nAnalysis interrupted; counts above are partial.")
			case report.Balanced:
				a.out.Info("\nAll splits are within tolerance of the target ratios.")
			}
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize balance and integrity of every configured split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.engine()
			if err != nil {
				return err
			}
			status, err := orch.Status(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.out.JSON(status)
			}
			a.out.GlobalStats(status.Stats, status.Splits, a.cfg.TargetRatios)
			a.out.Info("")
			for _, split := range status.Splits {
				a.out.Integrity(split, status.Integrity[split])
			}
			if status.Balanced {
				a.out.Info("\nBalanced: yes")
			} else {
				a.out.Info("\nBalanced: no (run 'yoloset global' to see a plan)")
			}
			return nil
		},
	}
}

func newIntegrityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity [split...]",
		Short: "List images without labels and labels without images",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.engine()
			if err != nil {
				return err
			}
			splits, err := a.splitsFromArgs(args)
			if err != nil {
				return err
			}

			ctx, stop := interruptible(cmd)
			defer stop()

			results := make(map[dataset.Split]balance.IntegrityStats, len(splits))
			for _, split := range splits {
				update, end := a.progress("Checking " + split.String())
				stats, cancelled := orch.Integrity(ctx, split, func(p balance.IntegrityProgress) {
					update(p.Current, p.Total)
				})
				end()
				results[split] = stats
				if cancelled {
					a.out.Error("Integrity check interrupted during %s", split)
					break
				}
			}

			if a.json {
				return a.out.JSON(results)
			}
			for _, split := range splits {
				if stats, ok := results[split]; ok {
					a.out.Integrity(split, stats)
				}
			}
			return nil
		},
	}
}
