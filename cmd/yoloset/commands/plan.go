package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
	"yoloset/internal/orchestrator"
	"yoloset/internal/rebalance"
)

type executeFlags struct {
	execute bool
	yes     bool
}

func (f *executeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.execute, "execute", false, "move the files after previewing the plan")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "skip the confirmation prompt")
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		category string
		from     string
		to       string
		strategy string
		preserve bool
		exec     executeFlags
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan moving the excess of one category out of a split",
		Long: `Plan computes how many images of --category exceed the target ratio in --from
and picks that many with the selection strategy. Without --to the split with
the largest deficit for the category is chosen.`,
		Example: `  yoloset plan --category background --from train
  yoloset plan --category ct --from train --to val --strategy oldest-first --execute`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.engine()
			if err != nil {
				return err
			}
			req, err := a.planRequest(category, from, to, strategy, preserve, cmd.Flags().Changed("preserve-balance"))
			if err != nil {
				return err
			}

			plan, err := orch.Plan(cmd.Context(), req)
			if errors.Is(err, orchestrator.ErrNoDestination) {
				a.out.Info("No other split needs %s images.", req.Category)
				return nil
			}
			if err != nil {
				return err
			}

			if a.json && !exec.execute {
				return a.out.JSON(plan)
			}
			a.out.Plan(plan)
			if !exec.execute || plan.IsEmpty() {
				return nil
			}
			return a.runExecution(cmd, orch, plan.Actions, exec.yes)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category to move: ct, t, multi, background, hardcase")
	cmd.Flags().StringVar(&from, "from", "", "source split")
	cmd.Flags().StringVar(&to, "to", "", "destination split (default: the split that needs it most)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "selection strategy: random, fewest-detections, oldest-first, newest-first")
	cmd.Flags().BoolVar(&preserve, "preserve-balance", false, "keep the CT:T ratio of the moved player images")
	exec.register(cmd)
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// planRequest parses flag values; empty strategy and unchanged preserve fall
// back to the configuration.
func (a *app) planRequest(category, from, to, strategy string, preserve, preserveSet bool) (orchestrator.PlanRequest, error) {
	var req orchestrator.PlanRequest
	var err error

	if req.Category, err = balance.ParseCategory(category); err != nil {
		return req, err
	}
	if req.From, err = dataset.ParseSplit(from); err != nil {
		return req, err
	}
	if to != "" {
		if req.To, err = dataset.ParseSplit(to); err != nil {
			return req, err
		}
	}
	if strategy == "" {
		strategy = a.cfg.Selection.Strategy
	}
	if req.Strategy, err = rebalance.ParseStrategy(strategy); err != nil {
		return req, err
	}
	req.PreserveCtTBalance = a.cfg.Selection.PreserveCtTBalance
	if preserveSet {
		req.PreserveCtTBalance = preserve
	}
	return req, nil
}

type globalReport struct {
	Plan    *rebalance.GlobalRebalancePlan `json:"plan"`
	Actions []rebalance.MoveAction         `json:"actions"`
}

func newGlobalCmd(a *app) *cobra.Command {
	var (
		mode string
		exec executeFlags
	)

	cmd := &cobra.Command{
		Use:   "global",
		Short: "Plan moves across all splits at once",
		Long: `Global looks at every configured split together. In category mode it moves
images from the split/category with the largest excess to the split with the
largest deficit until all splits are within tolerance. In size mode it moves
images so the split sizes approach the configured split ratios.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := a.engine()
			if err != nil {
				return err
			}
			plan, actions, err := orch.GlobalPlan(cmd.Context(), rebalance.PlanMode(mode))
			if err != nil {
				return err
			}

			if a.json && !exec.execute {
				return a.out.JSON(globalReport{Plan: plan, Actions: actions})
			}
			splits, err := a.cfg.Splits()
			if err != nil {
				return err
			}
			a.out.GlobalPlan(plan, splits)
			if len(actions) < plan.TotalMoves {
				a.out.Info("Only %d of %d planned moves could be matched to images.", len(actions), plan.TotalMoves)
			}
			if !exec.execute || len(actions) == 0 {
				return nil
			}
			return a.runExecution(cmd, orch, actions, exec.yes)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(rebalance.CategoryMode), "planning mode: category or size")
	exec.register(cmd)
	return cmd
}
