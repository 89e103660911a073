package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"yoloset/internal/orchestrator"
	"yoloset/internal/prompt"
	"yoloset/internal/rebalance"
)

// ErrStalePlan is returned when the dataset changed between planning and
// execution.
var ErrStalePlan = errors.New("dataset changed since the plan was built")

// runExecution guards the plan with the change monitor, asks for
// confirmation, moves the files and offers a single undo.
func (a *app) runExecution(cmd *cobra.Command, orch *orchestrator.Orchestrator, actions []rebalance.MoveAction, assumeYes bool) error {
	monitor, err := orch.StartMonitor()
	if err != nil {
		return fmt.Errorf("start change monitor: %w", err)
	}
	defer monitor.Stop()

	interactive := a.interactive()
	p := prompt.New(a.stdin, a.stderr)

	if !assumeYes {
		if !interactive {
			return errors.New("refusing to move files without confirmation; pass --yes")
		}
		ok, err := p.ConfirmExecute(len(actions))
		if err != nil {
			return err
		}
		if !ok {
			a.out.Info("Nothing moved.")
			return nil
		}
	}

	// The executor's own moves would mark the dataset stale, so the monitor
	// stops before the first file is touched.
	summary := monitor.Stop()
	if len(summary.Changes) > 0 {
		a.out.StaleChanges(summary.Changes)
		return ErrStalePlan
	}

	ctx, stop := interruptible(cmd)
	update, end := a.progress("Moving")
	run, err := orch.Execute(ctx, actions, func(m rebalance.ProgressMessage) {
		update(m.Current, m.Total)
	})
	end()
	stop()
	if err != nil {
		return err
	}

	if a.json {
		if err := a.out.JSON(run); err != nil {
			return err
		}
	} else {
		a.out.ExecutionSummary(run.Results, run.Cancelled)
	}

	if err := a.offerUndo(cmd, orch, p, interactive); err != nil {
		return err
	}
	if run.Failed > 0 {
		return fmt.Errorf("%d of %d move(s) failed", run.Failed, run.Planned)
	}
	return nil
}

// offerUndo asks once whether to revert; the undo record is discarded
// either way afterwards.
func (a *app) offerUndo(cmd *cobra.Command, orch *orchestrator.Orchestrator, p *prompt.Prompter, interactive bool) error {
	defer orch.DiscardUndo()

	pending := orch.PendingUndo()
	if pending == 0 || !interactive || a.json {
		return nil
	}
	ok, err := p.OfferUndo(pending)
	if err != nil || !ok {
		return err
	}

	ctx, stop := interruptible(cmd)
	defer stop()
	update, end := a.progress("Restoring")
	res, err := orch.Undo(ctx, func(m rebalance.ProgressMessage) {
		update(m.Current, m.Total)
	})
	end()
	if err != nil {
		return err
	}
	a.out.UndoSummary(res)
	if res.Partial() {
		return fmt.Errorf("undo restored %d of %d file(s)", res.Restored, res.Total-res.Skipped)
	}
	return nil
}
