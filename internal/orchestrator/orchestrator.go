// Package orchestrator wires configuration, dataset layout and the balance
// engine together for the command line.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"yoloset/internal/balance"
	"yoloset/internal/config"
	"yoloset/internal/dataset"
	"yoloset/internal/rebalance"
	"yoloset/internal/watcher"
)

// ErrNoDestination is returned when no other split needs the category.
var ErrNoDestination = errors.New("no split has a deficit for this category")

// Orchestrator holds the engine components built from one configuration.
// The undo record lives here so a single execution can be undone once.
type Orchestrator struct {
	config   *config.Configuration
	layout   dataset.Layout
	analyzer *balance.Analyzer
	selector *rebalance.Selector
	executor *rebalance.Executor
	undo     rebalance.UndoStore
}

// New builds an Orchestrator from a validated configuration.
func New(cfg *config.Configuration) *Orchestrator {
	layout := cfg.Layout()
	analyzer := balance.NewAnalyzer(cfg.Categorizer())
	analyzer.BatchSize = cfg.Progress.AnalysisBatch
	executor := rebalance.NewExecutor(layout)
	executor.BatchSize = cfg.Progress.ExecutionBatch

	return &Orchestrator{
		config:   cfg,
		layout:   layout,
		analyzer: analyzer,
		selector: rebalance.NewSelector(),
		executor: executor,
	}
}

// WithSelector replaces the selector, e.g. with a seeded one for
// reproducible plans.
func (o *Orchestrator) WithSelector(sel *rebalance.Selector) *Orchestrator {
	o.selector = sel
	return o
}

// Config returns the configuration the orchestrator was built from.
func (o *Orchestrator) Config() *config.Configuration {
	return o.config
}

// Layout returns the dataset layout.
func (o *Orchestrator) Layout() dataset.Layout {
	return o.layout
}

// AnalyzeSplit analyzes one split, forwarding progress to onProgress. The
// returned stats are partial when cancelled is true.
func (o *Orchestrator) AnalyzeSplit(ctx context.Context, split dataset.Split, onProgress func(balance.Progress)) (stats balance.BalanceStats, cancelled bool) {
	h := o.analyzer.AnalyzeSplitAsync(context.WithoutCancel(ctx), o.layout, split)
	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	for msg := range h.Messages() {
		switch msg.Kind {
		case balance.ProgressUpdate:
			if onProgress != nil {
				onProgress(msg)
			}
		case balance.ProgressComplete:
			stats = msg.Stats
		case balance.ProgressCancelled:
			stats, cancelled = msg.Stats, true
		}
	}
	return stats, cancelled
}

// Integrity checks image/label pairing of one split.
func (o *Orchestrator) Integrity(ctx context.Context, split dataset.Split, onProgress func(balance.IntegrityProgress)) (stats balance.IntegrityStats, cancelled bool) {
	h := balance.AnalyzeIntegrityAsync(context.WithoutCancel(ctx), o.layout, split, o.config.Progress.IntegrityBatch)
	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	for msg := range h.Messages() {
		switch msg.Kind {
		case balance.ProgressUpdate:
			if onProgress != nil {
				onProgress(msg)
			}
		case balance.ProgressComplete:
			stats = msg.Stats
		case balance.ProgressCancelled:
			stats, cancelled = msg.Stats, true
		}
	}
	return stats, cancelled
}

// PlanRequest describes a single-split rebalance.
type PlanRequest struct {
	Category balance.ImageCategory
	From     dataset.Split
	// To may be empty to pick the split with the largest deficit.
	To                 dataset.Split
	Strategy           rebalance.SelectionStrategy
	PreserveCtTBalance bool
}

// Plan analyzes the dataset and builds a single-split plan.
func (o *Orchestrator) Plan(ctx context.Context, req PlanRequest) (*rebalance.RebalancePlan, error) {
	if !req.From.IsValid() {
		return nil, fmt.Errorf("invalid source split %q", req.From)
	}
	stats, err := o.analyzer.AnalyzeAll(ctx, o.layout, dataset.AllSplits())
	if err != nil {
		return nil, err
	}

	to := req.To
	if to == "" {
		dest, needed, ok := rebalance.BestDestination(stats, req.From, req.Category, o.config.TargetRatios)
		if !ok {
			return nil, ErrNoDestination
		}
		log.Info().Str("to", dest.String()).Int("needed", needed).Msg("Picked destination split")
		to = dest
	}

	pool, err := rebalance.CollectMetadata(o.analyzer, o.layout, req.From)
	if err != nil {
		return nil, err
	}

	plan, err := rebalance.CalculatePlan(stats.Get(req.From), stats.Get(to), pool, rebalance.RebalanceConfig{
		Ratios:             o.config.TargetRatios,
		Strategy:           req.Strategy,
		PreserveCtTBalance: req.PreserveCtTBalance,
		Category:           req.Category,
		From:               req.From,
		To:                 to,
	}, o.selector)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("category", req.Category.Key()).
		Str("from", req.From.String()).
		Str("to", to.String()).
		Int("moves", plan.Len()).
		Msg("Plan built")
	return plan, nil
}

// GlobalPlan analyzes every configured split, builds the global plan for
// mode and resolves its move groups into concrete actions.
func (o *Orchestrator) GlobalPlan(ctx context.Context, mode rebalance.PlanMode) (*rebalance.GlobalRebalancePlan, []rebalance.MoveAction, error) {
	cfg, err := o.config.GlobalRebalance()
	if err != nil {
		return nil, nil, err
	}
	stats, err := o.analyzer.AnalyzeAll(ctx, o.layout, cfg.Splits)
	if err != nil {
		return nil, nil, err
	}

	var plan *rebalance.GlobalRebalancePlan
	switch mode {
	case rebalance.CategoryMode, "":
		plan = rebalance.CalculateGlobalPlan(stats, cfg)
	case rebalance.SizeMode:
		plan = rebalance.CalculateSplitSizePlan(stats, cfg)
	default:
		return nil, nil, fmt.Errorf("unknown plan mode %q (want category or size)", mode)
	}
	if plan.IsEmpty() {
		return plan, nil, nil
	}

	pools, err := rebalance.CollectAll(ctx, o.analyzer, o.layout, cfg.Splits)
	if err != nil {
		return nil, nil, err
	}
	actions := rebalance.ResolveGroups(plan, pools, o.selector, cfg.Strategy)
	log.Info().
		Str("mode", string(plan.Mode)).
		Int("groups", len(plan.Groups)).
		Int("moves", len(actions)).
		Int("iterations", plan.IterationsUsed).
		Msg("Global plan built")
	return plan, actions, nil
}

// StartMonitor begins watching the dataset for changes made after planning.
func (o *Orchestrator) StartMonitor() (*watcher.Monitor, error) {
	m := watcher.New(o.config.Monitor())
	if err := m.Start(o.layout.WatchDirs(dataset.AllSplits())); err != nil {
		return nil, err
	}
	return m, nil
}

// Execute moves actions on a background task, forwarding progress. When ctx
// ends the task stops at its next checkpoint and the partial results are
// kept. The results replace any earlier undo record.
func (o *Orchestrator) Execute(ctx context.Context, actions []rebalance.MoveAction, onProgress func(rebalance.ProgressMessage)) (*RunSummary, error) {
	start := time.Now()
	h := o.executor.ExecuteAsync(context.WithoutCancel(ctx), actions)
	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	final, err := drain(h.Messages(), onProgress)
	if err != nil {
		return nil, err
	}
	o.undo.Record(final.Results)
	return GenerateSummary(final.Results, len(actions), final.Kind == rebalance.MessageCancelled, time.Since(start)), nil
}

// PendingUndo returns how many moved files the undo record would restore.
func (o *Orchestrator) PendingUndo() int {
	return o.undo.Pending()
}

// DiscardUndo forgets the undo record.
func (o *Orchestrator) DiscardUndo() {
	o.undo.Discard()
}

// Undo reverts the last execution. The record is consumed even when the undo
// is cancelled or partially fails.
func (o *Orchestrator) Undo(ctx context.Context, onProgress func(rebalance.ProgressMessage)) (*rebalance.UndoResult, error) {
	results, ok := o.undo.Take()
	if !ok {
		return nil, rebalance.ErrNothingToUndo
	}
	h := rebalance.UndoAsync(context.WithoutCancel(ctx), results, o.config.Progress.ExecutionBatch)
	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	final, err := drain(h.Messages(), onProgress)
	if err != nil {
		return nil, err
	}
	return final.Undo, nil
}

// drain forwards PROGRESS messages and returns the terminal one.
func drain(messages <-chan rebalance.ProgressMessage, onProgress func(rebalance.ProgressMessage)) (*rebalance.ProgressMessage, error) {
	var final *rebalance.ProgressMessage
	for msg := range messages {
		switch msg.Kind {
		case rebalance.MessageProgress:
			if onProgress != nil {
				onProgress(msg)
			}
		case rebalance.MessageError:
			return nil, errors.New(msg.Err)
		default:
			m := msg
			final = &m
		}
	}
	if final == nil {
		return nil, errors.New("task ended without a result")
	}
	return final, nil
}
