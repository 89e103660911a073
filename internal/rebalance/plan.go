package rebalance

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

// MoveAction is one proposed relocation. It carries no side effects.
type MoveAction struct {
	ImagePath string                `json:"imagePath"`
	LabelPath string                `json:"labelPath,omitempty"`
	Category  balance.ImageCategory `json:"category"`
	From      dataset.Split         `json:"from"`
	To        dataset.Split         `json:"to"`
}

// RebalanceConfig holds the parameters of one single-split planning run.
type RebalanceConfig struct {
	Ratios   balance.TargetRatios
	Strategy SelectionStrategy
	// PreserveCtTBalance makes player selections keep the source split's
	// CT/T/multiple mix. The requested category then stands for the whole
	// player group.
	PreserveCtTBalance bool
	Category           balance.ImageCategory
	From               dataset.Split
	To                 dataset.Split
}

// RebalancePlan lists the moves that bring one category of a split towards
// its target, plus before/after snapshots of both splits for preview.
type RebalancePlan struct {
	Actions        []MoveAction          `json:"actions"`
	Category       balance.ImageCategory `json:"category"`
	From           dataset.Split         `json:"from"`
	To             dataset.Split         `json:"to"`
	Excess         int                   `json:"excess"`
	CountRequested int                   `json:"countRequested"`
	FromBefore     balance.BalanceStats  `json:"fromBefore"`
	FromAfter      balance.BalanceStats  `json:"fromAfter"`
	ToBefore       balance.BalanceStats  `json:"toBefore"`
	ToAfter        balance.BalanceStats  `json:"toAfter"`
}

// IsEmpty reports whether the plan has nothing to do.
func (p *RebalancePlan) IsEmpty() bool {
	return len(p.Actions) == 0
}

// Len returns the number of actions.
func (p *RebalancePlan) Len() int {
	return len(p.Actions)
}

// CalculatePlan computes the moves for cfg.Category from cfg.From to cfg.To.
// pool holds the metadata of the source split; entries of other splits are
// ignored. The count moved is min(excess, available), where
// excess = max(0, count - round(ratio * total)).
func CalculatePlan(from, to balance.BalanceStats, pool []ImageMetadata, cfg RebalanceConfig, sel *Selector) (*RebalancePlan, error) {
	if !cfg.From.IsValid() || !cfg.To.IsValid() {
		return nil, fmt.Errorf("invalid split pair %q -> %q", cfg.From, cfg.To)
	}
	if cfg.From == cfg.To {
		return nil, fmt.Errorf("source and destination split are both %s", cfg.From)
	}

	plan := &RebalancePlan{
		Category:   cfg.Category,
		From:       cfg.From,
		To:         cfg.To,
		FromBefore: from,
		FromAfter:  from,
		ToBefore:   to,
		ToAfter:    to,
	}

	plan.Excess = max(0, balance.ExcessCount(from, cfg.Category, cfg.Ratios))
	if plan.Excess == 0 {
		log.Info().Str("category", cfg.Category.String()).Str("split", cfg.From.String()).Msg("No excess images to move")
		return plan, nil
	}

	available := Available(cfg.Category, cfg.From, pool, cfg.PreserveCtTBalance)
	plan.CountRequested = min(plan.Excess, available)

	for _, m := range sel.Select(cfg.Strategy, cfg.Category, cfg.From, plan.CountRequested, pool, cfg.PreserveCtTBalance) {
		plan.Actions = append(plan.Actions, MoveAction{
			ImagePath: m.Path,
			LabelPath: m.LabelPath,
			Category:  m.Category,
			From:      cfg.From,
			To:        cfg.To,
		})
		plan.FromAfter.Remove(m.Category, 1)
		plan.ToAfter.Add(m.Category, 1)
	}

	log.Info().
		Int("moves", len(plan.Actions)).
		Int("excess", plan.Excess).
		Str("category", cfg.Category.String()).
		Str("from", cfg.From.String()).
		Str("to", cfg.To.String()).
		Msg("Rebalance plan")
	return plan, nil
}

// BestDestination returns the split other than from that lacks the most
// images of category's group. ok is false when no other split has a deficit.
// Ties go to the earlier split.
func BestDestination(all balance.GlobalStats, from dataset.Split, category balance.ImageCategory, ratios balance.TargetRatios) (dest dataset.Split, needed int, ok bool) {
	for _, split := range dataset.AllSplits() {
		if split == from {
			continue
		}
		excess := balance.ExcessCount(all.Get(split), category, ratios)
		if excess < 0 && -excess > needed {
			dest, needed, ok = split, -excess, true
		}
	}
	return dest, needed, ok
}
