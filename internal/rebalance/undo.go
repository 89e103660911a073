package rebalance

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"yoloset/internal/fileops"
	"yoloset/internal/task"
)

// ErrNothingToUndo is returned by UndoStore when no results are held.
var ErrNothingToUndo = errors.New("nothing to undo")

// ReasonCode explains why an undo entry was not restored.
type ReasonCode string

const (
	// ReasonSourceNotFound means the file is no longer at its recorded new location.
	ReasonSourceNotFound ReasonCode = "SOURCE_NOT_FOUND"
	// ReasonDestinationOccupied means something now sits at the original location.
	ReasonDestinationOccupied ReasonCode = "DESTINATION_OCCUPIED"
	// ReasonMoveFailed covers copy and remove failures of the move primitive.
	ReasonMoveFailed ReasonCode = "MOVE_FAILED"
)

// UndoError contains details about a failed restore.
type UndoError struct {
	OriginalPath string     `json:"originalPath"` // Where the file should go back to
	CurrentPath  string     `json:"currentPath"`  // Where the file was recorded after the move
	Reason       ReasonCode `json:"reason"`
	Message      string     `json:"message"`
}

// UndoOutcome is the undo result for one MoveResult.
type UndoOutcome struct {
	Result        MoveResult  `json:"result"`
	Restored      bool        `json:"restored"`
	LabelRestored bool        `json:"labelRestored"`
	Errors        []UndoError `json:"errors,omitempty"`
}

// UndoResult summarises an undo run. Outcomes are in processing order, which
// is the reverse of execution order.
type UndoResult struct {
	Total          int           `json:"total"`
	Restored       int           `json:"restored"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"` // entries whose original move had failed
	FailureDetails []UndoError   `json:"failureDetails,omitempty"`
	Outcomes       []UndoOutcome `json:"outcomes"`
}

// Partial reports whether some entries could not be restored.
func (r *UndoResult) Partial() bool {
	return r.Failed > 0
}

// Undo moves every successfully moved file back to its original path. It
// keeps going after individual failures. Calling it twice on the same list
// fails for every entry because the files are no longer at the new paths.
func Undo(results []MoveResult) *UndoResult {
	res, _ := runUndo(results, DefaultExecutionBatch, nil, nil)
	return res
}

// UndoAsync runs Undo on a background goroutine, streaming PROGRESS messages
// and a terminal COMPLETE or CANCELLED message carrying the UndoResult.
func UndoAsync(ctx context.Context, results []MoveResult, batch int) *task.Handle[ProgressMessage] {
	return task.Start(ctx, 0, func(em task.Emitter[ProgressMessage]) {
		res, cancelled := runUndo(results, batch, em.Cancelled, func(m ProgressMessage) { em.Emit(m) })
		msg := ProgressMessage{Kind: MessageComplete, SuccessCount: res.Restored, FailedCount: res.Failed, Undo: res}
		if cancelled {
			msg = ProgressMessage{Kind: MessageCancelled, CompletedCount: len(res.Outcomes), Undo: res}
		}
		em.Emit(msg)
	})
}

func runUndo(results []MoveResult, batch int, cancelled func() bool, emit func(ProgressMessage)) (*UndoResult, bool) {
	if batch <= 0 {
		batch = DefaultExecutionBatch
	}
	res := &UndoResult{Total: len(results)}

	for i := len(results) - 1; i >= 0; i-- {
		if cancelled != nil && cancelled() {
			log.Warn().Int("processed", len(res.Outcomes)).Int("total", res.Total).Msg("Undo cancelled")
			return res, true
		}

		r := results[i]
		outcome := UndoOutcome{Result: r}
		if !r.Success {
			res.Skipped++
		} else {
			outcome = restore(r)
			if outcome.Restored {
				res.Restored++
			} else {
				res.Failed++
			}
			res.FailureDetails = append(res.FailureDetails, outcome.Errors...)
		}
		res.Outcomes = append(res.Outcomes, outcome)

		done := len(res.Outcomes)
		if emit != nil && (done%batch == 0 || done == res.Total) {
			emit(ProgressMessage{Kind: MessageProgress, Current: done, Total: res.Total, LastMoved: filepath.Base(r.Action.ImagePath)})
		}
	}

	log.Info().Int("restored", res.Restored).Int("failed", res.Failed).Int("skipped", res.Skipped).Msg("Undo complete")
	return res, false
}

// restore moves the image back and, if it made it, the label too. A label is
// never restored without its image so the pair stays together.
func restore(r MoveResult) UndoOutcome {
	out := UndoOutcome{Result: r}

	if err := restoreFile(r.NewImagePath, r.Action.ImagePath); err != nil {
		out.Errors = append(out.Errors, *err)
		return out
	}

	if r.NewLabelPath != "" {
		if err := restoreFile(r.NewLabelPath, r.Action.LabelPath); err != nil {
			out.Errors = append(out.Errors, *err)
			return out
		}
		out.LabelRestored = true
	}
	out.Restored = true
	return out
}

func restoreFile(current, original string) *UndoError {
	if current == "" || !fileops.Exists(current) {
		return &UndoError{OriginalPath: original, CurrentPath: current, Reason: ReasonSourceNotFound,
			Message: "file not found at its moved location"}
	}
	if fileops.Exists(original) {
		log.Warn().Str("path", original).Msg("Original location is occupied, not restoring")
		return &UndoError{OriginalPath: original, CurrentPath: current, Reason: ReasonDestinationOccupied,
			Message: "original location already has a file"}
	}
	if err := moveFunc(current, original); err != nil {
		log.Error().Err(err).Str("from", current).Str("to", original).Msg("Failed to restore file")
		return &UndoError{OriginalPath: original, CurrentPath: current, Reason: ReasonMoveFailed, Message: err.Error()}
	}
	return nil
}

// UndoStore holds the results of the last execution until they are undone or
// discarded. It is single shot: Take clears it.
type UndoStore struct {
	mu      sync.Mutex
	results []MoveResult
}

// Record replaces the held results.
func (s *UndoStore) Record(results []MoveResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

// Pending returns the number of held results that moved a file.
func (s *UndoStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.results {
		if r.Success {
			n++
		}
	}
	return n
}

// Take returns the held results and clears the store.
func (s *UndoStore) Take() ([]MoveResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := s.results
	s.results = nil
	return results, len(results) > 0
}

// Discard drops the held results without undoing them.
func (s *UndoStore) Discard() {
	s.Record(nil)
}

// Undo takes the held results and undoes them.
func (s *UndoStore) Undo() (*UndoResult, error) {
	results, ok := s.Take()
	if !ok {
		return nil, ErrNothingToUndo
	}
	return Undo(results), nil
}
