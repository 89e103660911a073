package rebalance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"yoloset/internal/dataset"
	"yoloset/internal/fileops"
	"yoloset/internal/task"
)

// DefaultExecutionBatch is how many actions run between progress messages.
const DefaultExecutionBatch = 5

// moveFunc is the file-move primitive. Tests replace it to inject failures.
var moveFunc = fileops.MoveFile

// MoveResult is the outcome of one MoveAction. A successful image move whose
// label failed to follow keeps Success set and reports LabelError: the image
// and its label then live in different splits.
type MoveResult struct {
	Action       MoveAction `json:"action"`
	Success      bool       `json:"success"`
	Error        string     `json:"error,omitempty"`
	LabelError   string     `json:"labelError,omitempty"`
	NewImagePath string     `json:"newImagePath,omitempty"`
	NewLabelPath string     `json:"newLabelPath,omitempty"`
}

// LabelMismatch reports whether the image moved but its label did not.
func (r MoveResult) LabelMismatch() bool {
	return r.Success && r.LabelError != ""
}

// MessageKind identifies an execution progress message.
type MessageKind string

const (
	MessageProgress  MessageKind = "PROGRESS"
	MessageComplete  MessageKind = "COMPLETE"
	MessageCancelled MessageKind = "CANCELLED"
	MessageError     MessageKind = "ERROR"
)

// ProgressMessage is streamed while a plan executes or is undone.
//   - PROGRESS: Current, Total, LastMoved
//   - COMPLETE: SuccessCount, FailedCount, Results
//   - CANCELLED: CompletedCount, Results
//   - ERROR: Err
type ProgressMessage struct {
	Kind           MessageKind
	Current        int
	Total          int
	LastMoved      string
	SuccessCount   int
	FailedCount    int
	CompletedCount int
	Results        []MoveResult
	Err            string
	// Undo is set on the terminal message of an undo run.
	Undo *UndoResult
}

// Executor applies move actions to the dataset on disk.
type Executor struct {
	Layout    dataset.Layout
	BatchSize int
}

// NewExecutor returns an Executor for layout.
func NewExecutor(layout dataset.Layout) *Executor {
	return &Executor{Layout: layout, BatchSize: DefaultExecutionBatch}
}

// Execute runs actions synchronously and returns one result per action.
func (e *Executor) Execute(actions []MoveAction) ([]MoveResult, error) {
	var setupErr error
	results, _ := e.run(actions, nil, func(m ProgressMessage) {
		if m.Kind == MessageError {
			setupErr = errors.New(m.Err)
		}
	})
	return results, setupErr
}

// ExecuteAsync runs actions in a background goroutine. Cancellation is
// honoured between actions, so an in-flight move always finishes first.
func (e *Executor) ExecuteAsync(ctx context.Context, actions []MoveAction) *task.Handle[ProgressMessage] {
	return task.Start(ctx, 0, func(em task.Emitter[ProgressMessage]) {
		e.run(actions, em.Cancelled, func(m ProgressMessage) { em.Emit(m) })
	})
}

func (e *Executor) run(actions []MoveAction, cancelled func() bool, emit func(ProgressMessage)) ([]MoveResult, bool) {
	if err := e.prepare(actions); err != nil {
		log.Error().Err(err).Msg("Failed to prepare destination directories")
		emit(ProgressMessage{Kind: MessageError, Err: err.Error()})
		return nil, false
	}

	batch := e.BatchSize
	if batch <= 0 {
		batch = DefaultExecutionBatch
	}
	total := len(actions)
	results := make([]MoveResult, 0, total)
	success, failed := 0, 0

	for i, action := range actions {
		if cancelled != nil && cancelled() {
			log.Warn().Int("completed", len(results)).Int("total", total).Msg("Rebalance cancelled")
			emit(ProgressMessage{Kind: MessageCancelled, CompletedCount: len(results), Results: results})
			return results, true
		}

		result := e.apply(action)
		if result.Success {
			success++
		} else {
			failed++
		}
		results = append(results, result)

		if (i+1)%batch == 0 || i == total-1 {
			emit(ProgressMessage{
				Kind:      MessageProgress,
				Current:   i + 1,
				Total:     total,
				LastMoved: filepath.Base(action.ImagePath),
			})
		}
	}

	log.Info().Int("success", success).Int("failed", failed).Msg("Rebalance complete")
	emit(ProgressMessage{Kind: MessageComplete, SuccessCount: success, FailedCount: failed, Results: results})
	return results, false
}

// prepare creates every destination directory up front.
func (e *Executor) prepare(actions []MoveAction) error {
	seen := make(map[dataset.Split]bool)
	for _, a := range actions {
		if seen[a.To] {
			continue
		}
		seen[a.To] = true
		for _, dir := range []string{e.Layout.ImagesDir(a.To), e.Layout.LabelsDir(a.To)} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}
	return nil
}

func (e *Executor) apply(action MoveAction) MoveResult {
	result := MoveResult{Action: action}
	imagesDir := e.Layout.ImagesDir(action.To)
	labelsDir := e.Layout.LabelsDir(action.To)
	hasLabel := action.LabelPath != "" && fileops.Exists(action.LabelPath)

	names := fileops.FreePairNames(imagesDir, labelsDir, filepath.Base(action.ImagePath), hasLabel)
	newImage := filepath.Join(imagesDir, names.Image)
	if err := moveFunc(action.ImagePath, newImage); err != nil {
		log.Error().Err(err).Str("image", action.ImagePath).Msg("Failed to move image")
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.NewImagePath = newImage

	if !hasLabel {
		return result
	}
	newLabel := filepath.Join(labelsDir, names.Label)
	if err := moveFunc(action.LabelPath, newLabel); err != nil {
		log.Warn().Err(err).Str("label", action.LabelPath).Str("image", newImage).Msg("Label did not follow its image")
		result.LabelError = err.Error()
		return result
	}
	result.NewLabelPath = newLabel
	return result
}
