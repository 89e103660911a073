package rebalance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
	"yoloset/internal/fileops"
)

func withMoveFunc(t *testing.T, fn func(src, dest string) error) {
	t.Helper()
	orig := moveFunc
	moveFunc = fn
	t.Cleanup(func() { moveFunc = orig })
}

func actionsFor(t *testing.T, root string, n int, withLabel bool) []MoveAction {
	t.Helper()
	var actions []MoveAction
	for i := 0; i < n; i++ {
		img, lbl := writePair(t, root, dataset.Train, fmt.Sprintf("img_%03d.jpg", i), withLabel)
		actions = append(actions, MoveAction{
			ImagePath: img, LabelPath: lbl, Category: balance.TOnly, From: dataset.Train, To: dataset.Val,
		})
	}
	return actions
}

func TestExecute_MovesImagesAndLabels(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 3, true)

	results, err := NewExecutor(dataset.NewLayout(root, nil)).Execute(actions)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, r := range results {
		if !r.Success || r.LabelError != "" {
			t.Fatalf("unexpected result %+v", r)
		}
		if fileops.Exists(r.Action.ImagePath) || fileops.Exists(r.Action.LabelPath) {
			t.Errorf("source still present for %s", r.Action.ImagePath)
		}
		if filepath.Dir(r.NewImagePath) != filepath.Join(root, "val", "images") {
			t.Errorf("image landed in %s", r.NewImagePath)
		}
		if filepath.Dir(r.NewLabelPath) != filepath.Join(root, "val", "labels") {
			t.Errorf("label landed in %s", r.NewLabelPath)
		}
	}
}

func TestExecute_RenamesOnCollision(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 1, true)
	writePair(t, root, dataset.Val, "img_000.jpg", true)

	results, _ := NewExecutor(dataset.NewLayout(root, nil)).Execute(actions)
	r := results[0]
	if !r.Success {
		t.Fatalf("move failed: %s", r.Error)
	}
	if filepath.Base(r.NewImagePath) != "img_000_duplicate.jpg" || filepath.Base(r.NewLabelPath) != "img_000_duplicate.txt" {
		t.Errorf("new names = %s, %s", r.NewImagePath, r.NewLabelPath)
	}
	if readFile(t, filepath.Join(root, "val", "images", "img_000.jpg")) != "image:img_000.jpg" {
		t.Error("existing destination file was overwritten")
	}
}

func TestExecute_LabelFailureIsSurfaced(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 2, true)
	withMoveFunc(t, func(src, dest string) error {
		if filepath.Ext(src) == ".txt" {
			return &fileops.MoveError{Type: fileops.CopyFailed, Path: src, Err: errors.New("disk full")}
		}
		return fileops.MoveFile(src, dest)
	})

	exec := NewExecutor(dataset.NewLayout(root, nil))
	msgs := exec.ExecuteAsync(context.Background(), actions).Wait()
	last := msgs[len(msgs)-1]
	if last.Kind != MessageComplete || last.SuccessCount != 2 || last.FailedCount != 0 {
		t.Fatalf("terminal = %+v", last)
	}
	for _, r := range last.Results {
		if !r.LabelMismatch() || r.NewLabelPath != "" {
			t.Errorf("label failure not recorded: %+v", r)
		}
		if !fileops.Exists(r.Action.LabelPath) {
			t.Error("label should remain in the source split")
		}
	}
}

func TestExecute_ImageFailureCounts(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 3, false)
	os.Remove(actions[1].ImagePath)

	msgs := NewExecutor(dataset.NewLayout(root, nil)).ExecuteAsync(context.Background(), actions).Wait()
	last := msgs[len(msgs)-1]
	if last.SuccessCount != 2 || last.FailedCount != 1 {
		t.Fatalf("success=%d failed=%d", last.SuccessCount, last.FailedCount)
	}
	if last.Results[1].Success || last.Results[1].Error == "" {
		t.Errorf("missing source should fail with a message: %+v", last.Results[1])
	}
}

func TestExecute_ProgressBatches(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 12, false)

	msgs := NewExecutor(dataset.NewLayout(root, nil)).ExecuteAsync(context.Background(), actions).Wait()
	var currents []int
	for _, m := range msgs {
		if m.Kind == MessageProgress {
			currents = append(currents, m.Current)
			if m.LastMoved == "" || m.Total != 12 {
				t.Errorf("progress message %+v", m)
			}
		}
	}
	if fmt.Sprint(currents) != "[5 10 12]" {
		t.Errorf("progress = %v", currents)
	}
}

func TestExecute_Cancel(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 10, false)

	const k = 4
	reached := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	withMoveFunc(t, func(src, dest string) error {
		calls++
		if calls == k {
			close(reached)
			<-release
		}
		return fileops.MoveFile(src, dest)
	})

	h := NewExecutor(dataset.NewLayout(root, nil)).ExecuteAsync(context.Background(), actions)
	<-reached
	h.Cancel()
	close(release)

	msgs := h.Wait()
	last := msgs[len(msgs)-1]
	if last.Kind != MessageCancelled {
		t.Fatalf("terminal = %s", last.Kind)
	}
	if last.CompletedCount != k || len(last.Results) != k {
		t.Errorf("completed=%d results=%d, want %d", last.CompletedCount, len(last.Results), k)
	}
	for _, a := range actions[k:] {
		if !fileops.Exists(a.ImagePath) {
			t.Errorf("%s moved after cancellation", a.ImagePath)
		}
	}
}

func TestExecute_SetupError(t *testing.T) {
	root := t.TempDir()
	actions := actionsFor(t, root, 1, false)
	// A regular file where the destination split directory should be.
	if err := os.WriteFile(filepath.Join(root, "val"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	exec := NewExecutor(dataset.NewLayout(root, nil))
	if _, err := exec.Execute(actions); err == nil {
		t.Fatal("expected setup error")
	}
	msgs := exec.ExecuteAsync(context.Background(), actions).Wait()
	if len(msgs) != 1 || msgs[0].Kind != MessageError || msgs[0].Err == "" {
		t.Errorf("messages = %+v", msgs)
	}
	if !fileops.Exists(actions[0].ImagePath) {
		t.Error("nothing should move after a setup error")
	}
}
