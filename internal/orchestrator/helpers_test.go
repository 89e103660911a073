package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"yoloset/internal/config"
	"yoloset/internal/dataset"
	"yoloset/internal/rebalance"
)

const ctLabel = "# Resolution: 1920x1080, Map: de_mirage, Time: 1764637338\n1 0.5 0.5 0.1 0.2\n"

// addImages writes n image/label pairs named prefix_NNN into split. An empty
// label marks a background image.
func addImages(t *testing.T, root string, split dataset.Split, prefix string, n int, labelContent string) {
	t.Helper()
	images := filepath.Join(root, string(split), "images")
	labels := filepath.Join(root, string(split), "labels")
	for _, dir := range []string{images, labels} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s_%03d", prefix, i)
		if err := os.WriteFile(filepath.Join(images, name+".png"), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(labels, name+".txt"), []byte(labelContent), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// newFixture builds train (10 CT, 10 background) and val (10 CT); test is
// absent.
func newFixture(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	root := t.TempDir()
	addImages(t, root, dataset.Train, "ct", 10, ctLabel)
	addImages(t, root, dataset.Train, "bg", 10, "")
	addImages(t, root, dataset.Val, "vct", 10, ctLabel)

	cfg := config.Default()
	cfg.DatasetRoot = root
	cfg.Watch.DebounceMs = 20
	return New(cfg).WithSelector(rebalance.NewSeededSelector(7)), root
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatal(err)
	}
	return len(entries)
}
