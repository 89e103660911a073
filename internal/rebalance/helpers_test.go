package rebalance

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"yoloset/internal/balance"
	"yoloset/internal/dataset"
)

// meta builds in-memory pool entries of one category.
func meta(split dataset.Split, cat balance.ImageCategory, n int, prefix string) []ImageMetadata {
	out := make([]ImageMetadata, n)
	for i := range out {
		dc := i % 4
		out[i] = ImageMetadata{
			Path:           fmt.Sprintf("/ds/%s/images/%s_%04d.jpg", split, prefix, i),
			Category:       cat,
			Split:          split,
			DetectionCount: &dc,
		}
	}
	return out
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

// writePair creates an image and, when withLabel is set, its label under root.
func writePair(t testing.TB, root string, split dataset.Split, name string, withLabel bool) (string, string) {
	t.Helper()
	imgDir := filepath.Join(root, string(split), "images")
	lblDir := filepath.Join(root, string(split), "labels")
	for _, d := range []string{imgDir, lblDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	img := filepath.Join(imgDir, name)
	if err := os.WriteFile(img, []byte("image:"+name), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if !withLabel {
		return img, ""
	}
	lbl := filepath.Join(lblDir, dataset.Stem(name)+".txt")
	if err := os.WriteFile(lbl, []byte("0 0.5 0.5 0.1 0.1\n"), 0644); err != nil {
		t.Fatalf("write label: %v", err)
	}
	return img, lbl
}

func readFile(t testing.TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}
