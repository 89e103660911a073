package label

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDetectionsAndHeader(t *testing.T) {
	content := `# Resolution: 2560x1440, Map: de_dust2, Time: 1764637338
0 0.5 0.5 0.1 0.2

1 0.25 0.75 0.05 0.1
`
	info, problems, err := Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("unexpected problems: %v", problems)
	}
	if len(info.Detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(info.Detections))
	}
	if info.Detections[1].ClassID != 1 || info.Detections[1].XCenter != 0.25 {
		t.Errorf("unexpected detection: %+v", info.Detections[1])
	}
	if info.Resolution != "2560x1440" || info.Map != "de_dust2" {
		t.Errorf("unexpected header: %q %q", info.Resolution, info.Map)
	}
	if info.Time == nil || info.Time.Unix() != 1764637338 {
		t.Errorf("unexpected time: %v", info.Time)
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	content := "0 0.5 0.5 0.1\nx 0.1 0.1 0.1 0.1\n-1 0.1 0.1 0.1 0.1\n1 0.1 abc 0.1 0.1\n1 0.1 0.1 0.1 0.1\n"
	info, problems, err := Parse(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(info.Detections) != 1 {
		t.Errorf("expected 1 valid detection, got %d", len(info.Detections))
	}
	if info.Skipped != 4 || len(problems) != 4 {
		t.Errorf("expected 4 skipped lines, got %d (%v)", info.Skipped, problems)
	}
	if problems[0].Line != 1 {
		t.Errorf("expected first problem on line 1, got %d", problems[0].Line)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileLookupUsesLabelsDirectory(t *testing.T) {
	root := t.TempDir()
	labels := filepath.Join(root, "train", "labels")
	if err := os.MkdirAll(labels, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(labels, "img.txt"), []byte("1 0.1 0.1 0.1 0.1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := FileLookup{}.Lookup(filepath.Join(root, "train", "images", "img.png"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(info.Detections) != 1 {
		t.Errorf("expected 1 detection, got %d", len(info.Detections))
	}
}
