package watcher

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFileFilter_Defaults(t *testing.T) {
	f := NewFileFilter(nil)

	tests := []struct {
		path   string
		ignore bool
	}{
		{"/data/train/images/frame_001.png", false},
		{"/data/train/labels/frame_001.txt", false},
		{"/data/train/images/.DS_Store", true},
		{"/data/train/labels/.frame_001.txt.swp", true},
		{"/data/val/images/upload.png.part", true},
		{"/data/val/images/export.tmp", true},
		{"/data/val/labels/frame_002.txt~", true},
		{"/data/test/images/pic.jpg.crdownload", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := f.ShouldIgnore(tt.path); got != tt.ignore {
				t.Errorf("ShouldIgnore(%q) = %v, want %v", tt.path, got, tt.ignore)
			}
		})
	}
}

func TestFileFilter_EmptyIgnoresNothing(t *testing.T) {
	f := NewFileFilter([]string{})
	if f.ShouldIgnore("/data/train/images/.hidden.png") {
		t.Error("an empty pattern list should ignore nothing")
	}
}

func TestFileFilter_ExtensionSuffix(t *testing.T) {
	f := NewFileFilter([]string{".bak"})
	if !f.ShouldIgnore("/data/train/labels/A.TXT.BAK") {
		t.Error("bare extension should match as case-insensitive suffix")
	}
	if f.ShouldIgnore("/data/train/labels/backup.txt") {
		t.Error("suffix rule should not match unrelated names")
	}
}

func TestFileFilter_PatternsCopy(t *testing.T) {
	f := NewFileFilter([]string{"*.tmp"})
	p := f.Patterns()
	p[0] = "changed"
	if f.Patterns()[0] != "*.tmp" {
		t.Error("Patterns should return a copy")
	}
}

func TestFileFilter_DatasetFilesNeverIgnoredProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	f := NewFileFilter(nil)

	properties.Property("plain image and label names pass the default filter", prop.ForAll(
		func(stem string, ext string) bool {
			return !f.ShouldIgnore("/data/train/images/" + stem + ext)
		},
		gen.Identifier(),
		gen.OneConstOf(".png", ".jpg", ".jpeg", ".txt"),
	))

	properties.TestingRun(t)
}
