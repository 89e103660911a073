package dataset

import (
	"path/filepath"
	"strings"
)

const (
	imagesDirName = "images"
	labelsDirName = "labels"
	labelExt      = ".txt"
)

// DefaultImageExtensions returns the image extensions recognised by default.
func DefaultImageExtensions() []string {
	return []string{".png", ".jpg", ".jpeg"}
}

// Layout resolves split directories under a dataset root:
// <root>/<split>/images and <root>/<split>/labels.
type Layout struct {
	Root       string
	Extensions []string
}

// NewLayout creates a Layout. Extensions are normalised to lower case with a
// leading dot; an empty list falls back to DefaultImageExtensions.
func NewLayout(root string, extensions []string) Layout {
	if len(extensions) == 0 {
		extensions = DefaultImageExtensions()
	}
	normalised := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalised = append(normalised, ext)
	}
	return Layout{Root: root, Extensions: normalised}
}

// SplitDir returns <root>/<split>.
func (l Layout) SplitDir(split Split) string {
	return filepath.Join(l.Root, string(split))
}

// ImagesDir returns <root>/<split>/images.
func (l Layout) ImagesDir(split Split) string {
	return filepath.Join(l.Root, string(split), imagesDirName)
}

// LabelsDir returns <root>/<split>/labels.
func (l Layout) LabelsDir(split Split) string {
	return filepath.Join(l.Root, string(split), labelsDirName)
}

// IsImage reports whether the filename carries one of the layout's image extensions.
func (l Layout) IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range l.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// WatchDirs returns the images and labels directories of the given splits.
func (l Layout) WatchDirs(splits []Split) []string {
	dirs := make([]string, 0, len(splits)*2)
	for _, s := range splits {
		dirs = append(dirs, l.ImagesDir(s), l.LabelsDir(s))
	}
	return dirs
}

// LabelPathFor derives the label path of an image by substituting the last
// "images" path segment with "labels" and replacing the extension with .txt.
// If the image does not live under an "images" directory the label is
// expected next to it.
func LabelPathFor(imagePath string) string {
	dir, file := filepath.Split(imagePath)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	dir = filepath.Clean(dir)

	parts := strings.Split(dir, string(filepath.Separator))
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == imagesDirName {
			parts[i] = labelsDirName
			break
		}
	}
	labelDir := strings.Join(parts, string(filepath.Separator))
	if labelDir == "" && strings.HasPrefix(dir, string(filepath.Separator)) {
		labelDir = string(filepath.Separator)
	}
	return filepath.Join(labelDir, stem+labelExt)
}

// Stem returns the filename without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
