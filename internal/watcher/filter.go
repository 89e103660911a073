package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns are editor, download and hidden files that never
// count as dataset changes.
func DefaultIgnorePatterns() []string {
	return []string{
		".*",
		"*.tmp",
		"*.part",
		"*.crdownload",
		"*.swp",
		"*~",
	}
}

// FileFilter decides which changed paths the monitor ignores.
type FileFilter struct {
	patterns []string
}

// NewFileFilter builds a filter. A nil slice selects DefaultIgnorePatterns;
// an empty non-nil slice ignores nothing.
func NewFileFilter(patterns []string) *FileFilter {
	if patterns == nil {
		patterns = DefaultIgnorePatterns()
	}
	return &FileFilter{patterns: append([]string(nil), patterns...)}
}

// ShouldIgnore matches the base name of path against each glob pattern. A
// bare extension pattern such as ".tmp" also matches as a case-insensitive
// suffix.
func (f *FileFilter) ShouldIgnore(path string) bool {
	name := filepath.Base(path)

	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[") {
			if strings.HasSuffix(strings.ToLower(name), strings.ToLower(pattern)) {
				return true
			}
		}
	}
	return false
}

// Patterns returns a copy of the ignore patterns.
func (f *FileFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
