package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
	// NotADirectory indicates the path exists but is not a directory.
	NotADirectory ScanErrorType = "NOT_A_DIRECTORY"
)

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// FileEntry represents a file found during scanning.
type FileEntry struct {
	Name     string // Filename only
	FullPath string
}

// ScanImages lists the images of one split, sorted by name.
func (l Layout) ScanImages(split Split) ([]FileEntry, error) {
	return scanFiles(l.ImagesDir(split), l.IsImage)
}

// ScanLabels lists the .txt label files of one split, sorted by name.
func (l Layout) ScanLabels(split Split) ([]FileEntry, error) {
	return scanFiles(l.LabelsDir(split), func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), labelExt)
	})
}

// ImagePaths is a convenience wrapper returning only the paths of ScanImages.
func (l Layout) ImagePaths(split Split) ([]string, error) {
	entries, err := l.ScanImages(split)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.FullPath
	}
	return paths, nil
}

// scanFiles enumerates regular files in directory without recursion.
func scanFiles(directory string, keep func(name string) bool) ([]FileEntry, error) {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ScanError{Type: DirectoryNotFound, Path: directory, Err: err}
		}
		if os.IsPermission(err) {
			return nil, &ScanError{Type: PermissionDenied, Path: directory, Err: err}
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, &ScanError{
			Type: NotADirectory,
			Path: directory,
			Err:  errors.New("path is not a directory"),
		}
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &ScanError{Type: PermissionDenied, Path: directory, Err: err}
		}
		return nil, err
	}

	var files []FileEntry
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		fullPath := filepath.Join(directory, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		files = append(files, FileEntry{Name: entry.Name(), FullPath: fullPath})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// IsNotFound reports whether err is a scan error for a missing directory.
func IsNotFound(err error) bool {
	var se *ScanError
	return errors.As(err, &se) && se.Type == DirectoryNotFound
}
