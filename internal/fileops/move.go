// Package fileops provides the file-move primitive used by every rebalancing layer.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MoveErrorType represents the type of move error.
type MoveErrorType string

const (
	// SourceNotFound indicates the source file does not exist.
	SourceNotFound MoveErrorType = "SOURCE_NOT_FOUND"
	// DestinationExists indicates a file already exists at the destination.
	DestinationExists MoveErrorType = "DESTINATION_EXISTS"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied MoveErrorType = "PERMISSION_DENIED"
	// CopyFailed indicates the copy to the destination failed.
	CopyFailed MoveErrorType = "COPY_FAILED"
	// RemoveFailed indicates the source could not be removed after a successful copy.
	RemoveFailed MoveErrorType = "REMOVE_FAILED"
)

// MoveError represents an error that occurred during file movement.
type MoveError struct {
	Type MoveErrorType
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a MoveError of the given type.
func IsType(err error, t MoveErrorType) bool {
	var me *MoveError
	return errors.As(err, &me) && me.Type == t
}

// Seams for fault injection in tests.
var (
	removeFunc = os.Remove
	copyFunc   = copyContents
)

// MoveFile moves src to dest by copying and then removing the source, so the
// move works across filesystem boundaries. The destination must not exist.
//
// If the source cannot be removed after a successful copy, the destination
// copy is deleted (best effort) and a RemoveFailed error is returned; the
// source is left untouched.
func MoveFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &MoveError{Type: SourceNotFound, Path: src, Err: err}
		}
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return &MoveError{Type: CopyFailed, Path: src, Err: err}
	}
	if info.IsDir() {
		return &MoveError{Type: CopyFailed, Path: src, Err: errors.New("source is a directory")}
	}

	if _, err := os.Lstat(dest); err == nil {
		return &MoveError{Type: DestinationExists, Path: dest}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		if os.IsPermission(err) {
			return &MoveError{Type: PermissionDenied, Path: filepath.Dir(dest), Err: err}
		}
		return &MoveError{Type: CopyFailed, Path: dest, Err: err}
	}

	if err := copyFunc(src, dest, info.Mode().Perm()); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &MoveError{Type: DestinationExists, Path: dest, Err: err}
		}
		if errors.Is(err, fs.ErrPermission) {
			return &MoveError{Type: PermissionDenied, Path: dest, Err: err}
		}
		return &MoveError{Type: CopyFailed, Path: dest, Err: err}
	}

	if err := removeFunc(src); err != nil {
		// Roll back the orphaned copy so the file only exists once.
		_ = os.Remove(dest)
		return &MoveError{Type: RemoveFailed, Path: src, Err: err}
	}

	return nil
}

// copyContents streams src into a newly created dest. A partially written
// destination is removed on failure.
func copyContents(src, dest string, perm fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Exists checks if a file exists at the given path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
