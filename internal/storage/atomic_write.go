// Package storage provides crash-safe file persistence: atomic replacement
// of whole files and advisory inter-process locks.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// RenameError is returned when the final rename fails. The temporary file
// has been removed.
type RenameError struct {
	Err      error
	TempPath string
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("replace file with %s: %v", e.TempPath, e.Err)
}

func (e *RenameError) Unwrap() error { return e.Err }

// AtomicWriteFile writes data to a temporary file next to filename and
// renames it into place, so readers see either the old or the new content.
// Missing parent directories are created.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(filename)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	success := false
	defer func() {
		if success {
			return
		}
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary file", "path", tmp.Name(), "error", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := replaceFile(tmp.Name(), filename); err != nil {
		return &RenameError{Err: err, TempPath: tmp.Name()}
	}
	success = true
	return nil
}
