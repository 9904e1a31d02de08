package storage

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("file is locked by another process")

// FileLock is an exclusive advisory lock on a lock file.
type FileLock struct {
	f *os.File
}

// TryLock takes the lock at path without blocking, creating the lock file if
// needed. It returns ErrLocked if the lock is held elsewhere.
func TryLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileLock{f: f}, nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.f.Name() }

// Unlock releases the lock and removes the lock file.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	path := l.f.Name()
	err := errors.Join(unlockFile(l.f), l.f.Close())
	l.f = nil
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// WithLock runs fn while holding the lock at path.
func WithLock(path string, fn func() error) (err error) {
	l, err := TryLock(path)
	if err != nil {
		return err
	}
	defer func() {
		if uErr := l.Unlock(); uErr != nil && err == nil {
			err = uErr
		}
	}()
	return fn()
}
