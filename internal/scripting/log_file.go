package scripting

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// LogFile is an append-only log sink that rotates by size. When a write
// would grow the file past maxBytes, path is renamed to path.1, path.1 to
// path.2 and so on, keeping at most keep backups. A single write is never
// split across files.
type LogFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	keep     int
	size     int64
	f        *os.File
}

// OpenLogFile opens path for appending. maxBytes <= 0 disables rotation.
func OpenLogFile(path string, maxBytes int64, keep int) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat log file %s: %w", path, err)
	}
	return &LogFile{
		path:     path,
		maxBytes: maxBytes,
		keep:     max(keep, 0),
		size:     fi.Size(),
		f:        f,
	}, nil
}

func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return 0, os.ErrClosed
	}
	var rotateErr error
	if l.maxBytes > 0 && l.size > 0 && l.size+int64(len(p)) > l.maxBytes {
		if err := l.rotate(); err != nil {
			rotateErr = fmt.Errorf("rotate log file: %w", err)
			if l.f == nil {
				return 0, rotateErr
			}
		}
	}
	n, err := l.f.Write(p)
	l.size += int64(n)
	if err == nil {
		err = rotateErr
	}
	return n, err
}

// Close closes the file. Further writes fail with os.ErrClosed.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// rotate moves the current file aside and starts a new one. When that fails
// the current path is reopened, so writes continue past the size limit.
func (l *LogFile) rotate() error {
	if err := l.f.Close(); err != nil {
		return err
	}
	l.f = nil
	if err := l.shift(); err != nil {
		if f, openErr := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); openErr == nil {
			l.f = f
		}
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.f = f
	l.size = 0
	return nil
}

func (l *LogFile) shift() error {
	if l.keep == 0 {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else {
		_ = os.Remove(l.backup(l.keep))
		for n := l.keep - 1; n >= 1; n-- {
			if err := os.Rename(l.backup(n), l.backup(n+1)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		if err := os.Rename(l.path, l.backup(1)); err != nil {
			return err
		}
	}
	return nil
}

func (l *LogFile) backup(n int) string {
	return l.path + "." + strconv.Itoa(n)
}
