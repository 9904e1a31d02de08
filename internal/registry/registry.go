// Package registry implements the editor's hierarchical key/value store.
//
// Keys are slash-separated paths such as "user/paths/appPath". Values are
// always strings. The store is safe for concurrent use; observers are invoked
// synchronously on the goroutine that performed the write, after the lock has
// been released.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrKeyNotFound is returned by Get when no value is bound to a key path.
	ErrKeyNotFound = errors.New("registry key not found")

	// ErrInvalidPath is returned when a write addresses no key, such as "" or "/".
	ErrInvalidPath = errors.New("invalid registry key path")
)

// Observer is notified after a key at or below the observed path changes.
// deleted is true when the key was removed rather than set.
type Observer func(path, value string, deleted bool)

// Registry is a hierarchical string store.
type Registry struct {
	mu        sync.RWMutex
	values    map[string]string
	observers map[string][]*observerEntry
}

type observerEntry struct {
	fn Observer
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		values:    make(map[string]string),
		observers: make(map[string][]*observerEntry),
	}
}

// NormalizePath trims surrounding and duplicate slashes from a key path.
// An empty result means the path addressed nothing.
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

// Get returns the value bound to path, or ErrKeyNotFound.
func (r *Registry) Get(path string) (string, error) {
	key := NormalizePath(path)
	r.mu.RLock()
	value, ok := r.values[key]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return value, nil
}

// GetOr returns the value bound to path, or fallback when absent.
func (r *Registry) GetOr(path, fallback string) string {
	value, err := r.Get(path)
	if err != nil {
		return fallback
	}
	return value
}

// Has reports whether a value is bound to path.
func (r *Registry) Has(path string) bool {
	key := NormalizePath(path)
	r.mu.RLock()
	_, ok := r.values[key]
	r.mu.RUnlock()
	return ok
}

// Set binds value to path and notifies observers.
func (r *Registry) Set(path, value string) error {
	key := NormalizePath(path)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	r.mu.Lock()
	old, existed := r.values[key]
	r.values[key] = value
	r.mu.Unlock()

	if existed && old == value {
		return nil
	}
	r.notify(key, value, false)
	return nil
}

// Delete removes path and reports whether it existed.
func (r *Registry) Delete(path string) bool {
	key := NormalizePath(path)
	r.mu.Lock()
	_, ok := r.values[key]
	delete(r.values, key)
	r.mu.Unlock()
	if ok {
		r.notify(key, "", true)
	}
	return ok
}

// Keys returns every key at or below prefix in lexical order.
// An empty prefix returns all keys.
func (r *Registry) Keys(prefix string) []string {
	prefix = NormalizePath(prefix)
	r.mu.RLock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		if underPath(k, prefix) {
			keys = append(keys, k)
		}
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of bound keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

// AddObserver registers fn for changes to path or any key beneath it.
// The returned function removes the registration.
func (r *Registry) AddObserver(path string, fn Observer) (remove func()) {
	key := NormalizePath(path)
	entry := &observerEntry{fn: fn}
	r.mu.Lock()
	r.observers[key] = append(r.observers[key], entry)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.observers[key]
		for i, e := range list {
			if e == entry {
				r.observers[key] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(r.observers[key]) == 0 {
			delete(r.observers, key)
		}
	}
}

func (r *Registry) notify(key, value string, deleted bool) {
	r.mu.RLock()
	var fns []Observer
	for path, list := range r.observers {
		if !underPath(key, path) {
			continue
		}
		for _, e := range list {
			fns = append(fns, e.fn)
		}
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(key, value, deleted)
	}
}

// underPath reports whether key equals prefix or lies beneath it.
func underPath(key, prefix string) bool {
	if prefix == "" || key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+"/")
}
