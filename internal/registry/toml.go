package registry

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/radscript/internal/storage"
)

// LoadTOML merges the tables of a TOML document into the registry. Nested
// tables become path segments, so
//
//	[user.paths]
//	appPath = "/opt/editor"
//
// binds "user/paths/appPath". Non-string scalars are stored in their TOML
// text form. Arrays are rejected.
func (r *Registry) LoadTOML(rd io.Reader) error {
	var doc map[string]interface{}
	if _, err := toml.NewDecoder(rd).Decode(&doc); err != nil {
		return fmt.Errorf("registry: decode toml: %w", err)
	}
	flat := make(map[string]string)
	if err := flatten("", doc, flat); err != nil {
		return err
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.Set(k, flat[k]); err != nil {
			return err
		}
	}
	return nil
}

// LoadTOMLFile is LoadTOML over a file. A missing file is not an error.
func (r *Registry) LoadTOMLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("registry: open %s: %w", path, err)
	}
	defer f.Close()
	return r.LoadTOML(f)
}

// SaveTOML writes every key as nested TOML tables.
//
// A key that is both a value and a table prefix (e.g. "a" and "a/b") cannot be
// represented in TOML; SaveTOML returns an error in that case.
func (r *Registry) SaveTOML(w io.Writer) error {
	r.mu.RLock()
	flat := make(map[string]string, len(r.values))
	for k, v := range r.values {
		flat[k] = v
	}
	r.mu.RUnlock()

	doc, err := unflatten(flat)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("registry: encode toml: %w", err)
	}
	return nil
}

// SaveTOMLFile is SaveTOML to a file. The file is replaced atomically while
// holding path+".lock"; storage.ErrLocked is returned if another process is
// saving.
func (r *Registry) SaveTOMLFile(path string) error {
	var buf bytes.Buffer
	if err := r.SaveTOML(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("registry: create dir: %w", err)
	}
	err := storage.WithLock(path+".lock", func() error {
		return storage.AtomicWriteFile(path, buf.Bytes(), 0o644)
	})
	if err != nil {
		return fmt.Errorf("registry: save %s: %w", path, err)
	}
	return nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) error {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "/" + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			if err := flatten(path, val, out); err != nil {
				return err
			}
		case string:
			out[path] = val
		case []interface{}, []map[string]interface{}:
			return fmt.Errorf("registry: key %s: arrays are not supported", path)
		default:
			out[path] = fmt.Sprint(val)
		}
	}
	return nil
}

func unflatten(flat map[string]string) (map[string]interface{}, error) {
	root := make(map[string]interface{})
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		segs := strings.Split(key, "/")
		table := root
		for i, seg := range segs[:len(segs)-1] {
			next, ok := table[seg]
			if !ok {
				child := make(map[string]interface{})
				table[seg] = child
				table = child
				continue
			}
			child, ok := next.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("registry: key %s is both a value and a table", strings.Join(segs[:i+1], "/"))
			}
			table = child
		}
		leaf := segs[len(segs)-1]
		if _, ok := table[leaf].(map[string]interface{}); ok {
			return nil, fmt.Errorf("registry: key %s is both a value and a table", key)
		}
		table[leaf] = flat[key]
	}
	return root, nil
}
