package scene

import "fmt"

// KeyValue is one entity spawnarg.
type KeyValue struct {
	Key   string
	Value string
}

// Entity is the ordered key/value store attached to an entity node.
type Entity struct {
	node     *Node
	keys     []KeyValue
	index    map[string]int
	readOnly bool
}

func newEntity(n *Node) *Entity {
	return &Entity{node: n, index: make(map[string]int)}
}

// Node returns the scene node carrying the entity.
func (e *Entity) Node() *Node { return e.node }

// Classname returns the "classname" key.
func (e *Entity) Classname() string { return e.KeyValue("classname") }

// KeyValue returns the value for key, or "" when the key is unset.
func (e *Entity) KeyValue(key string) string {
	if i, ok := e.index[key]; ok {
		return e.keys[i].Value
	}
	return ""
}

// HasKey reports whether key is set.
func (e *Entity) HasKey(key string) bool {
	_, ok := e.index[key]
	return ok
}

// KeyValues returns a copy of the key/values in insertion order.
func (e *Entity) KeyValues() []KeyValue {
	out := make([]KeyValue, len(e.keys))
	copy(out, e.keys)
	return out
}

// ReadOnly reports whether the entity refuses mutation.
func (e *Entity) ReadOnly() bool { return e.readOnly }

// SetReadOnly locks or unlocks the entity for SetKeyValue.
func (e *Entity) SetReadOnly(readOnly bool) { e.readOnly = readOnly }

// SetKeyValue sets key to value and records the change in the graph's undo
// journal. An empty value erases the key. It returns ErrMutationRejected for
// locked entities and empty keys.
func (e *Entity) SetKeyValue(key, value string) error {
	if e.readOnly {
		return fmt.Errorf("%w: entity %s is read-only", ErrMutationRejected, e.node)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key on entity %s", ErrMutationRejected, e.node)
	}
	old, had := e.lookup(key)
	if had == (value != "") && old == value {
		return nil
	}
	e.apply(key, value)
	if g := e.node.graph; g != nil {
		g.undo.record(Change{
			Entity: e,
			Key:    key,
			Old:    old,
			HadOld: had,
			New:    value,
		})
	}
	return nil
}

func (e *Entity) lookup(key string) (string, bool) {
	i, ok := e.index[key]
	if !ok {
		return "", false
	}
	return e.keys[i].Value, true
}

// apply writes without journaling. An empty value erases the key.
func (e *Entity) apply(key, value string) {
	i, ok := e.index[key]
	switch {
	case value == "" && ok:
		e.keys = append(e.keys[:i:i], e.keys[i+1:]...)
		delete(e.index, key)
		for j := i; j < len(e.keys); j++ {
			e.index[e.keys[j].Key] = j
		}
	case value == "":
	case ok:
		e.keys[i].Value = value
	default:
		e.index[key] = len(e.keys)
		e.keys = append(e.keys, KeyValue{Key: key, Value: value})
	}
}
