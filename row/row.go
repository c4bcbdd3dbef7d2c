// Package row holds the engine's data model: a recursive value that is
// either a scalar (string, int64, float64, bool, nil), an order-retaining
// map from string keys to values, or a sequence of values. Adapters
// produce rows of this shape; every other package in the engine
// (condition, function, exec, query) operates purely on it.
package row

// Value is a scalar, *Map, or Seq. The zero Value is nil (SQL NULL).
type Value interface{}

// Map is an order-retaining string-keyed map, satisfying the data model's
// invariant that insertion order is preserved for deterministic output.
// Keys are unique per level; Set on an existing key overwrites in place
// without moving it to the end.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set inserts or overwrites key with v, preserving first-seen order.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Delete removes key, if present, preserving the order of the rest.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The caller must not mutate it.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.keys)
}

// Clone returns a shallow copy: same child values, independent key order
// and membership, safe to Set/Delete on without affecting the original.
func (m *Map) Clone() *Map {
	out := &Map{
		keys: append([]string(nil), m.keys...),
		vals: make(map[string]Value, len(m.vals)),
	}
	for k, v := range m.vals {
		out.vals[k] = v
	}
	return out
}

// Seq is an ordered sequence of values.
type Seq []Value

// IsNull reports whether v represents SQL NULL.
func IsNull(v Value) bool {
	return v == nil
}
