package fvalue

// OrderedMap is an insertion-ordered string-keyed map of Values. It backs
// Event bodies so that field iteration order (and therefore rendering
// order) is deterministic and matches the order fields were set.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

// KV is a single ordered field, used wherever call-site key-values must
// preserve their original argument order — Go map iteration order is
// randomized, which would violate the "ordered mapping" Event data model
// (spec.md §3) if call sites were expressed as map[string]Value.
type KV struct {
	Key   string
	Value Value
}

// Pair builds a KV, converting v with From. An inexact conversion is
// carried on the resulting Value itself (Value.IsInexact), not dropped
// here — callers that assemble an Event from a slice of KVs are the ones
// responsible for recording a serialization_error field from it.
func Pair(key string, v interface{}) KV {
	val, _ := From(v)
	return KV{Key: key, Value: val}
}

// NewOrderedMapFromKV builds an OrderedMap from an ordered list of fields.
func NewOrderedMapFromKV(kvs ...KV) *OrderedMap {
	m := NewOrderedMap()
	for _, kv := range kvs {
		m.Set(kv.Key, kv.Value)
	}
	return m
}

// Clone returns a deep-enough copy: the key order and top-level value set
// are copied, so mutating the clone never affects the original. Nested
// Values are themselves immutable, so no deeper copy is required.
func (m *OrderedMap) Clone() *OrderedMap {
	if m == nil {
		return NewOrderedMap()
	}
	cp := &OrderedMap{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]Value, len(m.values)),
	}
	copy(cp.keys, m.keys)
	for k, v := range m.values {
		cp.values[k] = v
	}
	return cp
}

// Set inserts or overwrites key. Overwriting an existing key preserves its
// original position in iteration order.
func (m *OrderedMap) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key, if present.
func (m *OrderedMap) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in insertion order. The returned slice must not be
// mutated by the caller.
func (m *OrderedMap) Keys() []string { return m.keys }

// Len returns the number of entries.
func (m *OrderedMap) Len() int { return len(m.keys) }

// Equal reports whether two maps hold the same key/value pairs,
// irrespective of insertion order (order affects rendering, not equality).
func (m *OrderedMap) Equal(o *OrderedMap) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.keys) != len(o.keys) {
		return false
	}
	for k, v := range m.values {
		ov, ok := o.values[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}
