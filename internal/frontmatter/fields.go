package frontmatter

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Fields is a frontmatter mapping that preserves the key order of the
// source document. Plain map parsing loses order, which makes reorder
// detection impossible, so the delta engine works on Fields instead.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields returns an empty Fields.
func NewFields() *Fields {
	return &Fields{values: map[string]any{}}
}

// ParseFields parses raw YAML frontmatter (without --- delimiters) into
// an order-preserving Fields. Duplicate keys keep the last value but the
// first position.
func ParseFields(raw []byte) (*Fields, error) {
	f := NewFields()
	if len(raw) == 0 {
		return f, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return f, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter root must be a mapping, got %v", root.Kind)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		var key string
		if err := root.Content[i].Decode(&key); err != nil {
			return nil, err
		}
		var val any
		if err := root.Content[i+1].Decode(&val); err != nil {
			return nil, err
		}
		f.Set(key, val)
	}
	return f, nil
}

// Set stores a value, appending the key to the order if it is new.
func (f *Fields) Set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key and whether it exists.
func (f *Fields) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// GetString returns the value for key if it is a string.
func (f *Fields) GetString(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Delete removes key, preserving the relative order of the rest.
func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in document order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	return len(f.keys)
}

// Map returns the fields as a plain map. Order is lost; use Keys for order.
func (f *Fields) Map() map[string]any {
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Merge overlays other onto f: every key in other is written into f,
// overwriting existing values. New keys append in other's order.
func (f *Fields) Merge(other *Fields) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		f.Set(k, other.values[k])
	}
}

// Defaults fills in keys from other that f does not already have.
// Existing values are never overwritten.
func (f *Fields) Defaults(other *Fields) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		if !f.Has(k) {
			f.Set(k, other.values[k])
		}
	}
}

// Clone returns an independent copy. Values are copied shallowly;
// nested maps and slices remain shared.
func (f *Fields) Clone() *Fields {
	out := NewFields()
	for _, k := range f.keys {
		out.Set(k, f.values[k])
	}
	return out
}

// CanonicalJSON renders the fields as JSON with sorted keys. Two Fields
// with the same key/value content produce identical bytes regardless of
// key order, which makes this the input for order-insensitive hashing.
func (f *Fields) CanonicalJSON() ([]byte, error) {
	return json.Marshal(f.values)
}
