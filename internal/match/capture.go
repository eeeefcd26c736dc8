package match

import (
	"encoding/json"
	"maps"
	"slices"
)

// #region captures
// Captures maps a capture key to every value captured under it.
type Captures map[string][]string

// Add appends value under key.
func (c Captures) Add(key, value string) {
	c[key] = append(c[key], value)
}

// Merge appends every entry of other, preserving order.
func (c Captures) Merge(other Captures) {
	for _, key := range other.Keys() {
		c[key] = append(c[key], other[key]...)
	}
}

// Keys returns the keys in sorted order.
func (c Captures) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Clone returns a deep copy.
func (c Captures) Clone() Captures {
	out := make(Captures, len(c))
	for k, v := range c {
		out[k] = slices.Clone(v)
	}
	return out
}

// #endregion captures

// #region structure
// Value is one entry of a structured capture: either text or a nested tree.
type Value struct {
	Text   string
	Nested *Structure
}

// Structure is the nested structured-capture tree attached to a match.
type Structure struct {
	Concept string
	Data    *Data
}

// Clone returns a deep copy; nil stays nil.
func (s *Structure) Clone() *Structure {
	if s == nil {
		return nil
	}
	return &Structure{Concept: s.Concept, Data: s.Data.Clone()}
}

// MarshalJSON renders {"concept": ..., "data": {...}}.
func (s *Structure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Concept string `json:"concept"`
		Data    *Data  `json:"data"`
	}{s.Concept, s.Data})
}

// Data holds keyed values. A key set with many=true, or set more than once,
// is a list; otherwise it is a scalar.
type Data struct {
	order  []string
	values map[string][]Value
	list   map[string]bool
}

// NewData returns an empty tree.
func NewData() *Data {
	return &Data{values: map[string][]Value{}, list: map[string]bool{}}
}

// Add records value under key.
func (d *Data) Add(key string, value Value, many bool) {
	existing, ok := d.values[key]
	if !ok {
		d.order = append(d.order, key)
	}
	d.values[key] = append(existing, value)
	if many || ok {
		d.list[key] = true
	}
}

// Get returns the values under key.
func (d *Data) Get(key string) []Value {
	if d == nil {
		return nil
	}
	return d.values[key]
}

// IsList reports whether key renders as a list.
func (d *Data) IsList(key string) bool {
	return d != nil && d.list[key]
}

// Keys returns keys in insertion order.
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.order)
}

// Len is the number of keys.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Clone returns a deep copy.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	out := NewData()
	out.order = slices.Clone(d.order)
	maps.Copy(out.list, d.list)
	for k, vs := range d.values {
		cp := make([]Value, len(vs))
		for i, v := range vs {
			cp[i] = Value{Text: v.Text, Nested: v.Nested.Clone()}
		}
		out.values[k] = cp
	}
	return out
}

// MarshalJSON renders scalars as values and lists as arrays.
func (d *Data) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	out := make(map[string]any, len(d.order))
	for _, k := range d.order {
		rendered := make([]any, 0, len(d.values[k]))
		for _, v := range d.values[k] {
			if v.Nested != nil {
				rendered = append(rendered, v.Nested)
			} else {
				rendered = append(rendered, v.Text)
			}
		}
		if d.list[k] {
			out[k] = rendered
		} else {
			out[k] = rendered[0]
		}
	}
	return json.Marshal(out)
}

// #endregion structure
