// Package hierarchy answers ancestor and child queries over concept names.
//
// The engine only ever reads a Provider. Static is the in-memory DAG used
// at extraction time; SQLStore and the gRPC Client are sources a Static
// snapshot can be built from.
package hierarchy

import (
	"maps"
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// #region provider
// Provider is the concept hierarchy consulted during extraction.
type Provider interface {
	// Parents returns every transitive ancestor of concept.
	Parents(concept string) []string
	// Children returns the direct children of concept.
	Children(concept string) []string
}

// IsA reports whether concept equals ancestor or descends from it.
// A nil provider only matches exact names.
func IsA(h Provider, concept, ancestor string) bool {
	if concept == ancestor {
		return true
	}
	if h == nil {
		return false
	}
	return slices.Contains(h.Parents(concept), ancestor)
}

// IsAny reports whether concept is, or descends from, any of concepts.
func IsAny(h Provider, concept string, concepts []string) bool {
	for _, c := range concepts {
		if IsA(h, concept, c) {
			return true
		}
	}
	return false
}

// #endregion provider

// #region static
// Static is an immutable in-memory DAG. Ancestor sets are computed once at
// construction, so a Static is safe for concurrent readers.
type Static struct {
	children  map[string][]string
	ancestors map[string][]string
}

// NewStatic builds a DAG from a parent -> direct children map.
func NewStatic(children map[string][]string) *Static {
	s := &Static{
		children:  make(map[string][]string, len(children)),
		ancestors: map[string][]string{},
	}
	parents := map[string][]string{}
	for parent, kids := range children {
		uniq := slices.Compact(slices.Sorted(slices.Values(kids)))
		s.children[parent] = uniq
		for _, kid := range uniq {
			parents[kid] = append(parents[kid], parent)
		}
	}

	for concept := range parents {
		seen := map[string]bool{}
		queue := slices.Clone(parents[concept])
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if seen[current] || current == concept {
				continue
			}
			seen[current] = true
			queue = append(queue, parents[current]...)
		}
		s.ancestors[concept] = slices.Sorted(maps.Keys(seen))
	}
	return s
}

// None returns the empty DAG.
func None() *Static {
	return NewStatic(nil)
}

// Parents returns the sorted transitive ancestors of concept.
func (s *Static) Parents(concept string) []string {
	return slices.Clone(s.ancestors[concept])
}

// Children returns the sorted direct children of concept.
func (s *Static) Children(concept string) []string {
	return slices.Clone(s.children[concept])
}

// Edges returns a copy of the parent -> children map.
func (s *Static) Edges() map[string][]string {
	out := make(map[string][]string, len(s.children))
	for k, v := range s.children {
		out[k] = slices.Clone(v)
	}
	return out
}

// #endregion static

// #region yaml
// File is the on-disk hierarchy format.
type File struct {
	Children map[string][]string `yaml:"children"`
}

// LoadYAML reads a hierarchy file.
func LoadYAML(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read hierarchy %s", path)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse hierarchy %s", path)
	}
	return NewStatic(f.Children), nil
}

// #endregion yaml
