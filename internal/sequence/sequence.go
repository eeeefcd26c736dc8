// Package sequence is the positional match store: one slot per input
// position, a registry of every live match keyed by id, and a lazily
// rebuilt aggregate of captured values.
//
// Matches reference each other by id only. Revoking a match is a registry
// delete plus removal from the positions it spans; dependants are found by
// scanning the registry.
package sequence

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/agi-now/hpat/internal/match"
)

// #region sequence
// Sequence owns the positions of one input and every match over them.
// It is not safe for concurrent mutation.
type Sequence struct {
	opts      Options
	recurring map[string]bool
	positions []*Position

	registry map[string]*match.Match
	order    map[string]uint64
	next     uint64

	extractions  match.Captures
	consolidated bool
}

// New builds a sequence with one position per value, each seeded with an
// atomic match of size 1.
func New(values []string, opts Options) *Sequence {
	if opts.AtomicConcept == "" {
		opts.AtomicConcept = DefaultAtomicConcept
	}
	s := &Sequence{
		opts:        opts,
		recurring:   make(map[string]bool, len(opts.RecurringConcepts)),
		positions:   make([]*Position, len(values)),
		registry:    make(map[string]*match.Match, len(values)),
		order:       make(map[string]uint64, len(values)),
		extractions: match.Captures{},
	}
	for _, c := range opts.RecurringConcepts {
		s.recurring[c] = true
	}
	for i, v := range values {
		atomic := match.NewMatch(opts.AtomicConcept, v, i, 1, 1)
		s.positions[i] = &Position{Value: v, matches: []*match.Match{atomic}}
		s.register(atomic)
	}
	return s
}

// FromString builds a character sequence, one position per rune. Text that
// is not valid UTF-8 gets one position per byte so Value round-trips it.
func FromString(text string) *Sequence {
	values := make([]string, 0, len(text))
	if !utf8.ValidString(text) {
		for i := 0; i < len(text); i++ {
			values = append(values, text[i:i+1])
		}
		return New(values, DefaultOptions())
	}
	for _, r := range text {
		values = append(values, string(r))
	}
	return New(values, DefaultOptions())
}

// FromTokens builds a token sequence whose span values are space-joined.
func FromTokens(tokens []string) *Sequence {
	return New(slices.Clone(tokens), TokenOptions())
}

// #endregion sequence

// #region accessors
// Len is the number of positions.
func (s *Sequence) Len() int { return len(s.positions) }

// AtomicConcept is the concept of the seeded per-position matches.
func (s *Sequence) AtomicConcept() string { return s.opts.AtomicConcept }

// Position returns the position at idx, or nil when out of range.
func (s *Sequence) Position(idx int) *Position {
	if idx < 0 || idx >= len(s.positions) {
		return nil
	}
	return s.positions[idx]
}

// MatchesAt returns the matches covering idx.
func (s *Sequence) MatchesAt(idx int) []*match.Match {
	p := s.Position(idx)
	if p == nil {
		return nil
	}
	return p.Matches()
}

// Value returns the whole input joined with the separator.
func (s *Sequence) Value() string {
	return s.Slice(0, len(s.positions))
}

// Slice returns the joined values of positions [start, end), clamped to
// the sequence bounds.
func (s *Sequence) Slice(start, end int) string {
	start = max(start, 0)
	end = min(end, len(s.positions))
	if start >= end {
		return ""
	}
	parts := make([]string, 0, end-start)
	for _, p := range s.positions[start:end] {
		parts = append(parts, p.Value)
	}
	return strings.Join(parts, s.opts.Separator)
}

// Lookup returns a registered match.
func (s *Sequence) Lookup(id string) (*match.Match, bool) {
	m, ok := s.registry[id]
	return m, ok
}

// Match returns a registered match or ErrMatchNotFound.
func (s *Sequence) Match(id string) (*match.Match, error) {
	m, ok := s.registry[id]
	if !ok {
		return nil, errors.Wrapf(ErrMatchNotFound, "id %s", id)
	}
	return m, nil
}

// RegistrationOrder returns the insertion rank of a live match.
func (s *Sequence) RegistrationOrder(id string) (uint64, bool) {
	o, ok := s.order[id]
	return o, ok
}

// Count is the number of registered matches.
func (s *Sequence) Count() int { return len(s.registry) }

// Matches returns every registered match in registration order.
func (s *Sequence) Matches() []*match.Match {
	out := make([]*match.Match, 0, len(s.registry))
	for _, m := range s.registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out
}

// AllMatchIDs returns every registered id, sorted.
func (s *Sequence) AllMatchIDs() []string {
	ids := make([]string, 0, len(s.registry))
	for id := range s.registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Consolidated reports whether the aggregate capture map is fresh.
func (s *Sequence) Consolidated() bool { return s.consolidated }

// #endregion accessors

// #region add-match
// AddMatch stores m in every position of its span unless an equivalent
// match is already there. It returns false, storing nothing, when a
// dependency is not registered or the span is out of bounds. The result
// reports whether at least one position newly stored m. m.Weight is kept
// as given; matches built through match.State already carry the minimum of
// their dependency weights.
func (s *Sequence) AddMatch(m *match.Match) bool {
	if m == nil || m.Size <= 0 || m.Start < 0 || m.End() > len(s.positions) {
		return false
	}
	for _, dep := range m.DependsOn {
		if _, ok := s.registry[dep]; !ok {
			return false
		}
	}

	added := false
	for _, p := range s.positions[m.Start:m.End()] {
		if p.add(m, s.recurring) {
			added = true
		}
	}
	if added {
		s.register(m)
		s.consolidated = false
	}
	return added
}

// AddConcept builds a confirmed match over [start, start+size) and adds it.
func (s *Sequence) AddConcept(concept string, start, size int, weight float64) bool {
	return s.AddMatch(match.NewMatch(concept, s.Slice(start, start+size), start, size, weight))
}

func (s *Sequence) register(m *match.Match) {
	if _, ok := s.registry[m.ID]; ok {
		return
	}
	s.registry[m.ID] = m
	s.order[m.ID] = s.next
	s.next++
}

// #endregion add-match

// #region consolidate
// Consolidate rebuilds the aggregate capture map if the index changed.
// Each match contributes once, in position order then intra-position order.
func (s *Sequence) Consolidate() {
	if s.consolidated {
		return
	}
	s.extractions = match.Captures{}
	seen := make(map[string]bool, len(s.registry))
	for _, p := range s.positions {
		for _, m := range p.matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			s.extractions.Merge(m.Captures)
		}
	}
	s.consolidated = true
}

// Extract returns the aggregated values captured under key.
func (s *Sequence) Extract(key string) ([]string, error) {
	if !s.consolidated {
		return nil, errors.WithHint(ErrNotConsolidated, "call Consolidate after the last mutation")
	}
	return slices.Clone(s.extractions[key]), nil
}

// Extractions returns a copy of the whole aggregate map.
func (s *Sequence) Extractions() (match.Captures, error) {
	if !s.consolidated {
		return nil, errors.WithHint(ErrNotConsolidated, "call Consolidate after the last mutation")
	}
	return s.extractions.Clone(), nil
}

// #endregion consolidate
