package sequence

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/match"
)

// #region revoke
// Revoke removes a match from the registry and every position holding it.
// With cascade, every match depending on it is revoked as well, transitively.
// Without cascade, dependants keep referencing the vanished id.
// It returns the number of matches removed.
func (s *Sequence) Revoke(id string, cascade bool) int {
	s.consolidated = false

	removed := 0
	seen := map[string]bool{}
	pending := []string{id}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		if seen[current] {
			continue
		}
		seen[current] = true

		if s.remove(current) {
			removed++
		}
		if cascade {
			pending = append(pending, s.DependantIDs(current)...)
		}
	}
	return removed
}

func (s *Sequence) remove(id string) bool {
	m, ok := s.registry[id]
	if !ok {
		return false
	}
	for _, p := range s.positions[m.Start:m.End()] {
		p.remove(id)
	}
	delete(s.registry, id)
	delete(s.order, id)
	return true
}

// #endregion revoke

// #region dependants
// DependantIDs returns the sorted ids of matches that directly depend on id.
func (s *Sequence) DependantIDs(id string) []string {
	var out []string
	for mid, m := range s.registry {
		if m.DependsOnID(id) {
			out = append(out, mid)
		}
	}
	slices.Sort(out)
	return out
}

// Dependants returns the matches that directly depend on id, sorted by id.
func (s *Sequence) Dependants(id string) []*match.Match {
	ids := s.DependantIDs(id)
	out := make([]*match.Match, len(ids))
	for i, dep := range ids {
		out[i] = s.registry[dep]
	}
	return out
}

// Importance counts the matches that depend on id, directly or transitively.
func (s *Sequence) Importance(id string) int {
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range s.DependantIDs(current) {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return len(seen) - 1
}

// Closure returns the sorted transitive dependencies of id. Dangling ids
// are included but not expanded. Unknown id yields ErrMatchNotFound.
func (s *Sequence) Closure(id string) ([]string, error) {
	root, ok := s.registry[id]
	if !ok {
		return nil, errors.Wrapf(ErrMatchNotFound, "closure of %s", id)
	}
	seen := map[string]bool{}
	stack := slices.Clone(root.DependsOn)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		if dep, ok := s.registry[current]; ok {
			stack = append(stack, dep.DependsOn...)
		}
	}
	out := make([]string, 0, len(seen))
	for dep := range seen {
		out = append(out, dep)
	}
	slices.Sort(out)
	return out, nil
}

// #endregion dependants

// #region clean
// CleanTo collapses every derivation inside the span of mainID down to the
// winning match, its dependency closure and the atomic units. Matches
// removed by the sweep are revoked with cascade. It returns the number of
// matches removed.
func (s *Sequence) CleanTo(mainID string) (int, error) {
	main, ok := s.registry[mainID]
	if !ok {
		return 0, errors.Wrapf(ErrMatchNotFound, "clean to %s", mainID)
	}
	closure, err := s.Closure(mainID)
	if err != nil {
		return 0, err
	}
	keep := map[string]bool{mainID: true}
	for _, id := range closure {
		keep[id] = true
	}

	span := main.Slot()
	removed := 0
	for _, m := range s.Matches() {
		if keep[m.ID] || m.Concept == s.opts.AtomicConcept || !span.Contains(m.Slot()) {
			continue
		}
		if _, live := s.registry[m.ID]; !live {
			continue
		}
		removed += s.Revoke(m.ID, true)
	}
	return removed, nil
}

// #endregion clean

// #region filters
// originMatches returns matches at their own start position that satisfy keep.
func (s *Sequence) originMatches(keep func(*match.Match) bool) []string {
	var ids []string
	for idx, p := range s.positions {
		for _, m := range p.matches {
			if m.Start == idx && keep(m) {
				ids = append(ids, m.ID)
			}
		}
	}
	return ids
}

// KeepOnly revokes, without cascade, every match whose concept is neither in
// concepts nor a descendant of one of them. It returns the number removed.
func (s *Sequence) KeepOnly(concepts []string, h hierarchy.Provider) int {
	ids := s.originMatches(func(m *match.Match) bool {
		return !hierarchy.IsAny(h, m.Concept, concepts)
	})
	removed := 0
	for _, id := range ids {
		removed += s.Revoke(id, false)
	}
	return removed
}

// Drop revokes every match whose concept is in concepts or descends from one
// of them. It returns the number removed, cascades included.
func (s *Sequence) Drop(concepts []string, h hierarchy.Provider, cascade bool) int {
	ids := s.originMatches(func(m *match.Match) bool {
		return hierarchy.IsAny(h, m.Concept, concepts)
	})
	removed := 0
	for _, id := range ids {
		removed += s.Revoke(id, cascade)
	}
	return removed
}

// Disable marks every position carrying a match of one of concepts.
// Disabled positions are skipped as rule anchors but stay in every span.
// It returns the number of positions newly disabled.
func (s *Sequence) Disable(concepts ...string) int {
	disabled := 0
	for _, p := range s.positions {
		if p.Disabled {
			continue
		}
		for _, c := range concepts {
			if p.Has(c) {
				p.Disabled = true
				disabled++
				break
			}
		}
	}
	return disabled
}

// #endregion filters
