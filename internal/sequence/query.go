package sequence

import (
	"slices"
	"sort"
	"strings"

	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/match"
)

// #region slots
// Slots returns the span of every match that starts at its own position
// and whose concept is concept or, given a hierarchy, descends from it.
func (s *Sequence) Slots(concept string, h hierarchy.Provider) []match.Slot {
	var out []match.Slot
	for idx, p := range s.positions {
		for _, m := range p.matches {
			if m.Start != idx || !hierarchy.IsA(h, m.Concept, concept) {
				continue
			}
			out = append(out, m.Slot())
		}
	}
	return out
}

// #endregion slots

// #region to-list
// sortedAt returns the matches at a position ordered by span size, then
// concept name length, both descending. Ties keep insertion order.
func sortedAt(p *Position) []*match.Match {
	ms := slices.Clone(p.matches)
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Size != ms[j].Size {
			return ms[i].Size > ms[j].Size
		}
		return len(ms[i].Concept) > len(ms[j].Concept)
	})
	return ms
}

// ToList returns, per position, the (concept, value) of every covering match.
func (s *Sequence) ToList() [][]Entry {
	out := make([][]Entry, len(s.positions))
	for i, p := range s.positions {
		ms := sortedAt(p)
		row := make([]Entry, len(ms))
		for j, m := range ms {
			row[j] = Entry{Concept: m.Concept, Value: m.Value}
		}
		out[i] = row
	}
	return out
}

// Format renders one line per position. Concepts in hide are omitted; a
// position whose matches are all hidden falls back to its atomic match.
func (s *Sequence) Format(hide ...string) string {
	var b strings.Builder
	for _, p := range s.positions {
		ms := sortedAt(p)
		shown := make([]string, 0, len(ms))
		for _, m := range ms {
			if !slices.Contains(hide, m.Concept) {
				shown = append(shown, m.String())
			}
		}
		if len(shown) == 0 {
			for _, m := range ms {
				if m.Concept == s.opts.AtomicConcept {
					shown = append(shown, m.String())
				}
			}
		}
		b.WriteString(strings.Join(shown, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}

// #endregion to-list
