package sequence

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/agi-now/hpat/internal/match"
)

// #region errors
var (
	// ErrNotConsolidated is returned by Extract when the index changed since
	// the last Consolidate.
	ErrNotConsolidated = errors.New("sequence must be consolidated first")
	// ErrMatchNotFound is returned for ids that are not registered, including
	// ids left dangling by a non-cascading revoke.
	ErrMatchNotFound = errors.New("match not found")
)

// #endregion errors

// #region options
// DefaultAtomicConcept labels the size-1 match seeded at every position.
const DefaultAtomicConcept = "Character"

// Options configures a Sequence.
type Options struct {
	// AtomicConcept labels the seeded per-position matches.
	AtomicConcept string
	// RecurringConcepts may legitimately recur over one span with different
	// derivations; for them the dependency set is part of equivalence.
	RecurringConcepts []string
	// Separator joins position values when a span value is built.
	Separator string
}

// DefaultOptions returns the character-level defaults.
func DefaultOptions() Options {
	return Options{
		AtomicConcept:     DefaultAtomicConcept,
		RecurringConcepts: []string{"Sentence", "MakesSense"},
		Separator:         "",
	}
}

// TokenOptions returns DefaultOptions with a single-space separator.
func TokenOptions() Options {
	opts := DefaultOptions()
	opts.Separator = " "
	return opts
}

// #endregion options

// #region position
// Position is one element of the input. Positions are never destroyed;
// only their match set and Disabled flag change.
type Position struct {
	Value    string
	Disabled bool
	matches  []*match.Match
}

// Matches returns a copy of the matches covering this position, in
// insertion order.
func (p *Position) Matches() []*match.Match {
	return slices.Clone(p.matches)
}

// Has reports whether some covering match has concept.
func (p *Position) Has(concept string) bool {
	for _, m := range p.matches {
		if m.Concept == concept {
			return true
		}
	}
	return false
}

func (p *Position) contains(m *match.Match, recurring map[string]bool) bool {
	for _, saved := range p.matches {
		if saved.Concept != m.Concept || saved.Size != m.Size || saved.Start != m.Start {
			continue
		}
		if recurring[m.Concept] && !sameDependencies(saved.DependsOn, m.DependsOn) {
			continue
		}
		return true
	}
	return false
}

func (p *Position) add(m *match.Match, recurring map[string]bool) bool {
	if p.contains(m, recurring) {
		return false
	}
	p.matches = append(p.matches, m)
	return true
}

func (p *Position) remove(id string) {
	p.matches = slices.DeleteFunc(p.matches, func(m *match.Match) bool {
		return m.ID == id
	})
}

func sameDependencies(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

// #endregion position

// #region entry
// Entry is one (concept, value) row of ToList.
type Entry struct {
	Concept string `json:"concept"`
	Value   string `json:"value"`
}

// #endregion entry
