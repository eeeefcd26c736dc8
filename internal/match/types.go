package match

import (
	"fmt"
	"slices"
)

// #region kind
// Kind distinguishes a confirmed match from a speculative one introduced
// as a byproduct of another match's confirmation.
type Kind uint8

const (
	// Confirmed matches were produced by a completed rule.
	Confirmed Kind = iota
	// Assumed matches cover an element a rule took on trust.
	Assumed
)

func (k Kind) String() string {
	switch k {
	case Confirmed:
		return "confirmed"
	case Assumed:
		return "assumed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// #endregion kind

// #region slot
// Slot is a half-open span [Start, End) within a sequence.
type Slot struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Size returns End - Start.
func (s Slot) Size() int { return s.End - s.Start }

// Contains reports whether other lies entirely inside s.
func (s Slot) Contains(other Slot) bool {
	return other.Start >= s.Start && other.End <= s.End
}

func (s Slot) String() string { return fmt.Sprintf("(%d,%d)", s.Start, s.End) }

// #endregion slot

// #region match
// Match is one recognized span. It is never mutated after Finalize or
// NewMatch returns it; the sequence stores the same pointer in every
// position it covers.
type Match struct {
	ID      string
	Concept string
	Value   string
	Start   int
	Size    int
	Kind    Kind

	// DependsOn holds direct dependencies only.
	DependsOn []string
	Captures  Captures
	Structure *Structure
	Weight    float64
}

// End is the exclusive end index.
func (m *Match) End() int { return m.Start + m.Size }

// Slot returns the match span.
func (m *Match) Slot() Slot { return Slot{Start: m.Start, End: m.End()} }

// IsAssumed reports whether the match is speculative.
func (m *Match) IsAssumed() bool { return m.Kind == Assumed }

// DependsOnID reports whether id is a direct dependency.
func (m *Match) DependsOnID(id string) bool {
	return slices.Contains(m.DependsOn, id)
}

func (m *Match) String() string {
	weight := ""
	if m.Weight != 1 {
		weight = fmt.Sprintf(" %.0f%%", m.Weight*100)
	}
	return fmt.Sprintf("<%s %q [%d]%s>", m.Concept, m.Value, m.Size, weight)
}

// #endregion match

// #region assumption
// Assumption is a speculative sub-concept recorded while a rule is being
// evaluated. It becomes an Assumed match depending on the main match.
type Assumption struct {
	Start   int
	End     int
	Concept string
	Weight  float64
}

// #endregion assumption

// #region source
// Source is the read side of a sequence that finalization needs.
type Source interface {
	// Slice returns the covered value for [start, end).
	Slice(start, end int) string
	// Lookup returns a registered match; ok is false for unknown ids.
	Lookup(id string) (m *Match, ok bool)
}

// #endregion source
