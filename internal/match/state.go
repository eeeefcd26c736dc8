package match

import (
	"slices"

	"github.com/google/uuid"
)

// #region new-match
// NewMatch builds a confirmed match with a fresh id. Weight is clamped to [0,1].
func NewMatch(concept, value string, start, size int, weight float64) *Match {
	return &Match{
		ID:       uuid.New().String(),
		Concept:  concept,
		Value:    value,
		Start:    start,
		Size:     size,
		Kind:     Confirmed,
		Captures: Captures{},
		Weight:   clampWeight(weight),
	}
}

// #endregion new-match

// #region state
// State accumulates one in-flight rule attempt anchored at Start.
// A rule explores alternatives by forking; forks never share mutable
// accumulators, so sibling branches cannot observe each other.
type State struct {
	// Cursor is the next sequence position to consume.
	Cursor int
	// RuleCursor is the next rule element to evaluate.
	RuleCursor int
	Start      int
	// End is -1 until Confirm is called.
	End int

	Captures    Captures
	Data        *Data
	Assumptions []Assumption
	DependsOn   []string
}

// NewState anchors an attempt at start.
func NewState(start int) *State {
	return &State{
		Cursor:   start,
		Start:    start,
		End:      -1,
		Captures: Captures{},
		Data:     NewData(),
	}
}

// Fork returns an independent copy advanced by ruleDelta elements and
// seqDelta positions.
func (s *State) Fork(ruleDelta, seqDelta int) *State {
	return &State{
		Cursor:      s.Cursor + seqDelta,
		RuleCursor:  s.RuleCursor + ruleDelta,
		Start:       s.Start,
		End:         s.End,
		Captures:    s.Captures.Clone(),
		Data:        s.Data.Clone(),
		Assumptions: slices.Clone(s.Assumptions),
		DependsOn:   slices.Clone(s.DependsOn),
	}
}

// Capture records a flat key/value extraction.
func (s *State) Capture(key, value string) {
	s.Captures.Add(key, value)
}

// AddData records a structured value. many forces list semantics.
func (s *State) AddData(key string, value Value, many bool) {
	s.Data.Add(key, value, many)
}

// Depend records a direct dependency on a registered match.
func (s *State) Depend(id string) {
	if !slices.Contains(s.DependsOn, id) {
		s.DependsOn = append(s.DependsOn, id)
	}
}

// Assume records a speculative sub-concept over [start, end).
func (s *State) Assume(start, end int, concept string, weight float64) {
	s.Assumptions = append(s.Assumptions, Assumption{
		Start:   start,
		End:     end,
		Concept: concept,
		Weight:  weight,
	})
}

// Confirm fixes the end of the span being built.
func (s *State) Confirm(end int) {
	s.End = end
}

// Confirmed reports whether Confirm has been called.
func (s *State) Confirmed() bool { return s.End >= 0 }

// #endregion state

// #region finalize
// Finalize turns a confirmed state into its main match followed by one
// Assumed match per recorded assumption. The main match weight is the
// minimum of weight and every dependency's weight; dependencies missing
// from src are skipped here and rejected later by the sequence.
// Returns nil when the state was never confirmed.
func (s *State) Finalize(src Source, concept string, weight float64) []*Match {
	if !s.Confirmed() {
		return nil
	}

	weight = clampWeight(weight)
	for _, id := range s.DependsOn {
		dep, ok := src.Lookup(id)
		if !ok {
			continue
		}
		weight = min(weight, dep.Weight)
	}

	var structure *Structure
	if s.Data.Len() > 0 {
		structure = &Structure{Concept: concept, Data: s.Data.Clone()}
	}

	main := &Match{
		ID:        uuid.New().String(),
		Concept:   concept,
		Value:     src.Slice(s.Start, s.End),
		Start:     s.Start,
		Size:      s.End - s.Start,
		Kind:      Confirmed,
		DependsOn: slices.Clone(s.DependsOn),
		Captures:  s.Captures.Clone(),
		Structure: structure,
		Weight:    weight,
	}

	matches := make([]*Match, 0, 1+len(s.Assumptions))
	matches = append(matches, main)
	for _, a := range s.Assumptions {
		matches = append(matches, &Match{
			ID:        uuid.New().String(),
			Concept:   a.Concept,
			Value:     src.Slice(a.Start, a.End),
			Start:     a.Start,
			Size:      a.End - a.Start,
			Kind:      Assumed,
			DependsOn: []string{main.ID},
			Captures:  Captures{},
			Weight:    min(clampWeight(a.Weight), main.Weight),
		})
	}
	return matches
}

// Value returns the covered value of a confirmed state.
func (s *State) Value(src Source) string {
	if !s.Confirmed() {
		return ""
	}
	return src.Slice(s.Start, s.End)
}

// #endregion finalize

func clampWeight(w float64) float64 {
	return max(0, min(1, w))
}
