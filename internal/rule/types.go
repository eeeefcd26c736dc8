// Package rule implements declarative patterns: a rule is a concept name
// plus an ordered list of elements, each consuming one or more positions.
package rule

import (
	"github.com/cockroachdb/errors"
)

// ErrInvalidGrammar wraps every grammar validation failure.
var ErrInvalidGrammar = errors.New("invalid grammar")

// #region element
// Element consumes part of the input. Exactly one of Concept, Text or Any
// selects what it consumes.
type Element struct {
	// Concept consumes a match starting at the cursor whose concept is, or
	// descends from, Concept.
	Concept string `yaml:"concept,omitempty" json:"concept,omitempty"`
	// Text consumes the positions whose joined value equals Text.
	Text string `yaml:"text,omitempty" json:"text,omitempty"`
	// Any consumes one position.
	Any bool `yaml:"any,omitempty" json:"any,omitempty"`

	// Capture stores the consumed value under this key.
	Capture  string `yaml:"capture,omitempty" json:"capture,omitempty"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	// Many repeats the element; combined with Optional it may match zero times.
	Many bool `yaml:"many,omitempty" json:"many,omitempty"`

	// Assume lets a Concept element cover positions where no such match
	// starts, recording an assumed match of Concept over them.
	Assume       bool    `yaml:"assume,omitempty" json:"assume,omitempty"`
	AssumeWeight float64 `yaml:"assume_weight,omitempty" json:"assume_weight,omitempty"`
}

// DefaultAssumeWeight applies when an assuming element leaves AssumeWeight unset.
const DefaultAssumeWeight = 0.5

func (e Element) assumeWeight() float64 {
	if e.AssumeWeight <= 0 {
		return DefaultAssumeWeight
	}
	return e.AssumeWeight
}

// #endregion element

// #region rule
// Rule produces Concept over any span its elements consume in order.
type Rule struct {
	Concept string `yaml:"concept" json:"concept"`
	// Weight defaults to 1 when unset.
	Weight   float64   `yaml:"weight,omitempty" json:"weight,omitempty"`
	In       string    `yaml:"inside,omitempty" json:"inside,omitempty"`
	Elements []Element `yaml:"elements" json:"elements"`
}

func (r *Rule) weight() float64 {
	if r.Weight <= 0 {
		return 1
	}
	return r.Weight
}

// #endregion rule

// #region grammar
// Grammar is a rule file: the hierarchy, the single concepts and the rules.
type Grammar struct {
	Hierarchy map[string][]string `yaml:"hierarchy,omitempty" json:"hierarchy,omitempty"`
	Single    []string            `yaml:"single,omitempty" json:"single,omitempty"`
	Rules     []*Rule             `yaml:"rules" json:"rules"`
}

// #endregion grammar
