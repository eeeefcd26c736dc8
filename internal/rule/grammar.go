package rule

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/agi-now/hpat/internal/extract"
	"github.com/agi-now/hpat/internal/hierarchy"
)

// #region load
// Load reads and validates a grammar file.
func Load(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read grammar %s", path)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "grammar %s", path)
	}
	return g, nil
}

// Parse decodes and validates grammar YAML.
func Parse(data []byte) (*Grammar, error) {
	var g Grammar
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode grammar"), ErrInvalidGrammar)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// #endregion load

// #region validate
// Validate checks every rule. Failures are marked with ErrInvalidGrammar.
func (g *Grammar) Validate() error {
	if len(g.Rules) == 0 {
		return errors.Wrap(ErrInvalidGrammar, "no rules")
	}
	for i, r := range g.Rules {
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "rule %d", i)
		}
	}
	for parent, children := range g.Hierarchy {
		for _, child := range children {
			if child == parent {
				return errors.Wrapf(ErrInvalidGrammar, "hierarchy: %s is its own child", parent)
			}
		}
	}
	return nil
}

// Validate checks one rule.
func (r *Rule) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidGrammar, "empty rule")
	}
	if r.Concept == "" {
		return errors.Wrap(ErrInvalidGrammar, "missing concept")
	}
	if r.Weight < 0 || r.Weight > 1 {
		return errors.Wrapf(ErrInvalidGrammar, "%s: weight %v outside [0,1]", r.Concept, r.Weight)
	}
	if len(r.Elements) == 0 {
		return errors.Wrapf(ErrInvalidGrammar, "%s: no elements", r.Concept)
	}

	required := 0
	for i, el := range r.Elements {
		kinds := 0
		if el.Concept != "" {
			kinds++
		}
		if el.Text != "" {
			kinds++
		}
		if el.Any {
			kinds++
		}
		if kinds != 1 {
			return errors.Wrapf(ErrInvalidGrammar, "%s: element %d needs exactly one of concept, text, any", r.Concept, i)
		}
		if el.Assume && el.Concept == "" {
			return errors.Wrapf(ErrInvalidGrammar, "%s: element %d assumes without a concept", r.Concept, i)
		}
		if el.AssumeWeight < 0 || el.AssumeWeight > 1 {
			return errors.Wrapf(ErrInvalidGrammar, "%s: element %d assume_weight outside [0,1]", r.Concept, i)
		}
		if !el.Optional {
			required++
		}
	}
	if required == 0 {
		return errors.Wrapf(ErrInvalidGrammar, "%s: every element is optional", r.Concept)
	}
	return nil
}

// #endregion validate

// #region wiring
// Patterns returns the rules as engine patterns, in file order.
func (g *Grammar) Patterns() []extract.Pattern {
	out := make([]extract.Pattern, 0, len(g.Rules))
	for _, r := range g.Rules {
		out = append(out, r)
	}
	return out
}

// Provider returns the inline hierarchy; an empty one when the grammar has none.
func (g *Grammar) Provider() *hierarchy.Static {
	if len(g.Hierarchy) == 0 {
		return hierarchy.None()
	}
	return hierarchy.NewStatic(g.Hierarchy)
}

// #endregion wiring
