package replay

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/agi-now/hpat/internal/rule"
)

// #region fixture-types

// Fixture is a grammar plus inputs with their expected extraction results.
type Fixture struct {
	Description string        `yaml:"description"`
	Grammar     rule.Grammar  `yaml:"grammar"`
	Config      FixtureConfig `yaml:"config"`
	Cases       []Case        `yaml:"cases"`
}

// FixtureConfig overrides engine settings for every case.
type FixtureConfig struct {
	// MaxPasses defaults to 1000 when zero.
	MaxPasses int `yaml:"max_passes"`
}

// Case is one input run through the grammar.
type Case struct {
	Name  string `yaml:"name"`
	Input string `yaml:"input"`
	// Tokens splits Input on whitespace instead of per character.
	Tokens bool   `yaml:"tokens"`
	Expect Expect `yaml:"expect"`
}

// Expect lists what a case must produce. Concepts and keys not listed are
// not checked.
type Expect struct {
	// Slots maps a concept to its expected [start, end) spans.
	Slots       map[string][][2]int `yaml:"slots"`
	Extractions map[string][]string `yaml:"extractions"`
	// Error is "no_fixpoint" when the run is expected to hit the pass cap.
	Error string `yaml:"error"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads, parses and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", path)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse fixture %s", path)
	}
	if err := f.Grammar.Validate(); err != nil {
		return nil, errors.Wrapf(err, "fixture %s", path)
	}
	if len(f.Cases) == 0 {
		return nil, errors.Newf("fixture %s has no cases", path)
	}
	return &f, nil
}

// #endregion fixture-loader
