package extract

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/match"
	"github.com/agi-now/hpat/internal/metrics"
	"github.com/agi-now/hpat/internal/sequence"
)

// #region pattern
// Pattern is one rule. Match is called with a fresh state anchored at a
// position and returns every completion reachable from there, each as a
// main match followed by the assumed matches it introduces. It performs
// its own backtracking and must not retain st.
//
// Patterns shared by concurrent ApplyAll workers must be stateless.
type Pattern interface {
	Match(seq *sequence.Sequence, st *match.State, h hierarchy.Provider) []*match.Match
	// Inside names the concept the pattern must nest in, or "".
	Inside() string
}

// #endregion pattern

// #region errors
// ErrNoFixpoint is returned when MaxPasses passes still produced new matches.
var ErrNoFixpoint = errors.New("extraction did not reach a fixpoint")

// #endregion errors

// #region options
// Options configures an Engine.
type Options struct {
	// MaxPasses caps the fixpoint loop; 0 disables the cap.
	MaxPasses int
	// SingleConcepts allow at most one of their direct children per span.
	SingleConcepts []string
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// DefaultOptions returns a 1000-pass cap and no single concepts.
func DefaultOptions() Options {
	return Options{MaxPasses: 1000}
}

// #endregion options

// #region report
// Report summarizes one Apply.
type Report struct {
	Passes   int           `json:"passes"`
	Inserted int           `json:"inserted"`
	Revoked  int           `json:"revoked"`
	Duration time.Duration `json:"duration"`
}

// #endregion report
