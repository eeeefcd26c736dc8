package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/agi-now/hpat/internal/match"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// #region match-record
// MatchRecord is one persisted match of a run.
type MatchRecord struct {
	ID        string          `json:"id"`
	Concept   string          `json:"concept"`
	Value     string          `json:"value"`
	Start     int             `json:"start"`
	Size      int             `json:"size"`
	Kind      string          `json:"kind"`
	Weight    float64         `json:"weight"`
	Order     int64           `json:"order"`
	DependsOn []string        `json:"depends_on,omitempty"`
	Captures  match.Captures  `json:"captures,omitempty"`
	Structure json.RawMessage `json:"structure,omitempty"`
}

// End is one past the last covered position.
func (r MatchRecord) End() int { return r.Start + r.Size }

// #endregion match-record
