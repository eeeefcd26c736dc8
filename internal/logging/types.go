package logging

import "time"

// #region fields
// Standard field names for structured engine logs.
const (
	FieldRunID     = "run_id"
	FieldPass      = "pass"
	FieldInserted  = "inserted"
	FieldRevoked   = "revoked"
	FieldConcept   = "concept"
	FieldMatchID   = "match_id"
	FieldPositions = "positions"
	FieldMaxPasses = "max_passes"
	FieldDuration  = "duration"
)

// #endregion fields

// #region config
// Config selects the logger encoding and level.
type Config struct {
	Level string // debug | info | warn | error
	JSON  bool
}

// #endregion config

// #region run-entry
// RunEntry is a single row in the extraction_runs table.
type RunEntry struct {
	RunID      string
	Input      string
	Status     string // "ok" | "no_fixpoint" | "error"
	Passes     int
	Inserted   int
	Revoked    int
	MatchCount int
	Detail     string
	CreatedAt  time.Time
}

// #endregion run-entry
