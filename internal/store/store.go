// Package store persists extraction runs and their match graphs in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/agi-now/hpat/internal/extract"
	"github.com/agi-now/hpat/internal/logging"
	"github.com/agi-now/hpat/internal/sequence"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
	run_id      TEXT PRIMARY KEY,
	input       TEXT NOT NULL,
	status      TEXT NOT NULL,
	passes      INTEGER NOT NULL,
	inserted    INTEGER NOT NULL,
	revoked     INTEGER NOT NULL,
	match_count INTEGER NOT NULL,
	detail      TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_matches (
	run_id         TEXT NOT NULL,
	match_id       TEXT NOT NULL,
	concept        TEXT NOT NULL,
	value          TEXT NOT NULL,
	start          INTEGER NOT NULL,
	size           INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	weight         REAL NOT NULL,
	reg_order      INTEGER NOT NULL,
	captures_json  TEXT,
	structure_json TEXT,
	PRIMARY KEY (run_id, match_id),
	FOREIGN KEY (run_id) REFERENCES extraction_runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS match_deps (
	run_id     TEXT NOT NULL,
	match_id   TEXT NOT NULL,
	depends_on TEXT NOT NULL,
	PRIMARY KEY (run_id, match_id, depends_on),
	FOREIGN KEY (run_id, match_id) REFERENCES run_matches(run_id, match_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON extraction_runs(created_at);
`

// #endregion schema

// #region store-struct
// Store manages persisted runs.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// Open opens a SQLite database and runs migrations. ":memory:" is accepted
// and pinned to a single connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma fk")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB, shared with the hierarchy edge store.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region save-run
// SaveRun records a finished extraction and every live match of seq with
// its direct dependencies. A sequence left unconsolidated is recorded with
// status "no_fixpoint".
func (s *Store) SaveRun(runID, input string, seq *sequence.Sequence, rep extract.Report) error {
	status := "ok"
	if !seq.Consolidated() {
		status = "no_fixpoint"
	}
	matches := seq.Matches()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	err = logging.LogRun(tx, logging.RunEntry{
		RunID:      runID,
		Input:      input,
		Status:     status,
		Passes:     rep.Passes,
		Inserted:   rep.Inserted,
		Revoked:    rep.Revoked,
		MatchCount: len(matches),
		Detail:     rep.Duration.String(),
	})
	if err != nil {
		return err
	}

	for _, m := range matches {
		order, _ := seq.RegistrationOrder(m.ID)

		var captures, structure any
		if len(m.Captures) > 0 {
			b, err := json.Marshal(m.Captures)
			if err != nil {
				return errors.Wrapf(err, "marshal captures of %s", m.ID)
			}
			captures = string(b)
		}
		if m.Structure != nil {
			b, err := json.Marshal(m.Structure)
			if err != nil {
				return errors.Wrapf(err, "marshal structure of %s", m.ID)
			}
			structure = string(b)
		}

		_, err = tx.Exec(
			`INSERT INTO run_matches (run_id, match_id, concept, value, start, size, kind, weight, reg_order, captures_json, structure_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, m.ID, m.Concept, m.Value, m.Start, m.Size, m.Kind.String(), m.Weight, int64(order), captures, structure,
		)
		if err != nil {
			return errors.Wrapf(err, "insert match %s", m.ID)
		}
		for _, dep := range m.DependsOn {
			_, err = tx.Exec(
				`INSERT OR IGNORE INTO match_deps (run_id, match_id, depends_on) VALUES (?, ?, ?)`,
				runID, m.ID, dep,
			)
			if err != nil {
				return errors.Wrapf(err, "insert dependency %s -> %s", m.ID, dep)
			}
		}
	}


	return errors.Wrap(tx.Commit(), "commit")
}

// #endregion save-run

// #region runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]logging.RunEntry, error) {
	rows, err := s.db.Query(
		`SELECT run_id, input, status, passes, inserted, revoked, match_count, detail, created_at
		 FROM extraction_runs ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []logging.RunEntry
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run returns one run by id.
func (s *Store) Run(runID string) (logging.RunEntry, error) {
	row := s.db.QueryRow(
		`SELECT run_id, input, status, passes, inserted, revoked, match_count, detail, created_at
		 FROM extraction_runs WHERE run_id = ?`, runID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return logging.RunEntry{}, errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (logging.RunEntry, error) {
	var run logging.RunEntry
	var detail sql.NullString
	var createdStr string
	err := sc.Scan(&run.RunID, &run.Input, &run.Status, &run.Passes, &run.Inserted,
		&run.Revoked, &run.MatchCount, &detail, &createdStr)
	if err != nil {
		return logging.RunEntry{}, errors.Wrap(err, "scan run")
	}
	run.Detail = detail.String
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return run, nil
}

// #endregion runs

// #region matches
// RunMatches returns the matches of a run in registration order.
func (s *Store) RunMatches(runID string) ([]MatchRecord, error) {
	if _, err := s.Run(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT match_id, concept, value, start, size, kind, weight, reg_order, captures_json, structure_json
		 FROM run_matches WHERE run_id = ? ORDER BY reg_order`, runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list matches")
	}
	defer rows.Close()

	var records []MatchRecord
	index := map[string]int{}
	for rows.Next() {
		var rec MatchRecord
		var captures, structure sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Concept, &rec.Value, &rec.Start, &rec.Size,
			&rec.Kind, &rec.Weight, &rec.Order, &captures, &structure); err != nil {
			return nil, errors.Wrap(err, "scan match")
		}
		if captures.Valid {
			if err := json.Unmarshal([]byte(captures.String), &rec.Captures); err != nil {
				return nil, errors.Wrapf(err, "unmarshal captures of %s", rec.ID)
			}
		}
		if structure.Valid {
			rec.Structure = json.RawMessage(structure.String)
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	deps, err := s.db.Query(
		`SELECT match_id, depends_on FROM match_deps WHERE run_id = ? ORDER BY match_id, depends_on`, runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list dependencies")
	}
	defer deps.Close()
	for deps.Next() {
		var id, dep string
		if err := deps.Scan(&id, &dep); err != nil {
			return nil, errors.Wrap(err, "scan dependency")
		}
		if i, ok := index[id]; ok {
			records[i].DependsOn = append(records[i].DependsOn, dep)
		}
	}
	return records, deps.Err()
}

// Dependencies returns the sorted direct dependencies of one match.
func (s *Store) Dependencies(runID, matchID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT depends_on FROM match_deps WHERE run_id = ? AND match_id = ? ORDER BY depends_on`,
		runID, matchID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list dependencies")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, errors.Wrap(err, "scan dependency")
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

// #endregion matches
