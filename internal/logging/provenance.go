package logging

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// #region log-run
// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// LogRun writes one extraction run to the extraction_runs table.
func LogRun(db Execer, entry RunEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO extraction_runs (run_id, input, status, passes, inserted, revoked, match_count, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Input,
		entry.Status,
		entry.Passes,
		entry.Inserted,
		entry.Revoked,
		entry.MatchCount,
		nullIfEmpty(entry.Detail),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "log run")
	}
	return nil
}

// #endregion log-run

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
