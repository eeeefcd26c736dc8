package hierarchy

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS concept_edges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    parent      TEXT NOT NULL,
    child       TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    UNIQUE(parent, child)
);
CREATE INDEX IF NOT EXISTS idx_concept_edges_parent ON concept_edges(parent);
CREATE INDEX IF NOT EXISTS idx_concept_edges_child ON concept_edges(child);
`

// #endregion schema

// #region types
// SQLStore persists parent -> child concept edges.
type SQLStore struct {
	db *sql.DB
}

// #endregion types

// #region constructor
// NewSQLStore creates tables and returns a SQLStore.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "hierarchy schema")
	}
	return &SQLStore{db: db}, nil
}

// #endregion constructor

// #region add-edge
// AddEdge records child as a direct child of parent. Existing edges are ignored.
func (s *SQLStore) AddEdge(parent, child string) error {
	if parent == child {
		return errors.Newf("concept %q cannot be its own parent", parent)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO concept_edges (parent, child, created_at) VALUES (?, ?, ?)`,
		parent, child, now,
	)
	return errors.Wrapf(err, "add edge %s -> %s", parent, child)
}

// Import adds every edge of a parent -> children map in one transaction.
func (s *SQLStore) Import(children map[string][]string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	added := 0
	for parent, kids := range children {
		for _, child := range kids {
			res, err := tx.Exec(
				`INSERT OR IGNORE INTO concept_edges (parent, child, created_at) VALUES (?, ?, ?)`,
				parent, child, now,
			)
			if err != nil {
				return 0, errors.Wrapf(err, "import edge %s -> %s", parent, child)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return added, nil
}

// #endregion add-edge

// #region children
// Children returns the direct children of concept, sorted.
func (s *SQLStore) Children(concept string) ([]string, error) {
	return s.column(`SELECT child FROM concept_edges WHERE parent = ? ORDER BY child`, concept)
}

func (s *SQLStore) directParents(concept string) ([]string, error) {
	return s.column(`SELECT parent FROM concept_edges WHERE child = ? ORDER BY parent`, concept)
}

func (s *SQLStore) column(query, arg string) ([]string, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// #endregion children

// #region parents
// Parents performs a BFS up the edge table and returns every ancestor of
// concept in visit order.
func (s *SQLStore) Parents(concept string) ([]string, error) {
	visited := map[string]bool{concept: true}
	var result []string
	queue := []string{concept}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		parents, err := s.directParents(current)
		if err != nil {
			return result, errors.Wrap(err, "walk parents")
		}
		for _, p := range parents {
			if visited[p] {
				continue
			}
			visited[p] = true
			result = append(result, p)
			queue = append(queue, p)
		}
	}
	return result, nil
}

// #endregion parents

// #region snapshot
// Snapshot loads every edge into a Static provider.
func (s *SQLStore) Snapshot() (*Static, error) {
	rows, err := s.db.Query(`SELECT parent, child FROM concept_edges ORDER BY parent, child`)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot edges")
	}
	defer rows.Close()

	children := map[string][]string{}
	for rows.Next() {
		var parent, child string
		if err := rows.Scan(&parent, &child); err != nil {
			return nil, err
		}
		children[parent] = append(children[parent], child)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewStatic(children), nil
}

// #endregion snapshot

// #region sever
// RemoveConcept deletes every edge where concept is parent or child.
func (s *SQLStore) RemoveConcept(concept string) error {
	_, err := s.db.Exec(
		`DELETE FROM concept_edges WHERE parent = ? OR child = ?`,
		concept, concept,
	)
	return err
}

// #endregion sever
