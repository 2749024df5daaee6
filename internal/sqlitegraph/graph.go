// Package sqlitegraph cooks locations out of a SQLite nodes table. It is a
// read-only tree source: cook resolves one row, children and attrs are
// stored as JSON, and missing rows cook as nonexistent.
package sqlitegraph

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"canopy/pkg/cook"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	path     TEXT PRIMARY KEY,
	type     TEXT NOT NULL DEFAULT '',
	parallel INTEGER NOT NULL DEFAULT 1,
	marked   INTEGER NOT NULL DEFAULT 0,
	attrs    TEXT NOT NULL DEFAULT '{}',
	children TEXT NOT NULL DEFAULT '[]'
);`

// Graph reads a node tree from SQLite. It implements cook.Client; Sync is a
// watermark no-op since the database is not written while traversing.
type Graph struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Graph, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Graph{db: db}, nil
}

func (g *Graph) Close() error { return g.db.Close() }

// Row is one node to seed into the database.
type Row struct {
	Path     string
	Type     string
	Parallel bool
	Marked   bool
	Attrs    map[string]any
	Children []string
}

// Seed inserts or replaces rows in one transaction.
func (g *Graph) Seed(rows []Row) error {
	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range rows {
		attrs := r.Attrs
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("marshal attrs for %s: %w", r.Path, err)
		}
		children := r.Children
		if children == nil {
			children = []string{}
		}
		childrenJSON, err := json.Marshal(children)
		if err != nil {
			return fmt.Errorf("marshal children for %s: %w", r.Path, err)
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO nodes (path, type, parallel, marked, attrs, children)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.Path, r.Type, boolInt(r.Parallel), boolInt(r.Marked),
			string(attrsJSON), string(childrenJSON))
		if err != nil {
			return fmt.Errorf("insert %s: %w", r.Path, err)
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Cook implements cook.Client.
func (g *Graph) Cook(path string, evict bool) (cook.NodeData, error) {
	_ = evict // nothing cached per cook

	var (
		nodeType     string
		parallel     int
		marked       int
		attrsJSON    string
		childrenJSON string
	)
	err := g.db.QueryRow(
		"SELECT type, parallel, marked, attrs, children FROM nodes WHERE path = ?", path,
	).Scan(&nodeType, &parallel, &marked, &attrsJSON, &childrenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return cook.NodeData{Path: path}, nil
	}
	if err != nil {
		return cook.NodeData{}, fmt.Errorf("cook %s: %w", path, err)
	}

	attrs := cook.Attrs{}
	if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
		return cook.NodeData{}, fmt.Errorf("decode attrs for %s: %w", path, err)
	}
	if nodeType != "" {
		attrs[cook.AttrLeafType] = nodeType
	}
	attrs[cook.AttrParallelTraversal] = parallel != 0
	if marked != 0 {
		attrs[cook.AttrLiveMarked] = true
	}

	var children []string
	if err := json.Unmarshal([]byte(childrenJSON), &children); err != nil {
		return cook.NodeData{}, fmt.Errorf("decode children for %s: %w", path, err)
	}

	return cook.NodeData{
		Path:              path,
		Exists:            true,
		Attrs:             attrs,
		PotentialChildren: children,
	}, nil
}

// Sync implements cook.Client. The database is static during a traversal,
// so the watermark never advances.
func (g *Graph) Sync(from cook.Client, lastVersion uint64) (uint64, error) {
	_ = from
	return lastVersion, nil
}
