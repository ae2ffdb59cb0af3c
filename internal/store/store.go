// Package store implements the persistence collaborator for planfactor:
// schemes, goal trees, classifiers, and factor evaluation results in
// SQLite. Every exported method is its own transaction; callers treat
// failures as soft errors and keep the in-memory session authoritative.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/planfactor/planfactor/internal/goaltree"
	"github.com/planfactor/planfactor/internal/scoring"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Scheme is a named, independently persisted workspace: one goal tree
// plus its classifiers and evaluation results.
type Scheme struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Classifier is a persisted classifier with its ordered item values.
type Classifier struct {
	ID       int64    `json:"id"`
	SchemeID int64    `json:"scheme_id"`
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Items    []string `json:"items"`
}

// Config holds store configuration.
type Config struct {
	DataDir string
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the sqlite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// New creates a Store, creating the data directory if needed, opening
// SQLite with WAL mode, and running migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "planfactor.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schemes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS goals (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
			parent_id INTEGER REFERENCES goals(id) ON DELETE CASCADE,
			name      TEXT NOT NULL,
			level     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_goals_scheme ON goals(scheme_id);

		CREATE TABLE IF NOT EXISTS classifiers (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
			name      TEXT NOT NULL,
			level     INTEGER NOT NULL,
			UNIQUE(scheme_id, name, level)
		);

		CREATE TABLE IF NOT EXISTS classifier_items (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			classifier_id INTEGER NOT NULL REFERENCES classifiers(id) ON DELETE CASCADE,
			value         TEXT NOT NULL,
			UNIQUE(classifier_id, value)
		);

		CREATE TABLE IF NOT EXISTS ose_results (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			scheme_id INTEGER NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
			goal      TEXT NOT NULL,
			factor    TEXT NOT NULL,
			p         REAL,
			q         REAL,
			h         REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_ose_scheme ON ose_results(scheme_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Schemes ─────────────────────────────────────────────────────────────────

// ListSchemes returns all schemes, newest first.
func (s *Store) ListSchemes() ([]Scheme, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM schemes ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list schemes: %w", err)
	}
	defer rows.Close()

	var out []Scheme
	for rows.Next() {
		var sc Scheme
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// CreateScheme creates a new named scheme.
func (s *Store) CreateScheme(name string) (Scheme, error) {
	res, err := s.db.Exec(`INSERT INTO schemes (name) VALUES (?)`, name)
	if err != nil {
		return Scheme{}, fmt.Errorf("store: create scheme: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Scheme{}, err
	}
	return s.GetScheme(id)
}

// GetScheme returns one scheme by id.
func (s *Store) GetScheme(id int64) (Scheme, error) {
	var sc Scheme
	err := s.db.QueryRow(`SELECT id, name, created_at FROM schemes WHERE id = ?`, id).
		Scan(&sc.ID, &sc.Name, &sc.CreatedAt)
	if err != nil {
		return Scheme{}, fmt.Errorf("store: get scheme %d: %w", id, err)
	}
	return sc, nil
}

// DeleteScheme removes a scheme and, via foreign keys, all of its goals,
// classifiers, and results.
func (s *Store) DeleteScheme(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM schemes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete scheme %d: %w", id, err)
	}
	return nil
}

// ─── Goals ───────────────────────────────────────────────────────────────────

// ReplaceGoals replaces the persisted tree for a scheme: all prior goal
// rows are deleted and the flat node list (pre-order, parents first) is
// reinserted. It returns a mapping from the in-memory node ids to the
// generated row ids so the tree can adopt them.
func (s *Store) ReplaceGoals(schemeID int64, nodes []goaltree.FlatNode) (map[int]int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: replace goals: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM goals WHERE scheme_id = ?`, schemeID); err != nil {
		return nil, fmt.Errorf("store: replace goals: clear: %w", err)
	}

	mapping := make(map[int]int, len(nodes))
	for _, n := range nodes {
		var parent any
		if n.ParentID != nil {
			mapped, ok := mapping[*n.ParentID]
			if !ok {
				return nil, fmt.Errorf("store: replace goals: node %q has unknown parent %d", n.Name, *n.ParentID)
			}
			parent = mapped
		}
		res, err := tx.Exec(
			`INSERT INTO goals (scheme_id, parent_id, name, level) VALUES (?, ?, ?, ?)`,
			schemeID, parent, n.Name, n.Level,
		)
		if err != nil {
			return nil, fmt.Errorf("store: replace goals: insert %q: %w", n.Name, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		mapping[n.ID] = int(rowID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: replace goals: commit: %w", err)
	}
	return mapping, nil
}

// LoadGoals returns a scheme's persisted tree as a flat node list with
// parents before children (insertion order is pre-order).
func (s *Store) LoadGoals(schemeID int64) ([]goaltree.FlatNode, error) {
	rows, err := s.db.Query(
		`SELECT id, parent_id, name, level FROM goals WHERE scheme_id = ? ORDER BY id`,
		schemeID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: load goals: %w", err)
	}
	defer rows.Close()

	var out []goaltree.FlatNode
	for rows.Next() {
		var fn goaltree.FlatNode
		var parent sql.NullInt64
		if err := rows.Scan(&fn.ID, &parent, &fn.Name, &fn.Level); err != nil {
			return nil, err
		}
		if parent.Valid {
			pid := int(parent.Int64)
			fn.ParentID = &pid
		}
		out = append(out, fn)
	}
	return out, rows.Err()
}

// ─── Classifiers ─────────────────────────────────────────────────────────────

// ListClassifiers returns a scheme's classifiers (without items), ordered
// by level then name.
func (s *Store) ListClassifiers(schemeID int64) ([]Classifier, error) {
	rows, err := s.db.Query(
		`SELECT id, scheme_id, name, level FROM classifiers WHERE scheme_id = ? ORDER BY level, name`,
		schemeID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list classifiers: %w", err)
	}
	defer rows.Close()

	var out []Classifier
	for rows.Next() {
		var c Classifier
		if err := rows.Scan(&c.ID, &c.SchemeID, &c.Name, &c.Level); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateClassifier creates a classifier for (scheme, name, level).
func (s *Store) CreateClassifier(schemeID int64, name string, level int) (Classifier, error) {
	res, err := s.db.Exec(
		`INSERT INTO classifiers (scheme_id, name, level) VALUES (?, ?, ?)`,
		schemeID, name, level,
	)
	if err != nil {
		return Classifier{}, fmt.Errorf("store: create classifier %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Classifier{}, err
	}
	return Classifier{ID: id, SchemeID: schemeID, Name: name, Level: level}, nil
}

// AddClassifierItem appends a value to a classifier. Duplicate values are
// ignored (the UNIQUE constraint makes the insert a no-op).
func (s *Store) AddClassifierItem(classifierID int64, value string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO classifier_items (classifier_id, value) VALUES (?, ?)`,
		classifierID, value,
	)
	if err != nil {
		return fmt.Errorf("store: add classifier item %q: %w", value, err)
	}
	return nil
}

// GetClassifierWithItems returns a classifier with its items in insertion
// order, looked up by case-insensitive name. level 0 matches any level.
// Returns (nil, nil) when no classifier matches.
func (s *Store) GetClassifierWithItems(schemeID int64, name string, level int) (*Classifier, error) {
	query := `SELECT id, scheme_id, name, level FROM classifiers
		WHERE scheme_id = ? AND name = ? COLLATE NOCASE`
	args := []any{schemeID, name}
	if level > 0 {
		query += ` AND level = ?`
		args = append(args, level)
	}
	var c Classifier
	err := s.db.QueryRow(query, args...).Scan(&c.ID, &c.SchemeID, &c.Name, &c.Level)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get classifier %q: %w", name, err)
	}

	rows, err := s.db.Query(
		`SELECT value FROM classifier_items WHERE classifier_id = ? ORDER BY id`,
		c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: classifier items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, v)
	}
	return &c, rows.Err()
}

// DeleteClassifier removes a classifier (any level) and its items.
func (s *Store) DeleteClassifier(schemeID int64, name string) error {
	_, err := s.db.Exec(
		`DELETE FROM classifiers WHERE scheme_id = ? AND name = ? COLLATE NOCASE`,
		schemeID, name,
	)
	if err != nil {
		return fmt.Errorf("store: delete classifier %q: %w", name, err)
	}
	return nil
}

// ─── Evaluation results ──────────────────────────────────────────────────────

// ReplaceOseResults replaces a scheme's persisted factor evaluation rows
// with the given list (base rows and summaries alike).
func (s *Store) ReplaceOseResults(schemeID int64, results []scoring.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: replace results: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ose_results WHERE scheme_id = ?`, schemeID); err != nil {
		return fmt.Errorf("store: replace results: clear: %w", err)
	}
	for _, r := range results {
		var p, q any
		if r.P != nil {
			p = *r.P
		}
		if r.Q != nil {
			q = *r.Q
		}
		if _, err := tx.Exec(
			`INSERT INTO ose_results (scheme_id, goal, factor, p, q, h) VALUES (?, ?, ?, ?, ?, ?)`,
			schemeID, r.Goal, r.Factor, p, q, r.H,
		); err != nil {
			return fmt.Errorf("store: replace results: insert: %w", err)
		}
	}
	return tx.Commit()
}

// LoadOseResults returns a scheme's persisted evaluation rows in
// insertion order.
func (s *Store) LoadOseResults(schemeID int64) ([]scoring.Row, error) {
	rows, err := s.db.Query(
		`SELECT goal, factor, p, q, h FROM ose_results WHERE scheme_id = ? ORDER BY id`,
		schemeID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: load results: %w", err)
	}
	defer rows.Close()

	var out []scoring.Row
	for rows.Next() {
		var r scoring.Row
		var p, q sql.NullFloat64
		if err := rows.Scan(&r.Goal, &r.Factor, &p, &q, &r.H); err != nil {
			return nil, err
		}
		if p.Valid {
			v := p.Float64
			r.P = &v
		}
		if q.Valid {
			v := q.Float64
			r.Q = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
