// Package storage persists orientation transitions for later inspection.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"orientd/orientation"
)

// TransitionStore records every published orientation change in SQLite.
type TransitionStore struct {
	db *sql.DB
}

// Open creates (or reuses) the transition database at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*TransitionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transition db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		state TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create transitions table: %w", err)
	}

	return &TransitionStore{db: db}, nil
}

// Close releases the database handle.
func (s *TransitionStore) Close() error {
	return s.db.Close()
}

// Record stores one transition.
func (s *TransitionStore) Record(tr orientation.Transition) error {
	_, err := s.db.Exec(
		`INSERT INTO transitions (ts, state, x, y) VALUES (?, ?, ?, ?)`,
		tr.Timestamp.UTC().Format(time.RFC3339Nano),
		tr.StateName,
		tr.Vector.X,
		tr.Vector.Y,
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// Recent returns up to n most recent transitions, newest first.
func (s *TransitionStore) Recent(n int) ([]orientation.Transition, error) {
	rows, err := s.db.Query(
		`SELECT ts, state, x, y FROM transitions ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []orientation.Transition
	for rows.Next() {
		var (
			tsRaw string
			name  string
			tr    orientation.Transition
		)
		if err := rows.Scan(&tsRaw, &name, &tr.Vector.X, &tr.Vector.Y); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse transition timestamp: %w", err)
		}
		tr.Timestamp = ts
		tr.StateName = name
		tr.State = stateFromName(name)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// CountByState returns how many transitions each state has received.
func (s *TransitionStore) CountByState() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT state, COUNT(*) FROM transitions GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count transitions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[name] = count
	}
	return out, rows.Err()
}

func stateFromName(name string) orientation.State {
	for _, s := range []orientation.State{
		orientation.Portrait,
		orientation.PortraitUpsideDown,
		orientation.LandscapeLeft,
		orientation.LandscapeRight,
	} {
		if s.String() == name {
			return s
		}
	}
	return orientation.Portrait
}
