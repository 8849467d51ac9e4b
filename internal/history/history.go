// Package history records every invocation and the mappings it executed in
// a local SQLite ledger, so past runs can be audited alongside the trash
// sessions they produced.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"fwt-go/internal/fwt"
	"fwt-go/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is a SQLite-backed invocation ledger.
type Store struct {
	db    *sql.DB
	clock fwt.Clock
	ids   fwt.IDGenerator
	path  string
}

// An Invocation is one recorded command run.
type Invocation struct {
	ID         string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Command    string
	Project    string
	Session    string
	Status     string
}

// A MappingRecord is one executed (or failed) mapping within an invocation.
type MappingRecord struct {
	InvocationID string
	Source       string
	Dest         string
	Trashed      bool
	Documents    int
	Occurrences  int
	Error        string
}

// Open opens (creating if needed) the ledger at path and migrates it to the
// latest schema. path can be ":memory:" for tests.
func Open(path string, clock fwt.Clock, ids fwt.IDGenerator) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, clock: clock, ids: ids, path: path}, nil
}

// RecordInvocation inserts a new running invocation and returns its id.
func (s *Store) RecordInvocation(command, project string) (string, error) {
	id := s.ids.New()
	_, err := s.db.Exec(
		`INSERT INTO invocations (id, started_at, command, project) VALUES (?, ?, ?, ?)`,
		id, s.clock.Now(), command, project,
	)
	if err != nil {
		return "", fmt.Errorf("recording invocation: %w", err)
	}
	return id, nil
}

// FinishInvocation marks an invocation finished with the given status and
// the trash session it used ("" when none was allocated).
func (s *Store) FinishInvocation(id, session, status string) error {
	_, err := s.db.Exec(
		`UPDATE invocations SET finished_at = ?, session = ?, status = ? WHERE id = ?`,
		s.clock.Now(), session, status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing invocation: %w", err)
	}
	return nil
}

// RecordMapping appends one executed mapping result to an invocation.
func (s *Store) RecordMapping(rec MappingRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO mappings (invocation_id, source, dest, trashed, documents, occurrences, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.InvocationID, rec.Source, rec.Dest, rec.Trashed, rec.Documents, rec.Occurrences, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("recording mapping: %w", err)
	}
	return nil
}

// ListInvocations returns the most recent invocations, newest first.
func (s *Store) ListInvocations(limit int) ([]Invocation, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, command, project, session, status
		 FROM invocations ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing invocations: %w", err)
	}
	defer rows.Close()

	var result []Invocation
	for rows.Next() {
		var inv Invocation
		err := rows.Scan(&inv.ID, &inv.StartedAt, &inv.FinishedAt,
			&inv.Command, &inv.Project, &inv.Session, &inv.Status)
		if err != nil {
			return nil, fmt.Errorf("scanning invocation: %w", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing invocations: %w", err)
	}
	return result, nil
}

// ListMappings returns the mappings recorded for one invocation, in
// execution order.
func (s *Store) ListMappings(invocationID string) ([]MappingRecord, error) {
	rows, err := s.db.Query(
		`SELECT invocation_id, source, dest, trashed, documents, occurrences, error
		 FROM mappings WHERE invocation_id = ? ORDER BY id`,
		invocationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var result []MappingRecord
	for rows.Next() {
		var rec MappingRecord
		err := rows.Scan(&rec.InvocationID, &rec.Source, &rec.Dest, &rec.Trashed,
			&rec.Documents, &rec.Occurrences, &rec.Error)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	return result, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
