// Package duckdb persists classified splicing events and caches parsed gene
// models. Gene models are cached as gob files next to their GTF source.
// Events are stored in DuckDB (queryable, one row per event per run).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding classification runs and events.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			source VARCHAR,
			started_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS splice_events (
			run_id VARCHAR,
			event_id VARCHAR,
			event_type VARCHAR,
			included_exons VARCHAR,
			excluded_exons VARCHAR,
			pre_exon VARCHAR,
			post_exon VARCHAR,
			strand VARCHAR,
			gene_id VARCHAR,
			gene_name VARCHAR,
			included_transcript VARCHAR,
			excluded_transcript VARCHAR,
			PRIMARY KEY (run_id, event_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
