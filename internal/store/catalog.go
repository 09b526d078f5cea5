package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/annotstore/annotstore/internal/models"
)

// Catalog is the SQLite run log: one row per create or update invocation,
// with the per-source results serialized alongside. It exists so the
// provenance of a store file can be inspected after the fact.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens the catalog database at dbPath, creating the schema on
// first use.
func OpenCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	c := &Catalog{db: db}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) initialize() error {
	schema := `
	-- Runs log (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		store_path TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		sources JSON NOT NULL
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

// RecordRun appends one run to the catalog and fills in its assigned ID.
func (c *Catalog) RecordRun(run *models.Run) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("marshal run sources: %w", err)
	}
	result, err := c.db.Exec(
		`INSERT INTO runs (command, store_path, started_at, duration_ms, sources)
		 VALUES (?, ?, ?, ?, ?)`,
		run.Command, run.StorePath, run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(), string(sources),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	run.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read run id: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first, up to limit. A limit of
// zero or less returns everything.
func (c *Catalog) Runs(limit int) ([]models.Run, error) {
	query := `SELECT id, command, store_path, started_at, duration_ms, sources
	          FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var startedAt string
		var durationMS int64
		var sources string
		if err := rows.Scan(&run.ID, &run.Command, &run.StorePath, &startedAt, &durationMS, &sources); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal run sources: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
