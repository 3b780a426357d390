// Package history persists one row per campaign run in SQLite, so past
// campaigns stay auditable after their ledger files have been archived.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed campaign run persistence
type Store struct {
	db *sql.DB
}

// New creates a Store at the given database path, creating parent
// directories as needed. ":memory:" is accepted for tests.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates a campaign run
func (s *Store) SaveRun(run *domain.CampaignRun) error {
	_, err := s.db.Exec(`
		INSERT INTO campaign_runs (id, start_ref, end_ref, ledger_path, format, unattended, status, started_at, finished_at, picked, skipped, conflicts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			picked = excluded.picked,
			skipped = excluded.skipped,
			conflicts = excluded.conflicts
	`,
		run.ID,
		run.StartRef,
		run.EndRef,
		run.LedgerPath,
		run.Format,
		run.Unattended,
		string(run.Status),
		run.StartedAt,
		run.FinishedAt,
		run.Picked,
		run.Skipped,
		run.Conflicts,
	)
	return err
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]*domain.CampaignRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, start_ref, end_ref, ledger_path, format, unattended, status, started_at, finished_at, picked, skipped, conflicts
		FROM campaign_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.CampaignRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.CampaignRun, error) {
	rows, err := s.db.Query(`
		SELECT id, start_ref, end_ref, ledger_path, format, unattended, status, started_at, finished_at, picked, skipped, conflicts
		FROM campaign_runs WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sql.ErrNoRows
	}
	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (*domain.CampaignRun, error) {
	var run domain.CampaignRun
	var status string
	var finishedAt sql.NullTime
	var startedAt time.Time
	err := rows.Scan(
		&run.ID,
		&run.StartRef,
		&run.EndRef,
		&run.LedgerPath,
		&run.Format,
		&run.Unattended,
		&status,
		&startedAt,
		&finishedAt,
		&run.Picked,
		&run.Skipped,
		&run.Conflicts,
	)
	if err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = startedAt
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
