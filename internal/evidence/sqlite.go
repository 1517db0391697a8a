// Package evidence provides the SQLite-backed skill-evidence store consumed
// by the risk adjustment calculator. The store is read once per forecast,
// before the iteration loop; nothing in the hot path touches it.
package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/salesops/revenue-forecast/internal/risk"
)

// SQLiteStore implements risk.EvidenceSource over a SQLite database written
// by the skill-execution subsystem.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so forecast reads do not block the evidence producer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS skill_evidence (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			workspace_id TEXT NOT NULL,
			signal       TEXT NOT NULL,
			payload      TEXT,
			deal_ids     TEXT,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_lookup ON skill_evidence(workspace_id, signal, created_at)`,

		`CREATE TABLE IF NOT EXISTS owner_baselines (
			workspace_id   TEXT NOT NULL,
			owner          TEXT NOT NULL,
			avg_closed_won REAL NOT NULL,
			window_months  INTEGER NOT NULL,
			PRIMARY KEY (workspace_id, owner)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// RecentEvidence returns evidence rows for one signal no older than maxAge.
func (s *SQLiteStore) RecentEvidence(ctx context.Context, workspaceID, signal string, maxAge time.Duration) ([]risk.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).Unix()
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload, deal_ids FROM skill_evidence
		 WHERE workspace_id = ? AND signal = ? AND created_at >= ?
		 ORDER BY created_at, id`,
		workspaceID, signal, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var evidence []risk.Evidence
	for rows.Next() {
		var payload, dealIDs sql.NullString
		if err := rows.Scan(&payload, &dealIDs); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}

		ev := risk.Evidence{Signal: signal, Payload: payload.String}
		if dealIDs.Valid && dealIDs.String != "" {
			if err := json.Unmarshal([]byte(dealIDs.String), &ev.DealIDs); err != nil {
				// Malformed explicit list: fall back to payload scanning.
				ev.DealIDs = nil
			}
		}
		evidence = append(evidence, ev)
	}
	return evidence, rows.Err()
}

// OwnerAverageClosedWon returns the owner's trailing average closed-won deal
// size, or 0 when no baseline exists.
func (s *SQLiteStore) OwnerAverageClosedWon(ctx context.Context, workspaceID, owner string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg float64
	err := s.db.QueryRowContext(ctx,
		`SELECT avg_closed_won FROM owner_baselines WHERE workspace_id = ? AND owner = ?`,
		workspaceID, owner,
	).Scan(&avg)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query owner baseline: %w", err)
	}
	return avg, nil
}

// RecordEvidence inserts one evidence row. Used by the producer side and by
// tests; the forecast path only reads.
func (s *SQLiteStore) RecordEvidence(ctx context.Context, workspaceID, signal, payload string, dealIDs []string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var encoded string
	if len(dealIDs) > 0 {
		raw, err := json.Marshal(dealIDs)
		if err != nil {
			return fmt.Errorf("encode deal ids: %w", err)
		}
		encoded = string(raw)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skill_evidence (workspace_id, signal, payload, deal_ids, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		workspaceID, signal, payload, encoded, createdAt.Unix(),
	)
	return err
}

// SetOwnerBaseline upserts an owner's trailing closed-won average.
func (s *SQLiteStore) SetOwnerBaseline(ctx context.Context, workspaceID, owner string, avgClosedWon float64, windowMonths int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO owner_baselines (workspace_id, owner, avg_closed_won, window_months)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (workspace_id, owner) DO UPDATE
		 SET avg_closed_won = excluded.avg_closed_won, window_months = excluded.window_months`,
		workspaceID, owner, avgClosedWon, windowMonths,
	)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
