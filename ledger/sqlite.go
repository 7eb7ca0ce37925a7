package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

const decisionSchema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	run_id TEXT,
	decision_type TEXT NOT NULL,
	input_summary TEXT,
	output TEXT,
	reasoning TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_owner ON decisions(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_decisions_type ON decisions(owner_id, decision_type, created_at);
`

// SQLiteStore is an append-only decision log backed by sqlite.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}
	if _, err := db.Exec(decisionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, d *core.Decision) error {
	stamp(d)

	input, err := json.Marshal(d.InputSummary)
	if err != nil {
		return fmt.Errorf("failed to encode input summary: %w", err)
	}
	output, err := json.Marshal(d.Output)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, owner_id, run_id, decision_type, input_summary, output, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.RunID, d.DecisionType, string(input), string(output), d.Reasoning, d.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error) {
	query := `
		SELECT id, owner_id, run_id, decision_type, input_summary, output, reasoning, created_at
		FROM decisions
		WHERE owner_id = ? AND created_at >= ?`
	args := []interface{}{ownerID, since.UTC()}
	if decisionType != "" {
		query += ` AND decision_type = ?`
		args = append(args, decisionType)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []*core.Decision
	for rows.Next() {
		var d core.Decision
		var input, output string
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.RunID, &d.DecisionType, &input, &output, &d.Reasoning, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if input != "" && input != "null" {
			_ = json.Unmarshal([]byte(input), &d.InputSummary)
		}
		if output != "" && output != "null" {
			_ = json.Unmarshal([]byte(output), &d.Output)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
