package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

const financeSchema = `
CREATE TABLE IF NOT EXISTS buckets (
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'flex',
	balance REAL NOT NULL DEFAULT 0,
	target REAL NOT NULL DEFAULT 0,
	priority INTEGER NOT NULL DEFAULT 0,
	is_protected BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (owner_id, name)
);
CREATE TABLE IF NOT EXISTS obligations (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	amount REAL NOT NULL,
	due_day INTEGER NOT NULL,
	bucket_name TEXT,
	is_flexible BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_obligations_owner ON obligations(owner_id);
CREATE TABLE IF NOT EXISTS income_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	amount REAL NOT NULL,
	platform TEXT
);
CREATE INDEX IF NOT EXISTS idx_income_owner_date ON income_events(owner_id, date);
CREATE TABLE IF NOT EXISTS expense_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	amount REAL NOT NULL,
	category TEXT
);
CREATE INDEX IF NOT EXISTS idx_expense_owner_date ON expense_events(owner_id, date);
CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	target REAL NOT NULL,
	saved REAL NOT NULL DEFAULT 0,
	target_date DATETIME
);
CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id);
CREATE TABLE IF NOT EXISTS advances (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	amount REAL NOT NULL,
	fee REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active',
	due_date DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_advances_owner ON advances(owner_id, status);
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	run_date DATETIME NOT NULL,
	mode TEXT,
	risk_score REAL,
	risk_level TEXT,
	key_insight TEXT,
	summary TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_owner ON runs(owner_id, run_date);
`

// SQLiteStore persists financial state in sqlite. Bucket writes are
// last-write-wins deltas; concurrent runs for the same owner are not
// coordinated here.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open finance db: %w", err)
	}
	if _, err := db.Exec(financeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply finance schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadContext(ctx context.Context, ownerID string, runDate time.Time) (*core.State, error) {
	state := core.NewState(ownerID, runDate)
	since := state.RunDate.AddDate(0, 0, -HistoryWindowDays).UTC()
	dayKey := state.RunDate.Format("2006-01-02")

	if err := s.loadBuckets(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadObligations(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadGoals(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadAdvances(ctx, state); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, amount, COALESCE(platform, '') FROM income_events
		WHERE owner_id = ? AND date >= ? ORDER BY date`, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load income history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e core.IncomeEvent
		if err := rows.Scan(&e.Date, &e.Amount, &e.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan income event: %w", err)
		}
		state.IncomeHistory = append(state.IncomeHistory, e)
		if e.Date.Format("2006-01-02") == dayKey {
			state.TodayIncome += e.Amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	expRows, err := s.db.QueryContext(ctx, `
		SELECT date, amount, COALESCE(category, '') FROM expense_events
		WHERE owner_id = ? AND date >= ? ORDER BY date`, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense history: %w", err)
	}
	defer expRows.Close()
	for expRows.Next() {
		var e core.ExpenseEvent
		if err := expRows.Scan(&e.Date, &e.Amount, &e.Category); err != nil {
			return nil, fmt.Errorf("failed to scan expense event: %w", err)
		}
		state.ExpenseHistory = append(state.ExpenseHistory, e)
	}
	return state, expRows.Err()
}

func (s *SQLiteStore) loadBuckets(ctx context.Context, state *core.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, balance, target, priority, is_protected
		FROM buckets WHERE owner_id = ? ORDER BY priority, name`, state.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load buckets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b core.Bucket
		if err := rows.Scan(&b.Name, &b.Kind, &b.Balance, &b.Target, &b.Priority, &b.IsProtected); err != nil {
			return fmt.Errorf("failed to scan bucket: %w", err)
		}
		state.Buckets = append(state.Buckets, b)
		state.BucketBalances[b.Name] = b.Balance
	}
	return rows.Err()
}

func (s *SQLiteStore) loadObligations(ctx context.Context, state *core.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, amount, due_day, COALESCE(bucket_name, ''), is_flexible
		FROM obligations WHERE owner_id = ?`, state.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load obligations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o core.Obligation
		if err := rows.Scan(&o.ID, &o.Name, &o.Amount, &o.DueDay, &o.BucketName, &o.IsFlexible); err != nil {
			return fmt.Errorf("failed to scan obligation: %w", err)
		}
		state.Obligations = append(state.Obligations, o)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadGoals(ctx context.Context, state *core.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, target, saved, target_date
		FROM goals WHERE owner_id = ?`, state.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load goals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g core.Goal
		var due sql.NullTime
		if err := rows.Scan(&g.ID, &g.Name, &g.Target, &g.Saved, &due); err != nil {
			return fmt.Errorf("failed to scan goal: %w", err)
		}
		if due.Valid {
			g.TargetDate = due.Time
		}
		state.Goals = append(state.Goals, g)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadAdvances(ctx context.Context, state *core.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, fee, status, due_date, created_at
		FROM advances WHERE owner_id = ? AND status = 'active'`, state.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load advances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a core.Advance
		var due sql.NullTime
		if err := rows.Scan(&a.ID, &a.Amount, &a.Fee, &a.Status, &due, &a.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan advance: %w", err)
		}
		if due.Valid {
			a.DueDate = due.Time
		}
		state.ActiveAdvances = append(state.ActiveAdvances, a)
	}
	return rows.Err()
}

func (s *SQLiteStore) AddToBucket(ctx context.Context, ownerID, bucket string, delta float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (owner_id, name, kind, balance) VALUES (?, ?, 'flex', ?)
		ON CONFLICT(owner_id, name) DO UPDATE SET balance = balance + excluded.balance`,
		ownerID, bucket, delta)
	if err != nil {
		return fmt.Errorf("failed to update bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, summary *core.RunSummary) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, owner_id, run_date, mode, risk_score, risk_level, key_insight, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.OwnerID, summary.RunDate.UTC(), summary.Mode,
		summary.RiskScore, summary.RiskLevel, summary.KeyInsight, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// UpsertBucket creates or replaces a bucket definition.
func (s *SQLiteStore) UpsertBucket(ctx context.Context, ownerID string, b core.Bucket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (owner_id, name, kind, balance, target, priority, is_protected)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, name) DO UPDATE SET
			kind = excluded.kind,
			balance = excluded.balance,
			target = excluded.target,
			priority = excluded.priority,
			is_protected = excluded.is_protected`,
		ownerID, b.Name, b.Kind, b.Balance, b.Target, b.Priority, b.IsProtected)
	if err != nil {
		return fmt.Errorf("failed to upsert bucket %s: %w", b.Name, err)
	}
	return nil
}

// AddObligation registers a recurring obligation.
func (s *SQLiteStore) AddObligation(ctx context.Context, ownerID string, o core.Obligation) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO obligations (id, owner_id, name, amount, due_day, bucket_name, is_flexible)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, ownerID, o.Name, o.Amount, o.DueDay, o.BucketName, o.IsFlexible)
	if err != nil {
		return fmt.Errorf("failed to add obligation %s: %w", o.Name, err)
	}
	return nil
}

// RecordIncome appends an income event.
func (s *SQLiteStore) RecordIncome(ctx context.Context, ownerID string, e core.IncomeEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO income_events (owner_id, date, amount, platform) VALUES (?, ?, ?, ?)`,
		ownerID, e.Date.UTC(), e.Amount, e.Platform)
	if err != nil {
		return fmt.Errorf("failed to record income: %w", err)
	}
	return nil
}

// RecordExpense appends an expense event.
func (s *SQLiteStore) RecordExpense(ctx context.Context, ownerID string, e core.ExpenseEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_events (owner_id, date, amount, category) VALUES (?, ?, ?, ?)`,
		ownerID, e.Date.UTC(), e.Amount, e.Category)
	if err != nil {
		return fmt.Errorf("failed to record expense: %w", err)
	}
	return nil
}

// UpsertGoal creates or updates a savings goal.
func (s *SQLiteStore) UpsertGoal(ctx context.Context, ownerID string, g core.Goal) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO goals (id, owner_id, name, target, saved, target_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, ownerID, g.Name, g.Target, g.Saved, g.TargetDate.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert goal %s: %w", g.Name, err)
	}
	return nil
}

// AddAdvance records a disbursed advance.
func (s *SQLiteStore) AddAdvance(ctx context.Context, ownerID string, a core.Advance) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO advances (id, owner_id, amount, fee, status, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, ownerID, a.Amount, a.Fee, a.Status, a.DueDate.UTC(), a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to add advance: %w", err)
	}
	return nil
}
