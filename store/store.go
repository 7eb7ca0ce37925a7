// Package store persists the owner's financial world: buckets,
// obligations, income and expense events, goals, and advances. Each
// agent run starts by loading a context snapshot from here and ends by
// recording its summary.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// HistoryWindowDays bounds the income and expense history loaded into
// a run. Pattern analysis never looks further back than this.
const HistoryWindowDays = 30

// Store is the persistence contract for financial state.
type Store interface {
	// LoadContext builds a run state seeded with the owner's buckets,
	// obligations, goals, active advances, and the trailing history
	// window of income and expense events.
	LoadContext(ctx context.Context, ownerID string, runDate time.Time) (*core.State, error)

	// AddToBucket applies a delta to a bucket balance, creating the
	// bucket as a flex bucket when it does not exist yet.
	AddToBucket(ctx context.Context, ownerID, bucket string, delta float64) error

	// SaveRun records a finished run's summary.
	SaveRun(ctx context.Context, summary *core.RunSummary) error
}

// Profile is one owner's seed data for the in-memory store.
type Profile struct {
	Buckets     []core.Bucket
	Obligations []core.Obligation
	Income      []core.IncomeEvent
	Expenses    []core.ExpenseEvent
	Goals       []core.Goal
	Advances    []core.Advance
}

// MemoryStore keeps financial state in memory. Useful for tests and
// demos that do not want a database on disk.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	runs     map[string][]*core.RunSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
		runs:     make(map[string][]*core.RunSummary),
	}
}

// SetProfile replaces the owner's seed data.
func (m *MemoryStore) SetProfile(ownerID string, p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.profiles[ownerID] = &cp
}

// RecordIncome appends an income event for the owner.
func (m *MemoryStore) RecordIncome(ownerID string, e core.IncomeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profile(ownerID)
	p.Income = append(p.Income, e)
}

// RecordExpense appends an expense event for the owner.
func (m *MemoryStore) RecordExpense(ownerID string, e core.ExpenseEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profile(ownerID)
	p.Expenses = append(p.Expenses, e)
}

func (m *MemoryStore) profile(ownerID string) *Profile {
	p, ok := m.profiles[ownerID]
	if !ok {
		p = &Profile{}
		m.profiles[ownerID] = p
	}
	return p
}

func (m *MemoryStore) LoadContext(ctx context.Context, ownerID string, runDate time.Time) (*core.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := core.NewState(ownerID, runDate)
	p, ok := m.profiles[ownerID]
	if !ok {
		return s, nil
	}

	since := s.RunDate.AddDate(0, 0, -HistoryWindowDays)
	dayKey := s.RunDate.Format("2006-01-02")

	s.Buckets = append([]core.Bucket(nil), p.Buckets...)
	for _, b := range p.Buckets {
		s.BucketBalances[b.Name] = b.Balance
	}
	s.Obligations = append([]core.Obligation(nil), p.Obligations...)
	s.Goals = append([]core.Goal(nil), p.Goals...)
	for _, a := range p.Advances {
		if a.Status == "active" {
			s.ActiveAdvances = append(s.ActiveAdvances, a)
		}
	}
	for _, e := range p.Income {
		if e.Date.Before(since) {
			continue
		}
		s.IncomeHistory = append(s.IncomeHistory, e)
		if e.Date.Format("2006-01-02") == dayKey {
			s.TodayIncome += e.Amount
		}
	}
	for _, e := range p.Expenses {
		if !e.Date.Before(since) {
			s.ExpenseHistory = append(s.ExpenseHistory, e)
		}
	}
	return s, nil
}

func (m *MemoryStore) AddToBucket(ctx context.Context, ownerID, bucket string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profile(ownerID)
	for i := range p.Buckets {
		if p.Buckets[i].Name == bucket {
			p.Buckets[i].Balance += delta
			return nil
		}
	}
	p.Buckets = append(p.Buckets, core.Bucket{Name: bucket, Kind: "flex", Balance: delta})
	return nil
}

func (m *MemoryStore) SaveRun(ctx context.Context, summary *core.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[summary.OwnerID] = append(m.runs[summary.OwnerID], summary)
	return nil
}

// Runs returns the recorded run summaries for an owner, oldest first.
func (m *MemoryStore) Runs(ownerID string) []*core.RunSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*core.RunSummary(nil), m.runs[ownerID]...)
}

// BucketBalance reads one bucket's current balance.
func (m *MemoryStore) BucketBalance(ownerID, bucket string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[ownerID]
	if !ok {
		return 0
	}
	for _, b := range p.Buckets {
		if b.Name == bucket {
			return b.Balance
		}
	}
	return 0
}
