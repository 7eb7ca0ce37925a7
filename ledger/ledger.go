// Package ledger persists agent decisions so later runs can learn from
// them. Decisions are append-only: a run records what it decided and
// why, and future runs query the recent history for the same owner.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Store is the persistence contract. Save appends a decision, Recent
// returns decisions for an owner newest first, optionally filtered by
// type, created at or after since, capped at limit (0 means no cap).
type Store interface {
	Save(ctx context.Context, d *core.Decision) error
	Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error)
}

// MemoryStore keeps decisions in memory. Useful for tests and for
// running the agent without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	byOwner map[string][]*core.Decision
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byOwner: make(map[string][]*core.Decision)}
}

func (m *MemoryStore) Save(ctx context.Context, d *core.Decision) error {
	stamp(d)
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.byOwner[d.OwnerID] = append(m.byOwner[d.OwnerID], &cp)
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*core.Decision
	for _, d := range m.byOwner[ownerID] {
		if d.CreatedAt.Before(since) {
			continue
		}
		if decisionType != "" && d.DecisionType != decisionType {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count reports how many decisions are stored for an owner.
func (m *MemoryStore) Count(ownerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byOwner[ownerID])
}

func stamp(d *core.Decision) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
}
