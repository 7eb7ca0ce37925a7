package memory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// SimpleManager is the SDK-provided Manager implementation.
// It provides basic memory operations suitable for local development.
//
// Features:
//   - Vector similarity search
//   - Automatic embedding
//   - Memory formatting
//   - Decision filtering
//
// For production, users can implement a custom Manager with fact
// extraction, contradiction resolution, or hierarchical memory tiers.
type SimpleManager struct {
	store    Store
	embedder Embedder // Internal: the engine never sees this
	config   *Config
}

// NewSimpleManager creates a new SimpleManager.
func NewSimpleManager(store Store, embedder Embedder, config *Config) *SimpleManager {
	if config == nil {
		config = DefaultConfig
	}
	return &SimpleManager{
		store:    store,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve finds relevant memories and returns a formatted string.
func (m *SimpleManager) Retrieve(ctx context.Context, ownerID string, query string) (string, error) {
	if !m.config.Enabled {
		return "", nil // Memory disabled
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	memories, err := m.store.Query(ctx, ownerID, embedding, 10)
	if err != nil {
		return "", fmt.Errorf("query store: %w", err)
	}

	log.Printf("[MEMORY] Retrieved %d memories for query: %q", len(memories), truncateLog(query, 50))
	if len(memories) == 0 {
		log.Printf("[MEMORY]   No memories found")
		return "", nil
	}

	return m.formatMemories(memories, ownerID, query), nil
}

// Record stores a run's decisions as memories.
// SimpleManager stores filtered decisions only; custom implementations
// can extract facts or consolidate before storing.
func (m *SimpleManager) Record(ctx context.Context, ownerID string, decisions []core.Decision) error {
	if !m.config.Enabled {
		return nil // Memory disabled
	}

	storable := m.filterStorableDecisions(decisions)
	if len(storable) == 0 {
		log.Printf("[MEMORY] No decisions worth storing (filtered out)")
		return nil
	}

	log.Printf("[MEMORY] Recording %d decisions (filtered from %d)", len(storable), len(decisions))

	for i, d := range storable {
		mem := NewDecisionMemory(ownerID, d)

		text := mem.FormatForEmbedding()
		embedding, err := m.embedder.Embed(ctx, text)
		if err != nil {
			log.Printf("[MEMORY] Failed to embed decision #%d: %v", i+1, err)
			continue
		}
		mem.SetEmbedding(embedding)

		if err := m.store.Store(ctx, mem); err != nil {
			log.Printf("[MEMORY] Failed to store decision #%d: %v", i+1, err)
			continue
		}

		log.Printf("[MEMORY]   Stored decision #%d: type=%s", i+1, d.DecisionType)
	}

	return nil
}

// formatMemories formats retrieved memories into a structured string.
func (m *SimpleManager) formatMemories(memories []Memory, ownerID string, query string) string {
	if len(memories) == 0 {
		return ""
	}

	var parts []string
	parts = append(parts, "=== RELEVANT PAST DECISIONS ===\n")

	// Calculate max length per memory
	maxLengthPerMemory := 2000 / len(memories)
	if maxLengthPerMemory < 100 {
		maxLengthPerMemory = 100 // Minimum reasonable length
	}

	for i, mem := range memories {
		formatted := mem.Format(FormatContext{
			OwnerID:   ownerID,
			Query:     query,
			MaxLength: maxLengthPerMemory,
		})
		parts = append(parts, fmt.Sprintf("%d. %s\n", i+1, formatted))
	}

	return strings.Join(parts, "\n")
}

// filterStorableDecisions selects decisions worth storing.
// SimpleManager's filtering logic - user implementations can define their own.
func (m *SimpleManager) filterStorableDecisions(decisions []core.Decision) []core.Decision {
	var storable []core.Decision
	for _, d := range decisions {
		if m.isStorable(d) {
			storable = append(storable, d)
		}
	}
	return storable
}

func (m *SimpleManager) isStorable(d core.Decision) bool {
	// Money movement and learnings are always worth keeping
	switch d.DecisionType {
	case "advance", "allocation", "execution_learning", "risk_assessment":
		return true
	}

	// High-risk outcomes are worth keeping for any type
	if level, ok := d.Output["risk_level"].(string); ok && level == "high" {
		return true
	}

	// Substantive reasoning indicates a decision worth recalling
	if len(d.Reasoning) > 30 {
		return true
	}

	// Skip trivial bookkeeping entries
	return false
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Config holds SimpleManager configuration.
type Config struct {
	// Enabled toggles the memory system on/off.
	// Default: false (opt-in for local testing).
	Enabled bool

	// MinSimilarity is the minimum similarity for retrieval [0.0-1.0].
	// Default: 0.5
	// Note: Tiny models (all-MiniLM-L6-v2) produce lower scores (~0.35 for similar text)
	MinSimilarity float64

	// MaxMemoriesPerOwner caps total memories per worker.
	// Default: 1000 (prevents unbounded growth).
	MaxMemoriesPerOwner int
}

// DefaultConfig returns sensible defaults for local SDK.
var DefaultConfig = &Config{
	Enabled:             false, // Opt-in
	MinSimilarity:       0.5,   // Reasonable for most embedders
	MaxMemoriesPerOwner: 1000,
}
