package memory

import (
	"context"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Memory is the core interface for all memory types.
// The SDK ships DecisionMemory; users can define their own types
// (semantic facts about the worker, platform shortcuts, etc.).
//
// Each memory type controls its own:
//   - Content structure (fields, data)
//   - Formatting for prompt injection (Format method)
//   - Metadata schema
type Memory interface {
	// Identity & Ownership
	ID() string
	OwnerID() string // Worker ID (empty = global memory, available to all workers)
	RunID() string   // Run that produced this memory (empty = not run-specific)
	Type() string    // Memory type identifier (e.g., "decision", "semantic")

	// Content & Metadata
	Content() interface{}             // Memory-specific data structure
	Metadata() map[string]interface{} // Flexible metadata for custom fields

	// Temporal
	CreatedAt() time.Time

	// Operations
	Format(ctx FormatContext) string // Formats this memory for prompt injection
	Embedding() []float32            // Vector for similarity search
	SetEmbedding([]float32)          // Set embedding vector
}

// FormatContext provides context for smart memory formatting.
// Memory.Format() implementations can use this to:
//   - Truncate based on available space (MaxLength)
//   - Customize output based on owner context (OwnerID)
//   - Emphasize query-relevant parts (Query)
type FormatContext struct {
	OwnerID   string // Current worker
	Query     string // Current query being answered
	MaxLength int    // Max characters for this memory's output
}

// Manager orchestrates memory operations.
// This is the interface the run engine uses.
//
// The engine is opinionated about WHEN to use memory (recall before
// planning, record after the run). The Manager is unopinionated about
// HOW - implementations decide:
//   - Which memories to retrieve
//   - How to format them
//   - Which decisions to store
//   - How to process them
type Manager interface {
	// Retrieve finds memories relevant to the query and returns a
	// formatted string ready for prompt injection.
	Retrieve(ctx context.Context, ownerID string, query string) (string, error)

	// Record stores a run's decisions as memories. The Manager decides
	// which decisions are worth keeping and how to process them.
	Record(ctx context.Context, ownerID string, decisions []core.Decision) error
}

// Store is the vector storage backend interface.
// Implementations: ChromemStore (local SDK), PgVectorStore (production).
type Store interface {
	// Store saves a memory with its embedding.
	// Memory must have embedding set before calling Store.
	Store(ctx context.Context, mem Memory) error

	// Query retrieves memories by vector similarity.
	// Returns memories sorted by similarity (highest first).
	Query(ctx context.Context, ownerID string, embedding []float32, limit int) ([]Memory, error)

	// Get retrieves a specific memory by ID and owner.
	Get(ctx context.Context, ownerID string, memoryID string) (Memory, error)

	// Delete removes a memory permanently.
	Delete(ctx context.Context, ownerID string, memoryID string) error

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: MockEmbedder (testing), ONNXEmbedder (local SDK).
//
// Note: Embedder is an implementation detail of Manager.
// The engine does not interact with Embedder directly.
type Embedder interface {
	// Embed converts a single text to embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns embedding vector size.
	Dimensions() int
}
