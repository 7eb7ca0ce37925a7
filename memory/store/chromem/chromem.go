package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/gigmoneyguru/guru-go-sdk/memory"
)

// ChromemStore wraps chromem-go for vector storage.
// chromem-go is a pure Go, embedded vector database.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // Per-worker collections
	mu          sync.RWMutex
}

// New creates a new chromem-based store.
func New() (*ChromemStore, error) {
	db := chromem.NewDB()

	return &ChromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for a worker.
// Each worker gets their own collection for namespace isolation.
func (s *ChromemStore) getOrCreateCollection(ownerID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[ownerID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[ownerID]; exists {
		return col, nil
	}

	collectionName := fmt.Sprintf("worker_%s", ownerID)
	if ownerID == "" {
		collectionName = "global" // Global memories
	}

	col, err := s.db.CreateCollection(
		collectionName,
		nil, // No custom embedding func (we provide embeddings)
		nil, // No custom distance func (use default cosine)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[ownerID] = col
	return col, nil
}

// Store saves a memory with its embedding.
func (s *ChromemStore) Store(ctx context.Context, mem memory.Memory) error {
	col, err := s.getOrCreateCollection(mem.OwnerID())
	if err != nil {
		return err
	}

	log.Printf("[CHROMEM] Storing memory: id=%s, owner=%s, type=%s",
		mem.ID(), mem.OwnerID(), mem.Type())

	stored, err := serializeMemory(mem)
	if err != nil {
		return fmt.Errorf("serialize memory: %w", err)
	}

	doc := chromem.Document{
		ID:        mem.ID(),
		Content:   stored.ContentJSON,
		Embedding: mem.Embedding(),
		Metadata:  stored.Metadata,
	}

	err = col.AddDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	return nil
}

// Query retrieves memories by vector similarity.
func (s *ChromemStore) Query(ctx context.Context, ownerID string, embedding []float32, limit int) ([]memory.Memory, error) {
	col, err := s.getOrCreateCollection(ownerID)
	if err != nil {
		return nil, err
	}

	log.Printf("[CHROMEM] Querying collection for owner=%s, limit=%d", ownerID, limit)

	where := map[string]string{
		"owner_id": ownerID,
	}

	// chromem-go requires nResults <= collection size.
	// Retry with smaller limits if necessary.
	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, where, nil)
		if err == nil {
			break
		}

		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				// Collection is empty
				log.Printf("[CHROMEM] Collection is empty")
				return nil, nil
			}
			continue
		}

		return nil, fmt.Errorf("chromem query: %w", err)
	}

	log.Printf("[CHROMEM] Retrieved %d raw results", len(results))

	var memories []memory.Memory
	for i, result := range results {
		mem, err := deserializeMemory(result)
		if err != nil {
			log.Printf("[CHROMEM] Skipping result #%d: %v", i+1, err)
			continue
		}
		memories = append(memories, mem)
	}

	log.Printf("[CHROMEM] Returning %d memories", len(memories))
	return memories, nil
}

// Get retrieves a specific memory by ID and owner.
func (s *ChromemStore) Get(ctx context.Context, ownerID string, memoryID string) (memory.Memory, error) {
	// chromem-go has no direct Get by ID; a caller who needs one
	// should Query and filter.
	return nil, fmt.Errorf("Get not supported in chromem store (use Query instead)")
}

// Delete removes a memory.
func (s *ChromemStore) Delete(ctx context.Context, ownerID string, memoryID string) error {
	// chromem-go doesn't expose delete by ID in the current API.
	// For the local version this is acceptable.
	log.Printf("[CHROMEM] Delete not supported (chromem-go limitation)")
	return nil
}

// Close releases resources.
func (s *ChromemStore) Close() error {
	// chromem-go keeps everything in memory, nothing to close
	return nil
}

// StoredMemory represents a serialized memory for storage.
type StoredMemory struct {
	Type        string
	ContentJSON string
	Metadata    map[string]string
}

// serializeMemory converts a Memory interface to storage format.
func serializeMemory(mem memory.Memory) (*StoredMemory, error) {
	contentBytes, err := json.Marshal(mem.Content())
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	metadata := map[string]string{
		"type":       mem.Type(),
		"owner_id":   mem.OwnerID(),
		"run_id":     mem.RunID(),
		"created_at": mem.CreatedAt().Format(time.RFC3339),
	}

	// Add custom metadata
	for k, v := range mem.Metadata() {
		if str, ok := v.(string); ok {
			metadata[k] = str
		} else {
			// Convert to JSON for non-string values
			if bytes, err := json.Marshal(v); err == nil {
				metadata[k] = string(bytes)
			}
		}
	}

	return &StoredMemory{
		Type:        mem.Type(),
		ContentJSON: string(contentBytes),
		Metadata:    metadata,
	}, nil
}

// deserializeMemory converts stored format back to Memory interface.
func deserializeMemory(result chromem.Result) (memory.Memory, error) {
	memType := result.Metadata["type"]

	switch memType {
	case "decision":
		return deserializeDecisionMemory(result)
	default:
		return nil, fmt.Errorf("unknown memory type: %s", memType)
	}
}

// deserializeDecisionMemory deserializes a DecisionMemory from a chromem result.
func deserializeDecisionMemory(result chromem.Result) (*memory.DecisionMemory, error) {
	var content map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content), &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	decisionType, _ := content["decision_type"].(string)
	reasoning, _ := content["reasoning"].(string)
	output, _ := content["output"].(map[string]interface{})

	createdAt, _ := time.Parse(time.RFC3339, result.Metadata["created_at"])

	metadata := make(map[string]interface{})
	for k, v := range result.Metadata {
		if k != "type" && k != "owner_id" && k != "run_id" && k != "created_at" {
			metadata[k] = v
		}
	}

	return memory.NewDecisionMemoryFromStorage(
		result.ID,
		result.Metadata["owner_id"],
		result.Metadata["run_id"],
		createdAt,
		result.Embedding,
		decisionType,
		reasoning,
		output,
		metadata,
	), nil
}

// isInsufficientDocsError checks if the error is due to asking for more
// results than the collection holds.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "nResults must be") || strings.Contains(errStr, "number of documents")
}
