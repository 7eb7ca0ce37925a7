// Package memory provides a local, in-memory vector store for agent memory.
//
// The memory system stores past decisions (allocations, advances, risk
// calls, execution learnings) to enable learning across runs. Memories
// are namespaced by worker ID for multi-user support.
//
// Architecture:
//   - Store: Vector storage backend (in-memory for local, pgvector for production)
//   - Embedder: Text-to-vector conversion (local model for SDK, hosted API for production)
//   - Manager: Orchestrates retrieval and recording
//
// Integration:
//   - RECALL phase: Load relevant memories before the run plans
//   - RECORD phase: Store new decisions after the run completes
//
// Local SDK Implementation:
//   - chromem-go store (embedded vector database)
//   - ONNX embedder with all-MiniLM-L6-v2 (real semantic search, offline)
//   - Focus on interface definitions for production swap
package memory
