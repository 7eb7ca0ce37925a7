package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// DecisionMemory stores one past agent decision (allocation, advance,
// risk call, execution learning) for semantic recall. This is the
// SDK-provided implementation of the Memory interface.
//
// DecisionMemory lets the agent reason like "last time income dipped
// in monsoon I topped up the rent bucket early and it worked".
type DecisionMemory struct {
	id         string
	ownerID    string
	runID      string
	createdAt  time.Time
	embedding  []float32
	importance float64
	metadata   map[string]interface{}

	// Decision-specific fields
	DecisionType string
	Reasoning    string
	Output       map[string]interface{}
}

// NewDecisionMemory creates a DecisionMemory from a core.Decision.
func NewDecisionMemory(ownerID string, d core.Decision) *DecisionMemory {
	importance := assessDecisionImportance(d)

	metadata := map[string]interface{}{
		"decision_type": d.DecisionType,
	}
	if d.RunID != "" {
		metadata["run_id"] = d.RunID
	}

	id := d.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &DecisionMemory{
		id:           id,
		ownerID:      ownerID,
		runID:        d.RunID,
		createdAt:    createdAt,
		importance:   importance,
		metadata:     metadata,
		DecisionType: d.DecisionType,
		Reasoning:    d.Reasoning,
		Output:       d.Output,
	}
}

// NewDecisionMemoryFromStorage creates a DecisionMemory from stored data.
// This is used by Store implementations when deserializing.
func NewDecisionMemoryFromStorage(
	id string,
	ownerID string,
	runID string,
	createdAt time.Time,
	embedding []float32,
	decisionType string,
	reasoning string,
	output map[string]interface{},
	metadata map[string]interface{},
) *DecisionMemory {
	return &DecisionMemory{
		id:           id,
		ownerID:      ownerID,
		runID:        runID,
		createdAt:    createdAt,
		embedding:    embedding,
		importance:   0.5, // Default, can be overridden
		metadata:     metadata,
		DecisionType: decisionType,
		Reasoning:    reasoning,
		Output:       output,
	}
}

// Memory interface implementation

func (d *DecisionMemory) ID() string {
	return d.id
}

func (d *DecisionMemory) OwnerID() string {
	return d.ownerID
}

func (d *DecisionMemory) RunID() string {
	return d.runID
}

func (d *DecisionMemory) Type() string {
	return "decision"
}

func (d *DecisionMemory) Content() interface{} {
	return map[string]interface{}{
		"decision_type": d.DecisionType,
		"reasoning":     d.Reasoning,
		"output":        d.Output,
	}
}

func (d *DecisionMemory) Metadata() map[string]interface{} {
	return d.metadata
}

func (d *DecisionMemory) CreatedAt() time.Time {
	return d.createdAt
}

func (d *DecisionMemory) Embedding() []float32 {
	return d.embedding
}

func (d *DecisionMemory) SetEmbedding(emb []float32) {
	d.embedding = emb
}

// Format formats this decision for prompt injection.
func (d *DecisionMemory) Format(ctx FormatContext) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s", d.DecisionType, d.createdAt.Format("2006-01-02")))

	if len(d.Reasoning) > 0 {
		reasoning := truncate(d.Reasoning, ctx.MaxLength/2)
		parts = append(parts, fmt.Sprintf("  Reasoning: %q", reasoning))
	}

	if len(d.Output) > 0 {
		if blob, err := json.Marshal(d.Output); err == nil {
			outcome := truncate(string(blob), ctx.MaxLength/3)
			parts = append(parts, fmt.Sprintf("  Outcome: %s", outcome))
		}
	}

	return strings.Join(parts, "\n")
}

// FormatForEmbedding returns text representation for embedding.
// This is used by Manager when embedding the decision.
func (d *DecisionMemory) FormatForEmbedding() string {
	outcome := ""
	if len(d.Output) > 0 {
		if blob, err := json.Marshal(d.Output); err == nil {
			outcome = string(blob)
		}
	}
	return fmt.Sprintf("Decision: %s\nReasoning: %s\nOutcome: %s",
		d.DecisionType, d.Reasoning, outcome)
}

// Importance returns the importance score for this decision.
func (d *DecisionMemory) Importance() float64 {
	return d.importance
}

// assessDecisionImportance scores decision importance [0.0-1.0].
// More important decisions are prioritized for retrieval.
func assessDecisionImportance(d core.Decision) float64 {
	importance := 0.5 // Base

	// Money movement is high-value
	switch d.DecisionType {
	case "advance", "allocation":
		importance += 0.2
	case "execution_learning":
		importance += 0.1
	}

	// High-risk verdicts are important for learning
	if level, ok := d.Output["risk_level"].(string); ok && level == "high" {
		importance += 0.2
	}

	// Substantive reasoning indicates a decision worth recalling
	if len(d.Reasoning) > 50 {
		importance += 0.1
	}

	if importance > 1.0 {
		importance = 1.0
	}
	return importance
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
