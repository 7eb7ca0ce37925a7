package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/memory"
	"github.com/gigmoneyguru/guru-go-sdk/memory/embedder/mock"
	"github.com/gigmoneyguru/guru-go-sdk/memory/store/chromem"
)

func newTestManager(t *testing.T, enabled bool) *memory.SimpleManager {
	t.Helper()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	config := &memory.Config{
		Enabled:       enabled,
		MinSimilarity: 0.0, // Low threshold for mock embeddings
	}
	return memory.NewSimpleManager(store, mock.New(), config)
}

func TestSimpleManager_RecordAndRetrieve(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, true)

	decisions := []core.Decision{
		{
			OwnerID:      "rahul",
			RunID:        "run1",
			DecisionType: "allocation",
			Reasoning:    "Rent bucket was underfunded with 8 days to go, so rent got topped up first",
			Output:       map[string]interface{}{"bucket": "rent", "amount": 800.0},
		},
		{
			OwnerID:      "rahul",
			RunID:        "run1",
			DecisionType: "risk_assessment",
			Reasoning:    "Weekly income covers upcoming obligations with room to spare",
			Output:       map[string]interface{}{"risk_score": 25.0, "risk_level": "low"},
		},
	}

	if err := manager.Record(ctx, "rahul", decisions); err != nil {
		t.Fatalf("Failed to record decisions: %v", err)
	}

	formatted, err := manager.Retrieve(ctx, "rahul", "rent bucket allocation")
	if err != nil {
		t.Fatalf("Failed to retrieve memories: %v", err)
	}
	if formatted == "" {
		t.Fatal("Expected recorded decisions to be retrievable")
	}
	if !strings.Contains(formatted, "RELEVANT PAST DECISIONS") {
		t.Errorf("Expected formatted output to contain header, got: %s", formatted)
	}
	if !strings.Contains(formatted, "allocation") {
		t.Errorf("Expected formatted output to mention the allocation decision, got: %s", formatted)
	}
}

func TestSimpleManager_OwnerNamespacing(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, true)

	err := manager.Record(ctx, "rahul", []core.Decision{{
		DecisionType: "advance",
		Reasoning:    "Weekly gap before rent due, advance of 1500 covers it",
		Output:       map[string]interface{}{"amount": 1500.0},
	}})
	if err != nil {
		t.Fatalf("Failed to record rahul's decisions: %v", err)
	}

	err = manager.Record(ctx, "priya", []core.Decision{{
		DecisionType: "allocation",
		Reasoning:    "Strong week, extra into emergency buffer and the scooter goal",
		Output:       map[string]interface{}{"bucket": "emergency", "amount": 600.0},
	}})
	if err != nil {
		t.Fatalf("Failed to record priya's decisions: %v", err)
	}

	formatted, err := manager.Retrieve(ctx, "rahul", "advance before rent")
	if err != nil {
		t.Fatalf("Failed to retrieve rahul's memories: %v", err)
	}
	if strings.Contains(formatted, "emergency buffer") {
		t.Error("rahul should not see priya's memories")
	}

	formatted, err = manager.Retrieve(ctx, "priya", "emergency allocation")
	if err != nil {
		t.Fatalf("Failed to retrieve priya's memories: %v", err)
	}
	if strings.Contains(formatted, "advance of 1500") {
		t.Error("priya should not see rahul's memories")
	}
}

func TestSimpleManager_FiltersTrivialDecisions(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, true)

	// Bookkeeping entry with no substance should be filtered out.
	err := manager.Record(ctx, "rahul", []core.Decision{{
		DecisionType: "note",
		Reasoning:    "checked balances",
	}})
	if err != nil {
		t.Fatalf("Failed to record decisions: %v", err)
	}

	formatted, err := manager.Retrieve(ctx, "rahul", "checked balances")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if formatted != "" {
		t.Errorf("Expected trivial decision to be filtered, got: %s", formatted)
	}

	// High-risk outcomes are kept even for unknown types.
	err = manager.Record(ctx, "rahul", []core.Decision{{
		DecisionType: "note",
		Reasoning:    "flagging this",
		Output:       map[string]interface{}{"risk_level": "high"},
	}})
	if err != nil {
		t.Fatalf("Failed to record decisions: %v", err)
	}

	formatted, err = manager.Retrieve(ctx, "rahul", "high risk note")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if formatted == "" {
		t.Error("Expected high-risk decision to be stored")
	}
}

func TestSimpleManager_DisabledConfig(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager(t, false)

	err := manager.Record(ctx, "rahul", []core.Decision{{
		DecisionType: "allocation",
		Reasoning:    "Should never be stored because memory is off",
	}})
	if err != nil {
		t.Fatalf("Record should not error when disabled: %v", err)
	}

	formatted, err := manager.Retrieve(ctx, "rahul", "anything")
	if err != nil {
		t.Fatalf("Retrieve should not error when disabled: %v", err)
	}
	if formatted != "" {
		t.Error("Expected empty result when memory is disabled")
	}
}

func TestDecisionMemory_FormatTruncates(t *testing.T) {
	d := core.Decision{
		DecisionType: "allocation",
		Reasoning:    strings.Repeat("income pattern analysis ", 50),
		Output:       map[string]interface{}{"bucket": "rent"},
	}
	mem := memory.NewDecisionMemory("rahul", d)

	formatted := mem.Format(memory.FormatContext{OwnerID: "rahul", MaxLength: 200})
	if !strings.Contains(formatted, "[allocation]") {
		t.Errorf("Expected type tag in formatted memory, got: %s", formatted)
	}
	if len(formatted) > 400 {
		t.Errorf("Expected truncation to keep memory compact, got %d chars", len(formatted))
	}
}
