package core

import (
	"time"

	"github.com/google/uuid"
)

// State is the shared blackboard for a single agent run. It is seeded
// with the owner's financial context before the run starts, mutated by
// tools and specialists while the run executes, and summarized into a
// RunSummary at the end.
//
// A State belongs to exactly one run. It is not safe for concurrent
// mutation; all writes go through the tool executor or the strategy
// driving the run.
type State struct {
	// Identity and trigger.
	RunID         string
	OwnerID       string
	RunDate       time.Time
	TriggerReason string // "daily_run", "income_received", "user_request", ...
	Mode          string

	// Financial context, loaded once before the run.
	BucketBalances map[string]float64
	Buckets        []Bucket
	Obligations    []Obligation
	IncomeHistory  []IncomeEvent  // most recent 30 days
	ExpenseHistory []ExpenseEvent // most recent 30 days
	Goals          []Goal
	ActiveAdvances []Advance
	TodayIncome    float64

	// Working results accumulated during the run.
	IncomePatterns   map[string]interface{}
	ExpenseAnalysis  map[string]interface{}
	ObligationRisks  []ObligationRisk
	RedFlagDays      []time.Time
	Forecast         []ForecastDay
	ForecastSummary  string
	AllocationPlan   []Allocation
	AdvanceProposal  map[string]interface{}
	GoalScenarios    []map[string]interface{}
	SpendingPatterns map[string]interface{}

	// Final verdicts.
	RiskScore         float64
	RiskLevel         string
	RiskFactors       []string
	KeyInsight        string
	RecommendedAction string
	SafeToSpend       float64

	// Side effects queued for delivery or persistence.
	Messages        []Message
	Alerts          []Alert
	Warnings        []string
	DecisionsMade   []Decision
	AllocationsMade []Allocation
	BucketChanges   map[string]float64

	// Run bookkeeping.
	ToolCalls          []ToolCall
	TotalToolCalls     int
	Iterations         int
	ReasoningChain     []string
	Reflections        []Reflection
	UnexpectedFindings []string
	Plan               *Plan
	Debate             *DebateResult
	Routing            *RoutingDecision
	Activity           []ActivityEntry
	ExecutionTimeMs    int64
	AgentError         string
}

// NewState creates a run state for the given owner with empty context.
func NewState(ownerID string, runDate time.Time) *State {
	if runDate.IsZero() {
		runDate = time.Now().UTC()
	}
	return &State{
		RunID:          uuid.New().String(),
		OwnerID:        ownerID,
		RunDate:        runDate,
		BucketBalances: make(map[string]float64),
		BucketChanges:  make(map[string]float64),
	}
}

// AddMessage queues user-facing text.
func (s *State) AddMessage(msgType, text string) {
	s.Messages = append(s.Messages, Message{
		Type:      msgType,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// AddAlert queues an alert. Urgent and warning alerts are mirrored into
// the message queue so the user sees them even without an alert surface.
func (s *State) AddAlert(alertType, severity, title, body string) Alert {
	a := Alert{
		ID:        uuid.New().String(),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	s.Alerts = append(s.Alerts, a)
	if severity == "urgent" || severity == "warning" {
		s.AddMessage("alert", title+": "+body)
	}
	return a
}

// LogToolCall appends to the call log and returns the sequence number.
// The entry is appended before the tool runs so the log captures
// attempts, not just completions.
func (s *State) LogToolCall(tool string, input map[string]interface{}) int {
	s.TotalToolCalls++
	s.ToolCalls = append(s.ToolCalls, ToolCall{
		Sequence: s.TotalToolCalls,
		Tool:     tool,
		Input:    input,
		At:       time.Now().UTC(),
	})
	return s.TotalToolCalls
}

// AdjustBucket applies a delta to the in-memory bucket balance and
// records the net change for later persistence.
func (s *State) AdjustBucket(bucket string, delta float64) float64 {
	s.BucketBalances[bucket] += delta
	s.BucketChanges[bucket] += delta
	return s.BucketBalances[bucket]
}

// WeeklyIncome sums income over the 7 days before RunDate.
func (s *State) WeeklyIncome() float64 {
	cutoff := s.RunDate.AddDate(0, 0, -7)
	var total float64
	for _, e := range s.IncomeHistory {
		if !e.Date.Before(cutoff) {
			total += e.Amount
		}
	}
	return total
}

// AvgDailyIncome averages income over the loaded history window.
// Returns fallback when there is no history at all.
func (s *State) AvgDailyIncome(fallback float64) float64 {
	if len(s.IncomeHistory) == 0 {
		return fallback
	}
	days := make(map[string]float64)
	var total float64
	for _, e := range s.IncomeHistory {
		days[e.Date.Format("2006-01-02")] += e.Amount
		total += e.Amount
	}
	return total / float64(len(days))
}

// ActiveAdvanceCount counts advances still outstanding.
func (s *State) ActiveAdvanceCount() int {
	n := 0
	for _, a := range s.ActiveAdvances {
		if a.Status == "active" {
			n++
		}
	}
	return n
}

// RunSummary is the consolidated result of one run, returned to the
// caller and persisted alongside the decision ledger.
type RunSummary struct {
	RunID             string             `json:"run_id"`
	OwnerID           string             `json:"owner_id"`
	RunDate           time.Time          `json:"run_date"`
	Mode              string             `json:"mode"`
	RiskScore         float64            `json:"risk_score"`
	RiskLevel         string             `json:"risk_level"`
	KeyInsight        string             `json:"key_insight"`
	RecommendedAction string             `json:"recommended_action"`
	SafeToSpend       float64            `json:"safe_to_spend"`
	Messages          []Message          `json:"messages,omitempty"`
	Alerts            []Alert            `json:"alerts,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
	Decisions         []Decision         `json:"decisions,omitempty"`
	Allocations       []Allocation       `json:"allocations,omitempty"`
	BucketChanges     map[string]float64 `json:"bucket_changes,omitempty"`
	Activity          []ActivityEntry    `json:"agent_activity,omitempty"`
	ToolCallCount     int                `json:"tool_call_count"`
	Iterations        int                `json:"iterations"`
	ExecutionTimeMs   int64              `json:"execution_time_ms"`
	AgentError        string             `json:"agent_error,omitempty"`
}

// Summary consolidates the state into a RunSummary.
func (s *State) Summary() *RunSummary {
	return &RunSummary{
		RunID:             s.RunID,
		OwnerID:           s.OwnerID,
		RunDate:           s.RunDate,
		Mode:              s.Mode,
		RiskScore:         s.RiskScore,
		RiskLevel:         s.RiskLevel,
		KeyInsight:        s.KeyInsight,
		RecommendedAction: s.RecommendedAction,
		SafeToSpend:       s.SafeToSpend,
		Messages:          s.Messages,
		Alerts:            s.Alerts,
		Warnings:          s.Warnings,
		Decisions:         s.DecisionsMade,
		Allocations:       s.AllocationsMade,
		BucketChanges:     s.BucketChanges,
		Activity:          s.Activity,
		ToolCallCount:     s.TotalToolCalls,
		Iterations:        s.Iterations,
		ExecutionTimeMs:   s.ExecutionTimeMs,
		AgentError:        s.AgentError,
	}
}
