package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// DecisionLedger persists agent decisions across runs. ledger.Store
// implementations satisfy this.
type DecisionLedger interface {
	Save(ctx context.Context, d *core.Decision) error
	Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error)
}

// BucketWriter applies durable bucket balance changes. store.Store
// implementations satisfy this.
type BucketWriter interface {
	AddToBucket(ctx context.Context, ownerID, bucket string, delta float64) error
}

// Policy holds the numeric guardrails the tools enforce. All knobs are
// plain values so deployments can tune them through configuration.
type Policy struct {
	MinToolCalls        int     // calls required before complete_analysis is accepted
	MinInsightLen       int     // minimum key insight length in runes
	SpikeFactor         float64 // spending anomaly when current > previous * SpikeFactor
	TrendFactor         float64 // trend flagged beyond this relative change
	GoalIncomeShare     float64 // share of daily income a goal may claim and stay "on track"
	AdvanceFeeRate      float64 // fee rate per fee period
	AdvanceFeePeriod    int     // fee period in days
	MaxAdvanceShare     float64 // of trailing weekly income
	MinAdvance          float64
	MaxAdvance          float64
	MaxActiveAdvances   int
	AdvanceRoundTo      float64
	RepayBufferDays     int // days of income before repayment that must cover it
	FallbackDailyIncome float64
}

// DefaultPolicy returns the stock guardrails.
func DefaultPolicy() Policy {
	return Policy{
		MinToolCalls:        5,
		MinInsightLen:       30,
		SpikeFactor:         1.5,
		TrendFactor:         0.10,
		GoalIncomeShare:     0.30,
		AdvanceFeeRate:      0.02,
		AdvanceFeePeriod:    7,
		MaxAdvanceShare:     0.40,
		MinAdvance:          500,
		MaxAdvance:          5000,
		MaxActiveAdvances:   1,
		AdvanceRoundTo:      100,
		RepayBufferDays:     3,
		FallbackDailyIncome: 500,
	}
}

// Executor dispatches tool calls against a single run's state.
//
// Every call is appended to the state's call log before dispatch, so
// the log records attempts including unknown tool names. Tool failures
// are returned as result maps with an "error" key; Execute never
// returns a Go error to the loop driving it.
type Executor struct {
	state   *core.State
	policy  Policy
	ledger  DecisionLedger // optional
	buckets BucketWriter   // optional

	handlers map[string]func(ctx context.Context, args map[string]interface{}) map[string]interface{}
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPolicy overrides the default guardrails.
func WithPolicy(p Policy) ExecutorOption {
	return func(e *Executor) { e.policy = p }
}

// WithLedger attaches a decision ledger for get_past_decisions and
// save_decision. Without it, decisions stay in the run state only.
func WithLedger(l DecisionLedger) ExecutorOption {
	return func(e *Executor) { e.ledger = l }
}

// WithBucketWriter attaches durable bucket persistence for
// update_bucket_balance_persistent.
func WithBucketWriter(w BucketWriter) ExecutorOption {
	return func(e *Executor) { e.buckets = w }
}

// NewExecutor creates an executor bound to the given run state.
func NewExecutor(state *core.State, opts ...ExecutorOption) *Executor {
	e := &Executor{
		state:  state,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[string]func(context.Context, map[string]interface{}) map[string]interface{}{
		"get_bucket_balances":              e.getBucketBalances,
		"get_upcoming_obligations":         e.getUpcomingObligations,
		"get_income_history":               e.getIncomeHistory,
		"get_expense_history":              e.getExpenseHistory,
		"get_goals_progress":               e.getGoalsProgress,
		"get_past_decisions":               e.getPastDecisions,
		"calculate_shortfall":              e.calculateShortfall,
		"analyze_spending_pattern":         e.analyzeSpendingPattern,
		"calculate_goal_trajectory":        e.calculateGoalTrajectory,
		"simulate_scenario":                e.simulateScenario,
		"suggest_advance":                  e.suggestAdvance,
		"allocate_to_bucket":               e.allocateToBucket,
		"update_bucket_balance_persistent": e.updateBucketBalancePersistent,
		"save_decision":                    e.saveDecision,
		"create_alert":                     e.createAlert,
		"send_message_to_user":             e.sendMessageToUser,
		"set_risk_score":                   e.setRiskScore,
		"complete_analysis":                e.completeAnalysis,
	}
	return e
}

// State returns the run state the executor mutates.
func (e *Executor) State() *core.State {
	return e.state
}

// Policy returns the guardrails the executor enforces.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute runs one tool call and returns its result map.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) map[string]interface{} {
	args := map[string]interface{}{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			e.state.LogToolCall(name, nil)
			return errResult(fmt.Sprintf("invalid tool input: %v", err))
		}
	}

	// Log before dispatch so even unknown tools leave a trail.
	seq := e.state.LogToolCall(name, args)
	log.Printf("[TOOLS] #%d %s", seq, name)

	handler, ok := e.handlers[name]
	if !ok {
		return errResult("Unknown tool: " + name)
	}
	return handler(ctx, args)
}

// InvestigativeCalls counts calls to tools other than complete_analysis,
// which is what the completion gate measures.
func (e *Executor) InvestigativeCalls() int {
	n := 0
	for _, c := range e.state.ToolCalls {
		if c.Tool != "complete_analysis" {
			n++
		}
	}
	return n
}

func errResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}

// Arg extraction helpers. The reasoning model sends JSON numbers as
// float64; ints arrive the same way.

func strArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatArg(args map[string]interface{}, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int(v)
	}
	return fallback
}

func mapArg(args map[string]interface{}, key string) map[string]interface{} {
	if v, ok := args[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
