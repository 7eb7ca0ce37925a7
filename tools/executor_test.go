package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Monday, so nextWeekend lands on 2025-03-16.
var testRunDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestState() *core.State {
	return core.NewState("worker-1", testRunDate)
}

func call(t *testing.T, e *Executor, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return e.Execute(context.Background(), name, raw)
}

type stubLedger struct {
	saved   []*core.Decision
	recent  []*core.Decision
	saveErr error
	readErr error
}

func (l *stubLedger) Save(ctx context.Context, d *core.Decision) error {
	if l.saveErr != nil {
		return l.saveErr
	}
	l.saved = append(l.saved, d)
	return nil
}

func (l *stubLedger) Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error) {
	if l.readErr != nil {
		return nil, l.readErr
	}
	return l.recent, nil
}

type stubWriter struct {
	err   error
	calls int
}

func (w *stubWriter) AddToBucket(ctx context.Context, ownerID, bucket string, delta float64) error {
	w.calls++
	return w.err
}

func TestExecuteUnknownToolStillLogged(t *testing.T) {
	s := newTestState()
	e := NewExecutor(s)

	result := call(t, e, "read_minds", nil)
	if result["error"] != "Unknown tool: read_minds" {
		t.Fatalf("unexpected result: %v", result)
	}
	if len(s.ToolCalls) != 1 || s.ToolCalls[0].Tool != "read_minds" || s.ToolCalls[0].Sequence != 1 {
		t.Fatalf("call log = %+v", s.ToolCalls)
	}
}

func TestCompleteAnalysisGate(t *testing.T) {
	s := newTestState()
	e := NewExecutor(s)

	goodInsight := "Rent bucket short by 1300 but weekend earnings should cover it"

	for i := 0; i < 4; i++ {
		call(t, e, "get_bucket_balances", nil)
	}
	result := call(t, e, "complete_analysis", map[string]interface{}{"key_insight": goodInsight})
	if _, ok := result["error"]; !ok {
		t.Fatal("expected rejection with only 4 investigative calls")
	}
	if _, ok := result["suggestion"]; !ok {
		t.Fatal("rejection should carry a suggestion")
	}
	if got, ok := result["tools_called"].(int); !ok || got != 4 {
		t.Fatalf("rejection tools_called = %v, want 4", result["tools_called"])
	}

	call(t, e, "get_income_history", nil)
	result = call(t, e, "complete_analysis", map[string]interface{}{"key_insight": "too short"})
	errMsg, ok := result["error"].(string)
	if !ok || !strings.Contains(errMsg, "key_insight too short") {
		t.Fatalf("expected short-insight rejection, got %v", result)
	}

	result = call(t, e, "complete_analysis", map[string]interface{}{
		"key_insight":        goodInsight,
		"recommended_action": "Allocate 650/day to rent until Friday",
	})
	if result["status"] != "complete" {
		t.Fatalf("expected completion, got %v", result)
	}
	if s.KeyInsight != goodInsight {
		t.Fatalf("KeyInsight = %q", s.KeyInsight)
	}
	if s.RecommendedAction == "" {
		t.Fatal("RecommendedAction not set")
	}
}

func TestAllocateToBucketReadYourWrites(t *testing.T) {
	s := newTestState()
	s.Buckets = []core.Bucket{{Name: "rent", Kind: "fixed_obligation", IsProtected: true}}
	s.BucketBalances["rent"] = 1000
	e := NewExecutor(s)

	result := call(t, e, "allocate_to_bucket", map[string]interface{}{
		"bucket_name": "rent",
		"amount":      500.0,
		"reason":      "rent due Friday",
	})
	if result["success"] != true || result["new_balance"].(float64) != 1500 {
		t.Fatalf("allocate result = %v", result)
	}

	balances := call(t, e, "get_bucket_balances", nil)
	buckets := balances["buckets"].([]map[string]interface{})
	if len(buckets) != 1 || buckets[0]["balance"].(float64) != 1500 {
		t.Fatalf("balances after allocate = %v", balances)
	}

	if len(s.AllocationsMade) != 1 || s.AllocationsMade[0].Amount != 500 {
		t.Fatalf("AllocationsMade = %+v", s.AllocationsMade)
	}
	if len(s.DecisionsMade) != 1 || s.DecisionsMade[0].DecisionType != "allocation" {
		t.Fatalf("DecisionsMade = %+v", s.DecisionsMade)
	}
}

func TestUpdateBucketBalancePersistentDegrades(t *testing.T) {
	s := newTestState()
	s.BucketBalances["flex"] = 200
	w := &stubWriter{err: errors.New("db locked")}
	e := NewExecutor(s, WithBucketWriter(w))

	result := call(t, e, "update_bucket_balance_persistent", map[string]interface{}{
		"bucket_name": "flex",
		"delta":       300.0,
	})
	if result["persisted_to_db"] != false {
		t.Fatalf("expected persistence failure to surface, got %v", result)
	}
	if result["new_balance"].(float64) != 500 {
		t.Fatalf("in-memory balance should still advance, got %v", result["new_balance"])
	}
	if w.calls != 1 {
		t.Fatalf("writer calls = %d", w.calls)
	}

	w.err = nil
	result = call(t, e, "update_bucket_balance_persistent", map[string]interface{}{
		"bucket_name": "flex",
		"delta":       -100.0,
	})
	if result["persisted_to_db"] != true || result["new_balance"].(float64) != 400 {
		t.Fatalf("expected persisted update, got %v", result)
	}
}

func TestSaveDecisionWithAndWithoutLedger(t *testing.T) {
	s := newTestState()
	l := &stubLedger{}
	e := NewExecutor(s, WithLedger(l))

	result := call(t, e, "save_decision", map[string]interface{}{
		"decision_type": "advance",
		"summary":       "suggested 2000 advance for rent gap",
		"reasoning":     "rent due in 3 days with 1500 shortfall",
	})
	if result["persisted_to_db"] != true || len(l.saved) != 1 {
		t.Fatalf("expected ledger write, got %v (saved %d)", result, len(l.saved))
	}
	if len(s.DecisionsMade) != 1 {
		t.Fatalf("DecisionsMade = %d", len(s.DecisionsMade))
	}

	l.saveErr = errors.New("disk full")
	result = call(t, e, "save_decision", map[string]interface{}{
		"decision_type": "allocation",
		"summary":       "split payout across buckets",
	})
	if result["persisted_to_db"] != false {
		t.Fatalf("expected degraded save, got %v", result)
	}
	if len(s.DecisionsMade) != 2 {
		t.Fatal("session state should keep the decision even when the ledger fails")
	}
}

func TestGetPastDecisionsMemoryFlag(t *testing.T) {
	s := newTestState()
	s.DecisionsMade = []core.Decision{
		{DecisionType: "allocation", Reasoning: "split payout"},
		{DecisionType: "advance", Reasoning: "covered rent gap"},
	}

	// No ledger attached: session fallback, filtered by type.
	e := NewExecutor(s)
	result := call(t, e, "get_past_decisions", map[string]interface{}{"decision_type": "advance"})
	if result["memory_active"] != false || result["count"].(int) != 1 {
		t.Fatalf("session fallback result = %v", result)
	}

	l := &stubLedger{recent: []*core.Decision{
		{DecisionType: "advance", Reasoning: "last week", CreatedAt: testRunDate.AddDate(0, 0, -5)},
	}}
	e = NewExecutor(s, WithLedger(l))
	result = call(t, e, "get_past_decisions", nil)
	if result["memory_active"] != true || result["count"].(int) != 1 {
		t.Fatalf("ledger result = %v", result)
	}

	// Ledger failure falls back to session state.
	l.readErr = errors.New("timeout")
	result = call(t, e, "get_past_decisions", nil)
	if result["memory_active"] != false || result["count"].(int) != 2 {
		t.Fatalf("ledger failure fallback = %v", result)
	}
}

func TestSuggestAdvanceGuardrails(t *testing.T) {
	s := newTestState()
	for i := 1; i <= 5; i++ {
		s.IncomeHistory = append(s.IncomeHistory, core.IncomeEvent{
			Date:   testRunDate.AddDate(0, 0, -i),
			Amount: 2000,
		})
	}
	e := NewExecutor(s)

	result := call(t, e, "suggest_advance", map[string]interface{}{
		"needed_amount": 6000.0,
		"reason":        "rent shortfall",
	})
	if result["eligible"] != true {
		t.Fatalf("expected eligible, got %v", result)
	}
	// 40% of 10000 weekly income, capped below the needed amount.
	if result["amount"].(float64) != 4000 {
		t.Fatalf("amount = %v", result["amount"])
	}
	if result["fee"].(float64) != 80 {
		t.Fatalf("fee = %v", result["fee"])
	}
	if result["covers_needed"] != false {
		t.Fatal("4000 should not cover a 6000 need")
	}
	if result["repayment_date"] != "2025-03-16" {
		t.Fatalf("repayment_date = %v", result["repayment_date"])
	}
	if s.AdvanceProposal == nil {
		t.Fatal("proposal not recorded on state")
	}

	s.ActiveAdvances = []core.Advance{{ID: "a1", Amount: 1000, Status: "active"}}
	result = call(t, e, "suggest_advance", map[string]interface{}{"needed_amount": 1000.0})
	if result["eligible"] != false {
		t.Fatalf("active advance should block a second one, got %v", result)
	}
	s.ActiveAdvances = nil

	// Thin week: 40% of 1000 rounds to 400, below the 500 minimum.
	thin := newTestState()
	thin.IncomeHistory = []core.IncomeEvent{
		{Date: testRunDate.AddDate(0, 0, -2), Amount: 600},
		{Date: testRunDate.AddDate(0, 0, -4), Amount: 400},
	}
	e = NewExecutor(thin)
	result = call(t, e, "suggest_advance", map[string]interface{}{"needed_amount": 2000.0})
	if result["eligible"] != false {
		t.Fatalf("below-minimum advance should be refused, got %v", result)
	}

	result = call(t, e, "suggest_advance", map[string]interface{}{"needed_amount": -50.0})
	if _, ok := result["error"]; !ok {
		t.Fatal("negative needed_amount should error")
	}
}

func TestCalculateGoalTrajectoryOnTrackBoundary(t *testing.T) {
	s := newTestState()
	// 800/day average, so 30% affordable share is 240/day.
	for i := 1; i <= 7; i++ {
		s.IncomeHistory = append(s.IncomeHistory, core.IncomeEvent{
			Date:   testRunDate.AddDate(0, 0, -i),
			Amount: 800,
		})
	}
	deadline := testRunDate.AddDate(0, 0, 30)
	s.Goals = []core.Goal{
		{ID: "g1", Name: "phone", Target: 7000, Saved: 0, TargetDate: deadline},
		{ID: "g2", Name: "deposit", Target: 7200, Saved: 0, TargetDate: deadline},
	}
	e := NewExecutor(s)

	result := call(t, e, "calculate_goal_trajectory", map[string]interface{}{"goal_id": "g1"})
	if result["on_track"] != true {
		t.Fatalf("233/day against 240 affordable should be on track: %v", result)
	}

	// Exactly at the affordable rate counts as off track.
	result = call(t, e, "calculate_goal_trajectory", map[string]interface{}{"goal_id": "g2"})
	if result["on_track"] != false {
		t.Fatalf("240/day against 240 affordable should not be on track: %v", result)
	}
	if result["projected_days_needed"].(int) != 30 {
		t.Fatalf("projected_days_needed = %v", result["projected_days_needed"])
	}

	result = call(t, e, "calculate_goal_trajectory", map[string]interface{}{"goal_id": "nope"})
	if _, ok := result["error"]; !ok {
		t.Fatal("unknown goal_id should error")
	}

	e = NewExecutor(newTestState())
	result = call(t, e, "calculate_goal_trajectory", nil)
	if _, ok := result["error"]; !ok {
		t.Fatal("no goals should error")
	}
}

func TestAnalyzeSpendingPatternFlagsSpike(t *testing.T) {
	s := newTestState()
	s.ExpenseHistory = []core.ExpenseEvent{
		{Date: testRunDate.AddDate(0, 0, -12), Amount: 1000, Category: "food"},
		{Date: testRunDate.AddDate(0, 0, -5), Amount: 1600, Category: "food"},
	}
	e := NewExecutor(s)

	result := call(t, e, "analyze_spending_pattern", map[string]interface{}{"days": 7.0})
	if result["anomaly_count"].(int) != 1 {
		t.Fatalf("expected one anomaly, got %v", result)
	}
	anomalies := result["anomalies"].([]map[string]interface{})
	if anomalies[0]["category"] != "food" || anomalies[0]["increase_pct"].(float64) != 60 {
		t.Fatalf("anomaly = %v", anomalies[0])
	}
	if result["trend"] != "increasing" {
		t.Fatalf("trend = %v", result["trend"])
	}
	if len(s.UnexpectedFindings) != 1 {
		t.Fatalf("UnexpectedFindings = %v", s.UnexpectedFindings)
	}
	if s.SpendingPatterns == nil {
		t.Fatal("patterns not stashed on state")
	}
}

func TestSimulateScenarioUnexpectedExpense(t *testing.T) {
	s := newTestState()
	s.Buckets = []core.Bucket{
		{Name: "rent", IsProtected: true},
		{Name: "flex"},
	}
	s.BucketBalances["rent"] = 5000
	s.BucketBalances["flex"] = 1000
	e := NewExecutor(s)

	result := call(t, e, "simulate_scenario", map[string]interface{}{
		"scenario_type": "unexpected_expense",
		"amount":        3000.0,
	})
	if result["absorbable"] != false || result["liquid_buckets"].(float64) != 1000 {
		t.Fatalf("protected buckets leaked into liquidity: %v", result)
	}
	if result["gap"].(float64) != 2000 {
		t.Fatalf("gap = %v", result["gap"])
	}
	if _, ok := result["recommendation"]; !ok {
		t.Fatal("unabsorbable expense should carry a recommendation")
	}

	result = call(t, e, "simulate_scenario", map[string]interface{}{
		"scenario_type": "unexpected_expense",
		"amount":        800.0,
	})
	if result["absorbable"] != true || result["gap"].(float64) != 0 {
		t.Fatalf("800 against 1000 liquid should absorb: %v", result)
	}

	result = call(t, e, "simulate_scenario", map[string]interface{}{"scenario_type": "win_lottery"})
	if _, ok := result["error"]; !ok {
		t.Fatal("unknown scenario_type should error")
	}
}

func TestCalculateShortfall(t *testing.T) {
	s := newTestState()
	s.Obligations = []core.Obligation{
		{ID: "o1", Name: "rent", Amount: 8000, DueDay: 12, BucketName: "rent"},
	}
	s.BucketBalances["rent"] = 1000
	e := NewExecutor(s)

	// No income history, so expected income is 7 days of the fallback rate.
	result := call(t, e, "calculate_shortfall", map[string]interface{}{"days_ahead": 7.0})
	if result["obligations_due"].(float64) != 8000 {
		t.Fatalf("obligations_due = %v", result["obligations_due"])
	}
	if result["covered_by_buckets"].(float64) != 1000 {
		t.Fatalf("covered_by_buckets = %v", result["covered_by_buckets"])
	}
	if result["expected_income"].(float64) != 3500 {
		t.Fatalf("expected_income = %v", result["expected_income"])
	}
	if result["shortfall"].(float64) != 3500 || result["covered"] != false {
		t.Fatalf("shortfall result = %v", result)
	}

	s.BucketBalances["rent"] = 9000
	result = call(t, e, "calculate_shortfall", map[string]interface{}{"days_ahead": 7.0})
	// Bucket coverage caps at the obligation amount.
	if result["covered_by_buckets"].(float64) != 8000 {
		t.Fatalf("coverage should cap at the amount due: %v", result)
	}
	if result["shortfall"].(float64) != 0 || result["covered"] != true {
		t.Fatalf("overfunded bucket should clear the shortfall: %v", result)
	}
}

func TestCreateAlertMirrorsUrgent(t *testing.T) {
	s := newTestState()
	e := NewExecutor(s)

	result := call(t, e, "create_alert", map[string]interface{}{
		"alert_type": "obligation_risk",
		"severity":   "urgent",
		"title":      "Rent at risk",
		"body":       "Only 1000 saved with 2 days to go",
	})
	if result["success"] != true {
		t.Fatalf("alert result = %v", result)
	}
	if len(s.Alerts) != 1 || len(s.Messages) != 1 {
		t.Fatalf("alerts=%d messages=%d", len(s.Alerts), len(s.Messages))
	}

	result = call(t, e, "create_alert", map[string]interface{}{
		"alert_type": "fyi",
		"severity":   "catastrophic",
		"title":      "x",
	})
	if _, ok := result["error"]; !ok {
		t.Fatal("invalid severity should error")
	}
}

func TestSetRiskScoreDerivesLevel(t *testing.T) {
	s := newTestState()
	e := NewExecutor(s)

	for _, tc := range []struct {
		score float64
		level string
	}{
		{80, "high"},
		{50, "medium"},
		{30, "low"},
		{10, "minimal"},
	} {
		result := call(t, e, "set_risk_score", map[string]interface{}{"score": tc.score})
		if result["level"] != tc.level {
			t.Errorf("score %.0f: level = %v, want %s", tc.score, result["level"], tc.level)
		}
	}
	if s.RiskScore != 10 || s.RiskLevel != "minimal" {
		t.Fatalf("state risk = %.0f %s", s.RiskScore, s.RiskLevel)
	}

	result := call(t, e, "set_risk_score", map[string]interface{}{"score": 140.0})
	if _, ok := result["error"]; !ok {
		t.Fatal("out-of-range score should error")
	}
}
