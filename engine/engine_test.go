package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/specialist"
	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

var testRunDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

// scriptedOracle replays a fixed sequence of conversation turns and
// routes CompleteJSON through a pluggable handler. A nil handler makes
// every single-shot phase fail, exercising the fallback paths.
type scriptedOracle struct {
	turns  []*Turn
	pos    int
	said   []string
	jsonFn func(system, prompt string, out interface{}) error
}

func (o *scriptedOracle) NewConversation(system string, defs []tools.Definition) Conversation {
	return &scriptedConvo{oracle: o}
}

func (o *scriptedOracle) CompleteJSON(ctx context.Context, system, prompt string, out interface{}) error {
	if o.jsonFn == nil {
		return errors.New("oracle unavailable")
	}
	return o.jsonFn(system, prompt, out)
}

func (o *scriptedOracle) next() (*Turn, error) {
	if o.pos >= len(o.turns) {
		return &Turn{}, nil
	}
	t := o.turns[o.pos]
	o.pos++
	return t, nil
}

type scriptedConvo struct {
	oracle *scriptedOracle
}

func (c *scriptedConvo) Say(ctx context.Context, message string) (*Turn, error) {
	c.oracle.said = append(c.oracle.said, message)
	return c.oracle.next()
}

func (c *scriptedConvo) ReturnToolResults(ctx context.Context, replies []ToolReply) (*Turn, error) {
	return c.oracle.next()
}

func tcall(id, name, input string) OracleToolCall {
	return OracleToolCall{ID: id, Name: name, Input: json.RawMessage(input)}
}

func investigateTurn() *Turn {
	return &Turn{ToolCalls: []OracleToolCall{
		tcall("t1", "get_bucket_balances", `{}`),
		tcall("t2", "get_upcoming_obligations", `{}`),
		tcall("t3", "get_income_history", `{}`),
		tcall("t4", "get_expense_history", `{}`),
		tcall("t5", "get_goals_progress", `{}`),
	}}
}

func completeTurn() *Turn {
	return &Turn{ToolCalls: []OracleToolCall{
		tcall("t9", "complete_analysis", `{
			"key_insight": "Rent bucket is 1300 short but weekend earnings cover it",
			"recommended_action": "Rent bucket mein 650 per day daalo is weekend"
		}`),
	}}
}

// downOracle fails every conversation turn, as an outage would.
type downOracle struct{}

func (downOracle) NewConversation(system string, defs []tools.Definition) Conversation {
	return downConvo{}
}

func (downOracle) CompleteJSON(ctx context.Context, system, prompt string, out interface{}) error {
	return errors.New("oracle unavailable")
}

type downConvo struct{}

func (downConvo) Say(ctx context.Context, message string) (*Turn, error) {
	return nil, errors.New("oracle unavailable")
}

func (downConvo) ReturnToolResults(ctx context.Context, replies []ToolReply) (*Turn, error) {
	return nil, errors.New("oracle unavailable")
}

type stubLedger struct {
	saved  []*core.Decision
	recent []*core.Decision
}

func (l *stubLedger) Save(ctx context.Context, d *core.Decision) error {
	l.saved = append(l.saved, d)
	return nil
}

func (l *stubLedger) Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error) {
	return l.recent, nil
}

type stubRecaller struct {
	retrieved string
	recorded  []core.Decision
}

func (r *stubRecaller) Retrieve(ctx context.Context, ownerID, query string) (string, error) {
	return r.retrieved, nil
}

func (r *stubRecaller) Record(ctx context.Context, ownerID string, decisions []core.Decision) error {
	r.recorded = append(r.recorded, decisions...)
	return nil
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"react", "enhanced", "routed", "fast"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q): %v", valid, err)
		}
	}
	if _, err := ParseMode("yolo"); err == nil || !strings.Contains(err.Error(), "unknown agentic mode") {
		t.Errorf("ParseMode(yolo) err = %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"Here it is:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{`some prose {"a":{"b":2}} trailing`, `{"a":{"b":2}}`},
		{`{"s":"brace } inside"}`, `{"s":"brace } inside"}`},
		{`[1,2,3]`, `[1,2,3]`},
		{"no structured reply at all", ""},
	} {
		if got := ExtractJSON(tc.in); got != tc.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReActAgentCompletesThroughGate(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	oracle := &scriptedOracle{turns: []*Turn{investigateTurn(), completeTurn()}}
	agent := NewReActAgent(oracle, tools.NewExecutor(s))

	if err := agent.Run(context.Background(), "Daily analysis"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(s.KeyInsight, "Rent bucket") {
		t.Errorf("KeyInsight = %q", s.KeyInsight)
	}
	if s.Iterations != 2 {
		t.Errorf("Iterations = %d", s.Iterations)
	}
	if s.TotalToolCalls != 6 {
		t.Errorf("TotalToolCalls = %d", s.TotalToolCalls)
	}
}

func TestReActAgentAcceptsProseFinishAfterEnoughWork(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	oracle := &scriptedOracle{turns: []*Turn{
		investigateTurn(),
		{Text: "Buckets are healthy, nothing urgent this week."},
	}}
	agent := NewReActAgent(oracle, tools.NewExecutor(s))

	if err := agent.Run(context.Background(), "Daily analysis"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Iterations != 2 {
		t.Errorf("Iterations = %d", s.Iterations)
	}
	if len(oracle.said) != 1 {
		t.Errorf("prose finish after enough tool calls should not reprompt, said = %q", oracle.said)
	}
	if s.TotalToolCalls != 5 {
		t.Errorf("TotalToolCalls = %d", s.TotalToolCalls)
	}
}

func TestEnhancedAgentAcceptsProseFinishAfterEnoughWork(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	oracle := &scriptedOracle{turns: []*Turn{
		investigateTurn(),
		{Text: "Plan covered, nothing urgent this week."},
	}}
	agent := NewEnhancedAgent(oracle, tools.NewExecutor(s))

	if err := agent.Run(context.Background(), "Daily analysis"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Iterations != 2 {
		t.Errorf("Iterations = %d", s.Iterations)
	}
	if len(oracle.said) != 1 {
		t.Errorf("prose finish after enough tool calls should not reprompt, said = %q", oracle.said)
	}
}

func TestReActAgentRepromptsPrematureFinish(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	oracle := &scriptedOracle{turns: []*Turn{
		{Text: "Everything looks fine to me."},
		{ToolCalls: append(investigateTurn().ToolCalls, completeTurn().ToolCalls...)},
	}}
	agent := NewReActAgent(oracle, tools.NewExecutor(s))

	if err := agent.Run(context.Background(), "Daily analysis"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(oracle.said) != 2 {
		t.Fatalf("said = %d messages", len(oracle.said))
	}
	if !strings.Contains(oracle.said[1], "not completed the analysis") {
		t.Errorf("corrective message = %q", oracle.said[1])
	}
	if s.KeyInsight == "" {
		t.Error("run should finish with an insight after the reprompt")
	}
}

func TestReActAgentFallbackInsightAtCeiling(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	oracle := &scriptedOracle{turns: []*Turn{
		{ToolCalls: []OracleToolCall{tcall("t1", "get_bucket_balances", `{}`)}},
		{ToolCalls: []OracleToolCall{tcall("t2", "get_income_history", `{}`)}},
	}}
	agent := NewReActAgent(oracle, tools.NewExecutor(s), WithMaxIterations(2))

	if err := agent.Run(context.Background(), "Daily analysis"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.KeyInsight != FallbackInsight {
		t.Errorf("KeyInsight = %q", s.KeyInsight)
	}
}

func TestEnhancedAgentDegradesEveryPhase(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	ledger := &stubLedger{recent: []*core.Decision{
		{DecisionType: "allocation", CreatedAt: testRunDate.AddDate(0, 0, -3)},
	}}
	recaller := &stubRecaller{retrieved: "Advance declined last week, income was too thin"}

	// jsonFn stays nil: planning, reflection, debate and lesson
	// extraction all fail and must fall back.
	oracle := &scriptedOracle{turns: []*Turn{
		{ToolCalls: append(investigateTurn().ToolCalls, completeTurn().ToolCalls...)},
	}}
	agent := NewEnhancedAgent(oracle, tools.NewExecutor(s),
		WithLearningLedger(ledger), WithRecaller(recaller))

	if err := agent.Run(context.Background(), "Daily analysis"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.Plan == nil || len(s.Plan.Steps) != 6 {
		t.Fatalf("expected the default 6-step plan, got %+v", s.Plan)
	}
	if !strings.Contains(oracle.said[0], "Your plan:") {
		t.Errorf("opening lacks the plan: %q", oracle.said[0])
	}
	if !strings.Contains(oracle.said[0], "Advance declined last week") {
		t.Errorf("opening lacks recalled lessons: %q", oracle.said[0])
	}

	// One optimistic default reflection per investigative call.
	if len(s.Reflections) != 5 {
		t.Fatalf("reflections = %d", len(s.Reflections))
	}
	for _, r := range s.Reflections {
		if !r.Success || r.Confidence != 0.5 {
			t.Errorf("reflection fallback = %+v", r)
		}
	}

	if s.Debate == nil || len(s.Debate.Opinions) != 3 {
		t.Fatalf("debate = %+v", s.Debate)
	}
	if s.Debate.Confidence != 0.6 {
		t.Errorf("failed synthesis should keep the draft at 0.6 confidence, got %v", s.Debate.Confidence)
	}
	if !strings.Contains(s.RecommendedAction, "650") {
		t.Errorf("draft recommendation lost in debate: %q", s.RecommendedAction)
	}

	// The learning phase still persists how the run went.
	if len(ledger.saved) != 1 || ledger.saved[0].DecisionType != "execution_learning" {
		t.Fatalf("ledger saved = %+v", ledger.saved)
	}
	if len(recaller.recorded) == 0 {
		t.Error("memory should receive the run's decisions")
	}
}

func TestRouterFallsBackWithoutOracle(t *testing.T) {
	registry := specialist.NewRegistry(nil, tools.DefaultPolicy())
	router := NewRouter(nil, registry)
	s := core.NewState("worker-1", testRunDate)

	if err := router.Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Routing == nil || !s.Routing.Fallback {
		t.Fatalf("routing = %+v", s.Routing)
	}
	if len(s.Routing.AgentsToRun) != len(BaselineAgents) {
		t.Errorf("agents = %v", s.Routing.AgentsToRun)
	}
	if len(s.Activity) != len(BaselineAgents) {
		t.Fatalf("activity = %d entries", len(s.Activity))
	}
	for _, entry := range s.Activity {
		if entry.Status != "completed" {
			t.Errorf("activity %s status = %s", entry.Agent, entry.Status)
		}
	}
}

type failingSpecialist struct{}

func (f *failingSpecialist) Name() string { return "INCOME_ANALYZER" }

func (f *failingSpecialist) Run(ctx context.Context, s *core.State) error {
	return errors.New("boom")
}

func TestRouterIsolatesSpecialistFailures(t *testing.T) {
	registry := specialist.NewRegistry(nil, tools.DefaultPolicy())
	registry.Register(&failingSpecialist{})
	router := NewRouter(nil, registry)
	s := core.NewState("worker-1", testRunDate)

	if err := router.Run(context.Background(), s); err != nil {
		t.Fatalf("one failing specialist must not fail the run: %v", err)
	}
	if len(s.Activity) != len(BaselineAgents) {
		t.Fatalf("activity = %d entries", len(s.Activity))
	}
	if s.Activity[0].Status != "error" || s.Activity[0].Detail != "boom" {
		t.Errorf("failing entry = %+v", s.Activity[0])
	}
	for _, entry := range s.Activity[1:] {
		if entry.Status != "completed" {
			t.Errorf("%s status = %s", entry.Agent, entry.Status)
		}
	}
}

func TestRouterValidatesVerdict(t *testing.T) {
	registry := specialist.NewRegistry(nil, tools.DefaultPolicy())
	oracle := &scriptedOracle{jsonFn: func(system, prompt string, out interface{}) error {
		return json.Unmarshal([]byte(`{
			"reasoning": "income day, focus on allocation",
			"urgency": "apocalyptic",
			"agents_to_run": ["INCOME_ANALYZER", "NOT_A_SPECIALIST", "BUCKET_ALLOCATOR"]
		}`), out)
	}}
	router := NewRouter(oracle, registry)
	s := core.NewState("worker-1", testRunDate)

	decision := router.Route(context.Background(), s)
	if decision.Fallback {
		t.Fatal("valid verdict should not fall back")
	}
	if len(decision.AgentsToRun) != 2 {
		t.Errorf("agents = %v", decision.AgentsToRun)
	}
	if decision.Urgency != "medium" {
		t.Errorf("unknown urgency should normalize to medium, got %q", decision.Urgency)
	}
}

func TestRouterFallsBackOnUnusableVerdicts(t *testing.T) {
	registry := specialist.NewRegistry(nil, tools.DefaultPolicy())
	s := core.NewState("worker-1", testRunDate)

	failing := &scriptedOracle{jsonFn: func(system, prompt string, out interface{}) error {
		return errors.New("overloaded")
	}}
	if d := NewRouter(failing, registry).Route(context.Background(), s); !d.Fallback {
		t.Error("oracle error should fall back to the baseline set")
	}

	empty := &scriptedOracle{jsonFn: func(system, prompt string, out interface{}) error {
		return json.Unmarshal([]byte(`{"reasoning":"x","urgency":"low","agents_to_run":["GHOST"]}`), out)
	}}
	if d := NewRouter(empty, registry).Route(context.Background(), s); !d.Fallback {
		t.Error("verdict with no runnable specialists should fall back")
	}
}

func TestPipelineFastMode(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	s.TodayIncome = 2000
	s.Obligations = []core.Obligation{
		{ID: "o1", Name: "rent", Amount: 5000, DueDay: 12, BucketName: "rent"},
	}
	s.BucketBalances["rent"] = 500
	s.IncomeHistory = []core.IncomeEvent{
		{Date: testRunDate.AddDate(0, 0, -1), Amount: 1800, Platform: "swiggy"},
		{Date: testRunDate.AddDate(0, 0, -2), Amount: 2100, Platform: "zomato"},
	}

	p := NewPipeline(nil)
	summary, err := p.Run(context.Background(), s, ModeFast)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Mode != "fast" {
		t.Errorf("Mode = %q", summary.Mode)
	}
	if len(s.Activity) != 8 {
		t.Errorf("activity = %d entries", len(s.Activity))
	}
	if len(s.Forecast) != 30 {
		t.Errorf("forecast days = %d", len(s.Forecast))
	}
	if len(s.AllocationPlan) == 0 {
		t.Error("today's income should produce allocations")
	}
	if s.AdvanceProposal == nil {
		t.Error("advance evaluator should always leave a proposal verdict")
	}
	if summary.RiskLevel == "" || summary.KeyInsight == "" || summary.RecommendedAction == "" {
		t.Errorf("summary incomplete: risk=%q insight=%q action=%q",
			summary.RiskLevel, summary.KeyInsight, summary.RecommendedAction)
	}
}

func TestPipelineReturnsPartialSummaryOnFailure(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	s.TodayIncome = 1500
	p := NewPipeline(downOracle{})

	summary, err := p.Run(context.Background(), s, ModeReact)
	if err == nil || !strings.Contains(err.Error(), "react run") {
		t.Fatalf("err = %v", err)
	}
	if summary == nil {
		t.Fatal("a failed run must still return a summary")
	}
	if !strings.Contains(summary.AgentError, "oracle unavailable") {
		t.Errorf("AgentError = %q", summary.AgentError)
	}
	if !strings.Contains(summary.KeyInsight, "1500") {
		t.Errorf("fallback insight missing: %q", summary.KeyInsight)
	}
	if summary.RiskLevel == "" || summary.RecommendedAction == "" {
		t.Errorf("summary incomplete: risk=%q action=%q", summary.RiskLevel, summary.RecommendedAction)
	}
}

func TestPipelineIterationLimits(t *testing.T) {
	singleCalls := func() []*Turn {
		return []*Turn{
			{ToolCalls: []OracleToolCall{tcall("t1", "get_bucket_balances", `{}`)}},
			{ToolCalls: []OracleToolCall{tcall("t2", "get_income_history", `{}`)}},
			{ToolCalls: []OracleToolCall{tcall("t3", "get_expense_history", `{}`)}},
			{ToolCalls: []OracleToolCall{tcall("t4", "get_goals_progress", `{}`)}},
		}
	}

	oracle := &scriptedOracle{turns: singleCalls()}
	p := NewPipeline(oracle, WithIterationLimits(2, 2))
	s := core.NewState("worker-1", testRunDate)
	summary, err := p.Run(context.Background(), s, ModeReact)
	if err != nil {
		t.Fatalf("react run: %v", err)
	}
	if summary.Iterations != 2 {
		t.Errorf("react iterations = %d, want the configured ceiling of 2", summary.Iterations)
	}
	if summary.KeyInsight != FallbackInsight {
		t.Errorf("KeyInsight = %q", summary.KeyInsight)
	}

	oracle = &scriptedOracle{turns: singleCalls()}
	p = NewPipeline(oracle, WithIterationLimits(2, 2))
	s = core.NewState("worker-1", testRunDate)
	summary, err = p.Run(context.Background(), s, ModeEnhanced)
	if err != nil {
		t.Fatalf("enhanced run: %v", err)
	}
	if summary.Iterations != 2 {
		t.Errorf("enhanced iterations = %d, want the configured ceiling of 2", summary.Iterations)
	}
}

func TestPipelineModeErrors(t *testing.T) {
	p := NewPipeline(nil)
	s := core.NewState("worker-1", testRunDate)

	if _, err := p.Run(context.Background(), s, ModeReact); err == nil || !strings.Contains(err.Error(), "react mode needs an oracle") {
		t.Errorf("react err = %v", err)
	}
	if _, err := p.Run(context.Background(), s, ModeEnhanced); err == nil || !strings.Contains(err.Error(), "enhanced mode needs an oracle") {
		t.Errorf("enhanced err = %v", err)
	}
	if _, err := p.Run(context.Background(), s, Mode("psychic")); err == nil {
		t.Error("unknown mode should error")
	}
}

func TestEnsureRequiredFields(t *testing.T) {
	p := NewPipeline(nil)
	s := core.NewState("worker-1", testRunDate)
	s.Buckets = []core.Bucket{{Name: "flex", Kind: "flex"}}
	s.BucketBalances["flex"] = 450

	p.ensureRequiredFields(s)
	if s.SafeToSpend != 450 {
		t.Errorf("SafeToSpend = %v", s.SafeToSpend)
	}
	if s.RiskLevel == "" || s.KeyInsight == "" || s.RecommendedAction == "" {
		t.Errorf("fields missing: risk=%q insight=%q action=%q", s.RiskLevel, s.KeyInsight, s.RecommendedAction)
	}
}

func TestSmartInsightPrefersTopRisk(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	s.ObligationRisks = []core.ObligationRisk{
		{Name: "phone", RiskScore: 20, RiskLevel: "low"},
		{Name: "rent", RiskScore: 90, RiskLevel: "high", Amount: 5000, DaysUntilDue: 2, ProjectedGap: 1300},
	}
	if insight := smartInsight(s); !strings.Contains(insight, "rent") {
		t.Errorf("insight = %q", insight)
	}

	s2 := core.NewState("worker-1", testRunDate)
	s2.TodayIncome = 1500
	if insight := smartInsight(s2); !strings.Contains(insight, "1500") {
		t.Errorf("insight = %q", insight)
	}
}

func TestRecommendedActionSurfacesAdvance(t *testing.T) {
	s := core.NewState("worker-1", testRunDate)
	s.AdvanceProposal = map[string]interface{}{"eligible": true, "amount": 2000.0}
	if action := recommendedAction(s); !strings.Contains(action, "2000") {
		t.Errorf("action = %q", action)
	}

	s2 := core.NewState("worker-1", testRunDate)
	s2.RiskLevel = "high"
	if action := recommendedAction(s2); !strings.Contains(action, "obligations") {
		t.Errorf("action = %q", action)
	}
}
