package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// Features toggles the enhanced loop's advisory phases. All default on;
// every phase degrades safely when its oracle call fails, so disabling
// them is a cost decision, not a safety one.
type Features struct {
	Planning   bool
	Reflection bool
	Debate     bool
	Learning   bool
}

// AllFeatures enables every phase.
func AllFeatures() Features {
	return Features{Planning: true, Reflection: true, Debate: true, Learning: true}
}

// MemoryRecaller is the optional vector memory consulted during the
// learning phase. memory.SimpleManager satisfies this.
type MemoryRecaller interface {
	Retrieve(ctx context.Context, ownerID, query string) (string, error)
	Record(ctx context.Context, ownerID string, decisions []core.Decision) error
}

// EnhancedAgent is the deliberative loop: it plans before acting,
// reflects on every tool result, revises the plan when anomalies pile
// up, debates the draft recommendation across three advisor personas,
// and learns from past runs.
type EnhancedAgent struct {
	oracle   Oracle
	executor *tools.Executor
	ledger   tools.DecisionLedger // optional
	memory   MemoryRecaller       // optional
	features Features

	maxIterations int
	reviseEvery   int // consider plan revision every Nth tool call
}

// EnhancedOption configures the agent.
type EnhancedOption func(*EnhancedAgent)

// WithFeatures selects which phases run.
func WithFeatures(f Features) EnhancedOption {
	return func(a *EnhancedAgent) { a.features = f }
}

// WithLearningLedger attaches the decision ledger mined before a run.
func WithLearningLedger(l tools.DecisionLedger) EnhancedOption {
	return func(a *EnhancedAgent) { a.ledger = l }
}

// WithRecaller attaches vector memory for the learning phase.
func WithRecaller(m MemoryRecaller) EnhancedOption {
	return func(a *EnhancedAgent) { a.memory = m }
}

// WithIterationCeiling caps oracle turns.
func WithIterationCeiling(n int) EnhancedOption {
	return func(a *EnhancedAgent) { a.maxIterations = n }
}

// NewEnhancedAgent builds the deliberative loop.
func NewEnhancedAgent(oracle Oracle, executor *tools.Executor, opts ...EnhancedOption) *EnhancedAgent {
	a := &EnhancedAgent{
		oracle:        oracle,
		executor:      executor,
		features:      AllFeatures(),
		maxIterations: 20,
		reviseEvery:   3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes all phases. Only oracle failures in the MAIN loop are
// fatal; every advisory phase logs and degrades.
func (a *EnhancedAgent) Run(ctx context.Context, opening string) error {
	s := a.executor.State()

	var lessons string
	if a.features.Learning {
		lessons = a.recallLessons(ctx)
	}

	if a.features.Planning {
		a.plan(ctx, opening, lessons)
	}

	if err := a.mainLoop(ctx, opening, lessons); err != nil {
		return err
	}

	if a.features.Debate && s.RecommendedAction != "" {
		a.debate(ctx)
	}

	if a.features.Learning {
		a.saveLearnings(ctx)
	}
	return nil
}

// plan asks the oracle for a structured plan; failure falls back to the
// stock six steps.
func (a *EnhancedAgent) plan(ctx context.Context, opening, lessons string) {
	s := a.executor.State()
	prompt := opening
	if lessons != "" {
		prompt += "\n\nLessons from past runs:\n" + lessons
	}

	var p core.Plan
	if err := a.oracle.CompleteJSON(ctx, PlannerSystemPrompt, prompt, &p); err != nil || len(p.Steps) == 0 {
		if err != nil {
			log.Printf("[ENHANCED] Planning failed, using default plan: %v", err)
		}
		p = core.Plan{
			Situation: "Default plan: full daily check-up",
			Steps:     DefaultPlanSteps(),
		}
	}
	s.Plan = &p
	log.Printf("[ENHANCED] Plan ready: %d steps", len(p.Steps))
}

// DefaultPlanSteps is the fallback plan when the planner is
// unavailable: the standard full check-up.
func DefaultPlanSteps() []core.PlanStep {
	return []core.PlanStep{
		{Number: 1, Action: "Check bucket balances", Tool: "get_bucket_balances", Expected: "Current position across buckets"},
		{Number: 2, Action: "Check obligations due soon", Tool: "get_upcoming_obligations", Expected: "What needs money and when"},
		{Number: 3, Action: "Review income pattern", Tool: "get_income_history", Expected: "Earning rhythm and today's income"},
		{Number: 4, Action: "Scan spending for spikes", Tool: "analyze_spending_pattern", Expected: "Anomalies vs previous week"},
		{Number: 5, Action: "Project shortfalls", Tool: "calculate_shortfall", Expected: "Gap if any over the next week"},
		{Number: 6, Action: "Finish with verdict", Tool: "complete_analysis", Expected: "Key insight and action"},
	}
}

// mainLoop is the ReAct core with reflection and plan revision wired
// into each tool result.
func (a *EnhancedAgent) mainLoop(ctx context.Context, opening, lessons string) error {
	s := a.executor.State()
	convo := a.oracle.NewConversation(ReActSystemPrompt, tools.Catalogue())

	message := opening
	if s.Plan != nil {
		message += "\n\nYour plan:\n" + formatPlan(s.Plan)
	}
	if lessons != "" {
		message += "\n\nLessons from past runs:\n" + lessons
	}

	turn, err := convo.Say(ctx, message)
	if err != nil {
		return fmt.Errorf("enhanced opening turn: %w", err)
	}

	prematureFinishes := 0
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("enhanced loop cancelled: %w", err)
		}
		s.Iterations = iteration

		if text := strings.TrimSpace(turn.Text); text != "" {
			s.ReasoningChain = append(s.ReasoningChain, text)
		}

		if len(turn.ToolCalls) == 0 {
			if s.KeyInsight != "" || a.executor.InvestigativeCalls() >= a.executor.Policy().MinToolCalls {
				return nil
			}
			prematureFinishes++
			if prematureFinishes > 2 {
				break
			}
			turn, err = convo.Say(ctx, "The analysis is not complete yet. Follow your plan and finish through complete_analysis with a substantive insight.")
			if err != nil {
				return fmt.Errorf("enhanced corrective turn: %w", err)
			}
			continue
		}

		replies := make([]ToolReply, 0, len(turn.ToolCalls))
		completed := false
		for _, call := range turn.ToolCalls {
			result := a.executor.Execute(ctx, call.Name, call.Input)
			content, _ := json.Marshal(result)
			_, isError := result["error"]
			replies = append(replies, ToolReply{
				CallID:  call.ID,
				Content: string(content),
				IsError: isError,
			})
			if call.Name == "complete_analysis" && !isError {
				completed = true
				continue
			}

			if a.features.Reflection {
				a.reflect(ctx, call.Name, result)
			}
			if a.features.Planning && a.reviseEvery > 0 &&
				s.TotalToolCalls%a.reviseEvery == 0 && len(s.UnexpectedFindings) > 0 {
				a.maybeRevisePlan(ctx)
			}
		}
		if completed {
			return nil
		}

		turn, err = convo.ReturnToolResults(ctx, replies)
		if err != nil {
			return fmt.Errorf("enhanced loop turn %d: %w", iteration, err)
		}
	}

	if s.KeyInsight == "" && s.TotalToolCalls > 0 {
		log.Printf("[ENHANCED] Iteration ceiling reached, using fallback insight")
		s.KeyInsight = FallbackInsight
	}
	return nil
}

// reflect scores one tool result. A failed reflection is replaced by
// the optimistic default so the loop never stalls on metacognition.
func (a *EnhancedAgent) reflect(ctx context.Context, tool string, result map[string]interface{}) {
	s := a.executor.State()
	resultJSON, _ := json.Marshal(result)
	prompt := fmt.Sprintf("Tool: %s\nResult: %s\nPlan: %s", tool, truncateText(string(resultJSON), 1500), planStepFor(s.Plan, tool))

	var r core.Reflection
	if err := a.oracle.CompleteJSON(ctx, ReflectionSystemPrompt, prompt, &r); err != nil {
		r = core.Reflection{Success: true, MatchesPlan: true, Confidence: 0.5}
	}
	r.Tool = tool
	s.Reflections = append(s.Reflections, r)

	if r.Anomaly && r.AnomalyNote != "" {
		s.UnexpectedFindings = append(s.UnexpectedFindings, r.AnomalyNote)
		log.Printf("[ENHANCED] Anomaly noted: %s", r.AnomalyNote)
	}
}

// maybeRevisePlan asks whether the remaining plan survives the
// anomalies seen so far.
func (a *EnhancedAgent) maybeRevisePlan(ctx context.Context) {
	s := a.executor.State()
	if s.Plan == nil {
		return
	}

	prompt := fmt.Sprintf("Anomalies so far:\n- %s\n\nRemaining plan:\n%s",
		strings.Join(s.UnexpectedFindings, "\n- "), formatPlan(s.Plan))

	var revision struct {
		Revise bool            `json:"revise"`
		Reason string          `json:"reason"`
		Steps  []core.PlanStep `json:"steps"`
	}
	if err := a.oracle.CompleteJSON(ctx, PlanRevisionSystemPrompt, prompt, &revision); err != nil {
		log.Printf("[ENHANCED] Plan revision check failed, keeping plan: %v", err)
		return
	}
	if revision.Revise && len(revision.Steps) > 0 {
		s.Plan.Steps = revision.Steps
		s.Plan.Revised++
		log.Printf("[ENHANCED] Plan revised (%s): %d new steps", revision.Reason, len(revision.Steps))
	}
}

func formatPlan(p *core.Plan) string {
	var b strings.Builder
	for _, step := range p.Steps {
		fmt.Fprintf(&b, "%d. %s", step.Number, step.Action)
		if step.Tool != "" {
			fmt.Fprintf(&b, " [%s]", step.Tool)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func planStepFor(p *core.Plan, tool string) string {
	if p == nil {
		return "no plan"
	}
	for _, step := range p.Steps {
		if step.Tool == tool {
			return step.Action + " -> " + step.Expected
		}
	}
	return "unplanned step"
}
