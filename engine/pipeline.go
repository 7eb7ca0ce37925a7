package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/specialist"
	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// Mode selects how a run executes. The set is closed: unknown modes are
// configuration errors, not silent fallbacks.
type Mode string

const (
	// ModeReact is the plain think-act-observe loop.
	ModeReact Mode = "react"

	// ModeEnhanced adds planning, reflection, debate and learning.
	ModeEnhanced Mode = "enhanced"

	// ModeRouted asks the oracle once which specialists to run.
	ModeRouted Mode = "routed"

	// ModeFast runs every specialist deterministically, no oracle.
	ModeFast Mode = "fast"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReact, ModeEnhanced, ModeRouted, ModeFast:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown agentic mode %q (want react, enhanced, routed or fast)", s)
}

// Strategy executes one run over the state.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, s *core.State) error
}

// Pipeline wires an oracle, ledger, persistence and specialists into
// runnable strategies, one per mode.
type Pipeline struct {
	oracle  Oracle
	ledger  tools.DecisionLedger
	buckets tools.BucketWriter
	memory  MemoryRecaller
	policy  tools.Policy

	reactIterations    int
	enhancedIterations int

	specialists *specialist.Registry // oracle-backed, for routed mode
	fastChain   *specialist.Registry // oracle-free, for fast mode
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLedger attaches the decision ledger.
func WithLedger(l tools.DecisionLedger) PipelineOption {
	return func(p *Pipeline) { p.ledger = l }
}

// WithBucketWriter attaches durable bucket persistence.
func WithBucketWriter(w tools.BucketWriter) PipelineOption {
	return func(p *Pipeline) { p.buckets = w }
}

// WithMemory attaches vector memory for enhanced mode's learning phase.
func WithMemory(m MemoryRecaller) PipelineOption {
	return func(p *Pipeline) { p.memory = m }
}

// WithToolPolicy overrides the default tool guardrails.
func WithToolPolicy(policy tools.Policy) PipelineOption {
	return func(p *Pipeline) { p.policy = policy }
}

// WithIterationLimits caps oracle turns for the react and enhanced
// loops. Non-positive values keep the defaults.
func WithIterationLimits(react, enhanced int) PipelineOption {
	return func(p *Pipeline) {
		if react > 0 {
			p.reactIterations = react
		}
		if enhanced > 0 {
			p.enhancedIterations = enhanced
		}
	}
}

// NewPipeline builds the pipeline. The oracle may be nil, in which case
// only fast mode is usable.
func NewPipeline(oracle Oracle, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		oracle:             oracle,
		policy:             tools.DefaultPolicy(),
		reactIterations:    15,
		enhancedIterations: 20,
	}
	for _, opt := range opts {
		opt(p)
	}
	var specialistOracle specialist.Oracle
	if oracle != nil {
		specialistOracle = oracle
	}
	p.specialists = specialist.NewRegistry(specialistOracle, p.policy)
	p.fastChain = specialist.NewRegistry(nil, p.policy)
	return p
}

// Run executes one analysis in the given mode and consolidates the
// result. The caller owns the state; persistence of the summary is the
// caller's concern (see store.Store.SaveRun).
func (p *Pipeline) Run(ctx context.Context, s *core.State, mode Mode) (*core.RunSummary, error) {
	strategy, err := p.strategyFor(mode)
	if err != nil {
		return nil, err
	}
	s.Mode = string(mode)
	start := time.Now()
	log.Printf("[PIPELINE] Run %s starting: owner=%s mode=%s trigger=%s",
		s.RunID, s.OwnerID, mode, s.TriggerReason)

	runErr := strategy.Execute(ctx, s)
	s.ExecutionTimeMs = time.Since(start).Milliseconds()
	if runErr != nil {
		s.AgentError = runErr.Error()
		log.Printf("[PIPELINE] Run %s failed after %dms: %v", s.RunID, s.ExecutionTimeMs, runErr)
	}

	// Required fields are filled in even on failure so the caller still
	// gets a usable summary with the error recorded in it.
	p.ensureRequiredFields(s)
	if runErr != nil {
		return s.Summary(), fmt.Errorf("%s run: %w", mode, runErr)
	}
	log.Printf("[PIPELINE] Run %s done in %dms: risk=%.0f (%s), %d tool calls",
		s.RunID, s.ExecutionTimeMs, s.RiskScore, s.RiskLevel, s.TotalToolCalls)
	return s.Summary(), nil
}

func (p *Pipeline) strategyFor(mode Mode) (Strategy, error) {
	switch mode {
	case ModeReact:
		if p.oracle == nil {
			return nil, fmt.Errorf("react mode needs an oracle")
		}
		return &reactStrategy{pipeline: p}, nil
	case ModeEnhanced:
		if p.oracle == nil {
			return nil, fmt.Errorf("enhanced mode needs an oracle")
		}
		return &enhancedStrategy{pipeline: p}, nil
	case ModeRouted:
		return &routedStrategy{pipeline: p}, nil
	case ModeFast:
		return &fastStrategy{pipeline: p}, nil
	}
	return nil, fmt.Errorf("unknown agentic mode %q", mode)
}

func (p *Pipeline) newExecutor(s *core.State) *tools.Executor {
	opts := []tools.ExecutorOption{tools.WithPolicy(p.policy)}
	if p.ledger != nil {
		opts = append(opts, tools.WithLedger(p.ledger))
	}
	if p.buckets != nil {
		opts = append(opts, tools.WithBucketWriter(p.buckets))
	}
	return tools.NewExecutor(s, opts...)
}

type reactStrategy struct {
	pipeline *Pipeline
}

func (r *reactStrategy) Name() string { return string(ModeReact) }

func (r *reactStrategy) Execute(ctx context.Context, s *core.State) error {
	executor := r.pipeline.newExecutor(s)
	agent := NewReActAgent(r.pipeline.oracle, executor,
		WithMaxIterations(r.pipeline.reactIterations),
		WithMinToolCalls(r.pipeline.policy.MinToolCalls))
	err := agent.Run(ctx, openingMessage(s))
	s.Activity = append(s.Activity, core.ActivityEntry{
		Agent:  "react_loop",
		Status: statusFor(err),
		Detail: fmt.Sprintf("%d iterations, %d tool calls", s.Iterations, s.TotalToolCalls),
	})
	return err
}

type enhancedStrategy struct {
	pipeline *Pipeline
}

func (e *enhancedStrategy) Name() string { return string(ModeEnhanced) }

func (e *enhancedStrategy) Execute(ctx context.Context, s *core.State) error {
	p := e.pipeline
	executor := p.newExecutor(s)
	opts := []EnhancedOption{WithIterationCeiling(p.enhancedIterations)}
	if p.ledger != nil {
		opts = append(opts, WithLearningLedger(p.ledger))
	}
	if p.memory != nil {
		opts = append(opts, WithRecaller(p.memory))
	}
	agent := NewEnhancedAgent(p.oracle, executor, opts...)
	err := agent.Run(ctx, openingMessage(s))
	s.Activity = append(s.Activity, core.ActivityEntry{
		Agent:  "enhanced_loop",
		Status: statusFor(err),
		Detail: fmt.Sprintf("%d iterations, %d reflections", s.Iterations, len(s.Reflections)),
	})
	return err
}

type routedStrategy struct {
	pipeline *Pipeline
}

func (r *routedStrategy) Name() string { return string(ModeRouted) }

func (r *routedStrategy) Execute(ctx context.Context, s *core.State) error {
	router := NewRouter(r.pipeline.oracle, r.pipeline.specialists)
	return router.Run(ctx, s)
}

// fastStrategy runs the full specialist chain in dependency order with
// no oracle at all. Deterministic and cheap; the nightly batch mode.
type fastStrategy struct {
	pipeline *Pipeline
}

func (f *fastStrategy) Name() string { return string(ModeFast) }

func (f *fastStrategy) Execute(ctx context.Context, s *core.State) error {
	order := []string{
		specialist.IncomeAnalyzer,
		specialist.ExpenseAnalyzer,
		specialist.ObligationRiskAnalyzer,
		specialist.CashflowPlanner,
		specialist.BucketAllocator,
		specialist.MicroAdvanceEvaluator,
		specialist.GoalScenarioPlanner,
		specialist.RiskCalculator,
	}
	for _, name := range order {
		sp, ok := f.pipeline.fastChain.Get(name)
		if !ok {
			continue
		}
		start := time.Now()
		err := sp.Run(ctx, s)
		entry := core.ActivityEntry{
			Agent:      name,
			Status:     statusFor(err),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			entry.Detail = err.Error()
			log.Printf("[PIPELINE] Fast chain %s failed: %v", name, err)
		}
		s.Activity = append(s.Activity, entry)
	}
	return nil
}

func statusFor(err error) string {
	if err != nil {
		return "error"
	}
	return "completed"
}

// openingMessage frames the run for the reasoning loops.
func openingMessage(s *core.State) string {
	return fmt.Sprintf(
		"Daily analysis for user %s.\nTrigger: %s\nDate: %s\nToday's income so far: ₹%.0f\nRun your analysis with the tools, then finish with complete_analysis.",
		s.OwnerID, s.TriggerReason, s.RunDate.Format("2006-01-02 Monday"), s.TodayIncome)
}

// ensureRequiredFields guarantees every run ends with the fields a
// caller relies on, however the strategy went: a safe-to-spend number,
// a risk verdict, an insight and an action.
func (p *Pipeline) ensureRequiredFields(s *core.State) {
	if s.SafeToSpend == 0 {
		s.SafeToSpend = specialist.SafeToSpend(s)
	}
	if s.RiskScore == 0 && s.RiskLevel == "" {
		score, factors := specialist.FallbackRisk(s)
		s.RiskScore = score
		s.RiskLevel = tools.RiskLevelForScore(score)
		s.RiskFactors = factors
	}
	if s.RiskLevel == "" {
		s.RiskLevel = tools.RiskLevelForScore(s.RiskScore)
	}
	if s.KeyInsight == "" {
		s.KeyInsight = smartInsight(s)
	}
	if s.RecommendedAction == "" {
		s.RecommendedAction = recommendedAction(s)
	}
}

// smartInsight builds a context-aware Hinglish insight when no phase
// produced one.
func smartInsight(s *core.State) string {
	if len(s.ObligationRisks) > 0 {
		risks := append([]core.ObligationRisk(nil), s.ObligationRisks...)
		sort.Slice(risks, func(i, j int) bool { return risks[i].RiskScore > risks[j].RiskScore })
		top := risks[0]
		if top.RiskLevel != "low" {
			return fmt.Sprintf("%s ke liye ₹%.0f due hai %d din mein, abhi ₹%.0f short ho - daily thoda zyada bachana hoga",
				top.Name, top.Amount, top.DaysUntilDue, top.ProjectedGap)
		}
	}
	if s.TodayIncome > 0 {
		return fmt.Sprintf("Aaj ₹%.0f kamaya - buckets mein baant diya hai, ₹%.0f aaram se kharch kar sakte ho",
			s.TodayIncome, s.SafeToSpend)
	}
	if s.RiskLevel == "high" {
		return "Is hafte obligations tight hain - kharcha control mein rakho aur extra hours socho"
	}
	return "Sab buckets theek chal rahe hain, koi urgent problem nahi dikhi"
}

func recommendedAction(s *core.State) string {
	if s.AdvanceProposal != nil {
		if eligible, ok := s.AdvanceProposal["eligible"].(bool); ok && eligible {
			if amount, ok := s.AdvanceProposal["amount"].(float64); ok {
				return fmt.Sprintf("₹%.0f ka advance available hai is week ke gap ke liye - app mein check karo", amount)
			}
		}
	}
	if s.RiskLevel == "high" {
		return "Pehle due obligations ke buckets bharo, discretionary kharcha is week roko"
	}
	if s.SafeToSpend > 0 {
		return fmt.Sprintf("₹%.0f tak aaram se kharch kar sakte ho, baaki buckets set hain", s.SafeToSpend)
	}
	return "Kal ki kamai aane par normal allocation chalne do"
}
