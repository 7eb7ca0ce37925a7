// Package specialist holds the deterministic analyzers that routed and
// fast modes run instead of an open-ended reasoning loop. Each
// specialist reads the run state, computes its slice of the analysis,
// and writes results back onto the state.
package specialist

import (
	"context"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// Specialist is one focused analyzer. Run mutates the state in place;
// an error marks the specialist as failed without aborting the run.
type Specialist interface {
	Name() string
	Run(ctx context.Context, s *core.State) error
}

// Oracle is the narrow slice of the reasoning oracle some specialists
// use for qualitative judgment. Specialists must degrade to
// deterministic output when it is nil or failing.
type Oracle interface {
	CompleteJSON(ctx context.Context, system, prompt string, out interface{}) error
}

// Canonical specialist names, as the router addresses them.
const (
	IncomeAnalyzer         = "INCOME_ANALYZER"
	ExpenseAnalyzer        = "EXPENSE_ANALYZER"
	ObligationRiskAnalyzer = "OBLIGATION_RISK_ANALYZER"
	BucketAllocator        = "BUCKET_ALLOCATOR"
	CashflowPlanner        = "CASHFLOW_PLANNER"
	MicroAdvanceEvaluator  = "MICRO_ADVANCE_EVALUATOR"
	RiskCalculator         = "RISK_CALCULATOR"
	GoalScenarioPlanner    = "GOAL_SCENARIO_PLANNER"
)

// Registry maps specialist names to instances.
type Registry struct {
	specialists map[string]Specialist
	order       []string
}

// NewRegistry builds the standard specialist set. The oracle may be
// nil; oracle-backed specialists then always use their fallbacks.
func NewRegistry(oracle Oracle, policy tools.Policy) *Registry {
	r := &Registry{specialists: make(map[string]Specialist)}
	for _, sp := range []Specialist{
		&IncomePattern{},
		&ExpenseAnalysis{Oracle: oracle},
		&ObligationRisk{},
		&BucketAllocation{},
		&CashflowForecast{},
		&MicroAdvance{Policy: policy},
		&RiskScore{Oracle: oracle},
		&GoalScenarios{Policy: policy},
	} {
		r.Register(sp)
	}
	return r
}

// Register adds a specialist, replacing any with the same name.
func (r *Registry) Register(sp Specialist) {
	if _, exists := r.specialists[sp.Name()]; !exists {
		r.order = append(r.order, sp.Name())
	}
	r.specialists[sp.Name()] = sp
}

// Get returns a specialist by name.
func (r *Registry) Get(name string) (Specialist, bool) {
	sp, ok := r.specialists[name]
	return sp, ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
