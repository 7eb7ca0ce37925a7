package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/specialist"
)

// BaselineAgents is the specialist set used when the router's verdict
// is unusable. Broad enough to be safe for any trigger.
var BaselineAgents = []string{
	specialist.IncomeAnalyzer,
	specialist.ExpenseAnalyzer,
	specialist.ObligationRiskAnalyzer,
	specialist.BucketAllocator,
	specialist.RiskCalculator,
}

// Router asks the oracle once which specialists a run needs, then
// executes them in order. One specialist failing does not stop the
// rest; the activity log records who ran and how it went.
type Router struct {
	oracle   Oracle
	registry *specialist.Registry
}

// NewRouter builds a router over a specialist registry. The oracle may
// be nil; routing then always uses the baseline set.
func NewRouter(oracle Oracle, registry *specialist.Registry) *Router {
	return &Router{oracle: oracle, registry: registry}
}

// Route produces a validated routing decision for the run.
func (r *Router) Route(ctx context.Context, s *core.State) *core.RoutingDecision {
	if r.oracle == nil {
		return fallbackRouting("no oracle configured")
	}

	var verdict core.RoutingDecision
	if err := r.oracle.CompleteJSON(ctx, RouterSystemPrompt, routerContext(s), &verdict); err != nil {
		log.Printf("[ROUTER] Oracle routing failed, using baseline: %v", err)
		return fallbackRouting("oracle routing failed")
	}

	// Keep only names we can actually run.
	valid := verdict.AgentsToRun[:0]
	for _, name := range verdict.AgentsToRun {
		if _, ok := r.registry.Get(name); ok {
			valid = append(valid, name)
		} else {
			log.Printf("[ROUTER] Dropping unknown specialist %q from verdict", name)
		}
	}
	verdict.AgentsToRun = valid

	if len(verdict.AgentsToRun) == 0 {
		return fallbackRouting("verdict named no runnable specialists")
	}
	switch verdict.Urgency {
	case "low", "medium", "high", "critical":
	default:
		verdict.Urgency = "medium"
	}
	return &verdict
}

// Run routes and executes. Specialists run sequentially in verdict
// order; each failure is logged as an error entry and the run goes on.
func (r *Router) Run(ctx context.Context, s *core.State) error {
	decision := r.Route(ctx, s)
	s.Routing = decision
	log.Printf("[ROUTER] Running %d specialists (urgency=%s, fallback=%v)",
		len(decision.AgentsToRun), decision.Urgency, decision.Fallback)

	for _, name := range decision.AgentsToRun {
		sp, ok := r.registry.Get(name)
		if !ok {
			continue
		}
		start := time.Now()
		err := sp.Run(ctx, s)
		entry := core.ActivityEntry{
			Agent:      name,
			Status:     "completed",
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			entry.Status = "error"
			entry.Detail = err.Error()
			log.Printf("[ROUTER] Specialist %s failed: %v", name, err)
		}
		s.Activity = append(s.Activity, entry)
	}
	return nil
}

// routerContext summarizes the state for the routing verdict, calling
// out anything already pressing.
func routerContext(s *core.State) string {
	var liquid float64
	for _, b := range s.BucketBalances {
		liquid += b
	}

	horizon := s.RunDate.AddDate(0, 0, 7)
	var dueSoon float64
	urgent := ""
	for _, ob := range s.Obligations {
		due := ob.DueDate(s.RunDate)
		if due.After(horizon) {
			continue
		}
		dueSoon += ob.Amount
		saved := s.BucketBalances[ob.BucketName]
		if saved < ob.Amount {
			urgent += fmt.Sprintf("- %s: ₹%.0f due %s, only ₹%.0f saved\n",
				ob.Name, ob.Amount, due.Format("Jan 2"), saved)
		}
	}

	ctx := fmt.Sprintf(
		"Trigger: %s\nDate: %s\nToday's income: ₹%.0f\nWeekly income: ₹%.0f\nLiquid across buckets: ₹%.0f\nDue within 7 days: ₹%.0f\nGoals: %d, active advances: %d\n",
		s.TriggerReason, s.RunDate.Format("2006-01-02 Monday"), s.TodayIncome,
		s.WeeklyIncome(), liquid, dueSoon, len(s.Goals), s.ActiveAdvanceCount())
	if urgent != "" {
		ctx += "Underfunded obligations:\n" + urgent
	}
	return ctx
}

func fallbackRouting(reason string) *core.RoutingDecision {
	return &core.RoutingDecision{
		Reasoning:   "Baseline set: " + reason,
		Urgency:     "medium",
		AgentsToRun: append([]string(nil), BaselineAgents...),
		Fallback:    true,
	}
}
