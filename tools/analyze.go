package tools

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Calculator tool handlers. Pure arithmetic over the run state; results
// feed the reasoning model and several also stash findings on the state
// for the summary.

func (e *Executor) calculateShortfall(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	daysAhead := intArg(args, "days_ahead", 7)
	horizon := s.RunDate.AddDate(0, 0, daysAhead)

	var totalDue, coveredByBuckets float64
	dueItems := make([]map[string]interface{}, 0)
	for _, o := range s.Obligations {
		due := o.DueDate(s.RunDate)
		if due.After(horizon) {
			continue
		}
		totalDue += o.Amount
		saved := s.BucketBalances[o.BucketName]
		if saved > o.Amount {
			saved = o.Amount
		}
		coveredByBuckets += saved
		dueItems = append(dueItems, map[string]interface{}{
			"name":     o.Name,
			"amount":   o.Amount,
			"due_date": due.Format("2006-01-02"),
			"saved":    s.BucketBalances[o.BucketName],
		})
	}

	expectedIncome := s.AvgDailyIncome(e.policy.FallbackDailyIncome) * float64(daysAhead)
	available := coveredByBuckets + expectedIncome
	shortfall := totalDue - available
	if shortfall < 0 {
		shortfall = 0
	}

	return map[string]interface{}{
		"window_days":        daysAhead,
		"obligations_due":    totalDue,
		"due_items":          dueItems,
		"covered_by_buckets": coveredByBuckets,
		"expected_income":    expectedIncome,
		"shortfall":          shortfall,
		"covered":            shortfall == 0,
	}
}

// analyzeSpendingPattern compares the latest window against the window
// of equal length before it. A category that jumps past the spike
// factor is an anomaly; the overall trend needs the trend factor.
func (e *Executor) analyzeSpendingPattern(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	days := intArg(args, "days", 7)
	windowStart := s.RunDate.AddDate(0, 0, -days)
	prevStart := s.RunDate.AddDate(0, 0, -2*days)

	currentByCat := make(map[string]float64)
	previousByCat := make(map[string]float64)
	var currentTotal, previousTotal float64
	for _, ev := range s.ExpenseHistory {
		cat := ev.Category
		if cat == "" {
			cat = "other"
		}
		switch {
		case !ev.Date.Before(windowStart):
			currentByCat[cat] += ev.Amount
			currentTotal += ev.Amount
		case !ev.Date.Before(prevStart):
			previousByCat[cat] += ev.Amount
			previousTotal += ev.Amount
		}
	}

	anomalies := make([]map[string]interface{}, 0)
	for cat, current := range currentByCat {
		previous := previousByCat[cat]
		if previous <= 0 {
			continue
		}
		if current > previous*e.policy.SpikeFactor {
			increasePct := (current - previous) / previous * 100
			anomalies = append(anomalies, map[string]interface{}{
				"category":     cat,
				"current":      current,
				"previous":     previous,
				"increase_pct": math.Round(increasePct),
			})
			s.UnexpectedFindings = append(s.UnexpectedFindings,
				fmt.Sprintf("%s spending up %.0f%% vs previous %d days", cat, increasePct, days))
		}
	}

	trend := "stable"
	if previousTotal > 0 {
		change := (currentTotal - previousTotal) / previousTotal
		if change > e.policy.TrendFactor {
			trend = "increasing"
		} else if change < -e.policy.TrendFactor {
			trend = "decreasing"
		}
	}

	result := map[string]interface{}{
		"window_days":    days,
		"current_total":  currentTotal,
		"previous_total": previousTotal,
		"trend":          trend,
		"anomalies":      anomalies,
		"anomaly_count":  len(anomalies),
	}
	s.SpendingPatterns = result
	return result
}

func (e *Executor) calculateGoalTrajectory(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	if len(s.Goals) == 0 {
		return errResult("No goals set for this user")
	}

	goalID := strArg(args, "goal_id", "")
	goal := s.Goals[0]
	if goalID != "" {
		found := false
		for _, g := range s.Goals {
			if g.ID == goalID {
				goal = g
				found = true
				break
			}
		}
		if !found {
			return errResult("Goal not found: " + goalID)
		}
	}

	remaining := goal.Target - goal.Saved
	if remaining < 0 {
		remaining = 0
	}
	daysRemaining := 30
	if !goal.TargetDate.IsZero() {
		daysRemaining = int(goal.TargetDate.Sub(s.RunDate).Hours() / 24)
	}
	if daysRemaining < 1 {
		daysRemaining = 1
	}
	dailyNeeded := remaining / float64(daysRemaining)
	avgDaily := s.AvgDailyIncome(e.policy.FallbackDailyIncome)
	affordable := avgDaily * e.policy.GoalIncomeShare
	onTrack := dailyNeeded < affordable

	result := map[string]interface{}{
		"goal_name":        goal.Name,
		"target":           goal.Target,
		"saved":            goal.Saved,
		"remaining":        remaining,
		"days_remaining":   daysRemaining,
		"daily_needed":     dailyNeeded,
		"daily_affordable": affordable,
		"avg_daily_income": avgDaily,
		"on_track":         onTrack,
	}
	if !onTrack && dailyNeeded > 0 {
		daysAtAffordable := int(math.Ceil(remaining / math.Max(affordable, 1)))
		result["projected_days_needed"] = daysAtAffordable
	}
	return result
}

func (e *Executor) simulateScenario(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	scenarioType := strArg(args, "scenario_type", "")
	amount := floatArg(args, "amount", 0)
	days := intArg(args, "days", 1)
	avgDaily := s.AvgDailyIncome(e.policy.FallbackDailyIncome)

	switch scenarioType {
	case "extra_income":
		weekDue := e.obligationsDueWithin(7)
		return map[string]interface{}{
			"scenario":       scenarioType,
			"amount":         amount,
			"week_due":       weekDue,
			"recommendation": fmt.Sprintf("Allocate extra ₹%.0f towards the ₹%.0f due this week first, rest to savings", amount, weekDue),
		}

	case "unexpected_expense":
		var liquid float64
		for _, b := range s.Buckets {
			if !b.IsProtected {
				liquid += s.BucketBalances[b.Name]
			}
		}
		absorbable := liquid >= amount
		result := map[string]interface{}{
			"scenario":       scenarioType,
			"amount":         amount,
			"liquid_buckets": liquid,
			"absorbable":     absorbable,
			"gap":            math.Max(0, amount-liquid),
		}
		if !absorbable {
			result["recommendation"] = "Expense exceeds unprotected buckets; consider suggest_advance for the gap"
		}
		return result

	case "skip_work":
		lost := avgDaily * float64(days)
		weekDue := e.obligationsDueWithin(7)
		weeklyAfter := s.WeeklyIncome() - lost
		return map[string]interface{}{
			"scenario":              scenarioType,
			"days_skipped":          days,
			"income_lost":           lost,
			"weekly_income_after":   weeklyAfter,
			"obligations_this_week": weekDue,
			"still_covered":         weeklyAfter >= weekDue,
		}

	case "advance_repayment":
		if amount <= 0 {
			return errResult("advance_repayment scenario requires amount > 0")
		}
		fee := amount * e.policy.AdvanceFeeRate
		total := amount + fee
		repayDate := nextWeekend(s.RunDate)
		// Income must cover repayment with a few days of slack.
		bufferDays := int(repayDate.Sub(s.RunDate).Hours()/24) + e.policy.RepayBufferDays
		expectedBefore := avgDaily * float64(bufferDays)
		return map[string]interface{}{
			"scenario":               scenarioType,
			"advance_amount":         amount,
			"fee":                    fee,
			"total_repayment":        total,
			"repayment_date":         repayDate.Format("2006-01-02"),
			"expected_income_before": expectedBefore,
			"comfortable":            expectedBefore >= total*2,
		}

	default:
		return errResult("Unknown scenario_type: " + scenarioType)
	}
}

// suggestAdvance applies the advance guardrails and, when eligible,
// records the proposal on the state.
func (e *Executor) suggestAdvance(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	needed := floatArg(args, "needed_amount", 0)
	reason := strArg(args, "reason", "cover upcoming obligation")
	if needed <= 0 {
		return errResult("needed_amount must be positive")
	}

	if s.ActiveAdvanceCount() >= e.policy.MaxActiveAdvances {
		return map[string]interface{}{
			"eligible": false,
			"reason":   "An advance is already active; repay it before taking another",
		}
	}

	weekly := s.WeeklyIncome()
	maxAllowed := weekly * e.policy.MaxAdvanceShare
	if maxAllowed > e.policy.MaxAdvance {
		maxAllowed = e.policy.MaxAdvance
	}
	amount := math.Min(needed, maxAllowed)
	amount = math.Round(amount/e.policy.AdvanceRoundTo) * e.policy.AdvanceRoundTo
	if amount < e.policy.MinAdvance {
		return map[string]interface{}{
			"eligible":      false,
			"reason":        fmt.Sprintf("Eligible amount ₹%.0f is below the ₹%.0f minimum", amount, e.policy.MinAdvance),
			"weekly_income": weekly,
		}
	}

	fee := amount * e.policy.AdvanceFeeRate
	repayDate := nextWeekend(s.RunDate)
	proposal := map[string]interface{}{
		"eligible":        true,
		"amount":          amount,
		"fee":             fee,
		"fee_pct":         e.policy.AdvanceFeeRate * 100,
		"total_repayment": amount + fee,
		"repayment_date":  repayDate.Format("2006-01-02"),
		"reason":          reason,
		"covers_needed":   amount >= needed,
		"weekly_income":   weekly,
	}
	s.AdvanceProposal = proposal
	return proposal
}

// obligationsDueWithin totals obligations due in the next n days.
func (e *Executor) obligationsDueWithin(n int) float64 {
	s := e.state
	horizon := s.RunDate.AddDate(0, 0, n)
	var total float64
	for _, o := range s.Obligations {
		if !o.DueDate(s.RunDate).After(horizon) {
			total += o.Amount
		}
	}
	return total
}

// nextWeekend returns the coming Sunday, the usual repayment day since
// weekend earnings peak for gig work.
func nextWeekend(from time.Time) time.Time {
	d := from
	for {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Sunday {
			return d
		}
	}
}
