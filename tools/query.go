package tools

import (
	"context"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Read-only tool handlers. These report from the run state snapshot and
// never mutate it, so the reasoning model can call them in any order.

func (e *Executor) getBucketBalances(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	var total float64
	buckets := make([]map[string]interface{}, 0, len(s.Buckets))
	for _, b := range s.Buckets {
		balance := s.BucketBalances[b.Name]
		total += balance
		buckets = append(buckets, map[string]interface{}{
			"name":         b.Name,
			"kind":         b.Kind,
			"balance":      balance,
			"target":       b.Target,
			"is_protected": b.IsProtected,
		})
	}
	// Balances without a declared bucket still count.
	for name, balance := range s.BucketBalances {
		if !hasBucket(s.Buckets, name) {
			total += balance
			buckets = append(buckets, map[string]interface{}{
				"name":    name,
				"balance": balance,
			})
		}
	}
	return map[string]interface{}{
		"buckets": buckets,
		"total":   total,
	}
}

func hasBucket(buckets []core.Bucket, name string) bool {
	for _, b := range buckets {
		if b.Name == name {
			return true
		}
	}
	return false
}

func (e *Executor) getUpcomingObligations(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	daysAhead := intArg(args, "days_ahead", 14)
	horizon := s.RunDate.AddDate(0, 0, daysAhead)

	var totalDue float64
	upcoming := make([]map[string]interface{}, 0)
	for _, o := range s.Obligations {
		due := o.DueDate(s.RunDate)
		if due.After(horizon) {
			continue
		}
		daysUntil := int(due.Sub(s.RunDate).Hours() / 24)
		totalDue += o.Amount
		upcoming = append(upcoming, map[string]interface{}{
			"id":              o.ID,
			"name":            o.Name,
			"amount":          o.Amount,
			"due_date":        due.Format("2006-01-02"),
			"days_until_due":  daysUntil,
			"bucket":          o.BucketName,
			"is_flexible":     o.IsFlexible,
			"saved_in_bucket": s.BucketBalances[o.BucketName],
		})
	}
	return map[string]interface{}{
		"obligations": upcoming,
		"count":       len(upcoming),
		"total_due":   totalDue,
		"window_days": daysAhead,
	}
}

func (e *Executor) getIncomeHistory(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	days := intArg(args, "days", 30)
	cutoff := s.RunDate.AddDate(0, 0, -days)

	var total float64
	byPlatform := make(map[string]float64)
	activeDays := make(map[string]bool)
	count := 0
	for _, ev := range s.IncomeHistory {
		if ev.Date.Before(cutoff) {
			continue
		}
		count++
		total += ev.Amount
		if ev.Platform != "" {
			byPlatform[ev.Platform] += ev.Amount
		}
		activeDays[ev.Date.Format("2006-01-02")] = true
	}
	dailyAvg := 0.0
	if len(activeDays) > 0 {
		dailyAvg = total / float64(len(activeDays))
	}
	return map[string]interface{}{
		"events":        count,
		"total":         total,
		"daily_average": dailyAvg,
		"active_days":   len(activeDays),
		"by_platform":   byPlatform,
		"today":         s.TodayIncome,
		"window_days":   days,
	}
}

func (e *Executor) getExpenseHistory(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	days := intArg(args, "days", 30)
	cutoff := s.RunDate.AddDate(0, 0, -days)

	var total float64
	byCategory := make(map[string]float64)
	count := 0
	for _, ev := range s.ExpenseHistory {
		if ev.Date.Before(cutoff) {
			continue
		}
		count++
		total += ev.Amount
		cat := ev.Category
		if cat == "" {
			cat = "other"
		}
		byCategory[cat] += ev.Amount
	}
	return map[string]interface{}{
		"events":        count,
		"total":         total,
		"daily_average": total / float64(days),
		"by_category":   byCategory,
		"window_days":   days,
	}
}

func (e *Executor) getGoalsProgress(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	goals := make([]map[string]interface{}, 0, len(s.Goals))
	for _, g := range s.Goals {
		pct := 0.0
		if g.Target > 0 {
			pct = g.Saved / g.Target * 100
		}
		entry := map[string]interface{}{
			"id":               g.ID,
			"name":             g.Name,
			"target":           g.Target,
			"saved":            g.Saved,
			"percent_complete": pct,
		}
		if !g.TargetDate.IsZero() {
			entry["target_date"] = g.TargetDate.Format("2006-01-02")
			entry["days_remaining"] = int(g.TargetDate.Sub(s.RunDate).Hours() / 24)
		}
		goals = append(goals, entry)
	}
	return map[string]interface{}{
		"goals": goals,
		"count": len(goals),
	}
}

// getPastDecisions reads the ledger when one is attached; without one,
// or when the ledger fails, it falls back to this run's own decisions
// and says so via memory_active.
func (e *Executor) getPastDecisions(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	days := intArg(args, "days", 14)
	decisionType := strArg(args, "decision_type", "")
	since := s.RunDate.AddDate(0, 0, -days)

	if e.ledger != nil {
		decisions, err := e.ledger.Recent(ctx, s.OwnerID, since, decisionType, 20)
		if err == nil {
			out := make([]map[string]interface{}, 0, len(decisions))
			for _, d := range decisions {
				out = append(out, map[string]interface{}{
					"decision_type": d.DecisionType,
					"reasoning":     d.Reasoning,
					"output":        d.Output,
					"created_at":    d.CreatedAt.Format(time.RFC3339),
				})
			}
			return map[string]interface{}{
				"decisions":     out,
				"count":         len(out),
				"memory_active": true,
			}
		}
		// Fall through to session memory on ledger failure.
	}

	out := make([]map[string]interface{}, 0, len(s.DecisionsMade))
	for _, d := range s.DecisionsMade {
		if decisionType != "" && d.DecisionType != decisionType {
			continue
		}
		out = append(out, map[string]interface{}{
			"decision_type": d.DecisionType,
			"reasoning":     d.Reasoning,
			"output":        d.Output,
		})
	}
	return map[string]interface{}{
		"decisions":     out,
		"count":         len(out),
		"memory_active": false,
	}
}
