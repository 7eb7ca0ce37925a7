package specialist

import (
	"context"
	"fmt"
	"log"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// ExpenseAnalysis summarizes spending by category and flags the recent
// trend. With an oracle attached it adds a one-line qualitative read.
type ExpenseAnalysis struct {
	Oracle Oracle
}

func (e *ExpenseAnalysis) Name() string { return ExpenseAnalyzer }

const expenseSystemPrompt = `You review a gig worker's spending summary.
Return JSON only: {"observation": "one short sentence in simple Hinglish about the most notable spending pattern"}.`

func (e *ExpenseAnalysis) Run(ctx context.Context, s *core.State) error {
	recentStart := s.RunDate.AddDate(0, 0, -7)
	prevStart := s.RunDate.AddDate(0, 0, -14)

	byCategory := make(map[string]float64)
	var recent, previous, total float64
	for _, ev := range s.ExpenseHistory {
		cat := ev.Category
		if cat == "" {
			cat = "other"
		}
		byCategory[cat] += ev.Amount
		total += ev.Amount
		switch {
		case !ev.Date.Before(recentStart):
			recent += ev.Amount
		case !ev.Date.Before(prevStart):
			previous += ev.Amount
		}
	}

	topCategory := ""
	var topAmount float64
	for cat, amount := range byCategory {
		if amount > topAmount {
			topCategory, topAmount = cat, amount
		}
	}

	trend := "stable"
	if previous > 0 {
		change := (recent - previous) / previous
		if change > 0.10 {
			trend = "increasing"
		} else if change < -0.10 {
			trend = "decreasing"
		}
	}

	analysis := map[string]interface{}{
		"total_30d":     total,
		"by_category":   byCategory,
		"top_category":  topCategory,
		"top_amount":    topAmount,
		"week_total":    recent,
		"prev_week":     previous,
		"trend":         trend,
		"daily_average": total / 30,
	}

	if e.Oracle != nil {
		var obs struct {
			Observation string `json:"observation"`
		}
		prompt := "Spending last 30 days by category:"
		for cat, amount := range byCategory {
			prompt += fmt.Sprintf(" %s ₹%.0f,", cat, amount)
		}
		if err := e.Oracle.CompleteJSON(ctx, expenseSystemPrompt, prompt, &obs); err == nil && obs.Observation != "" {
			analysis["observation"] = obs.Observation
		} else if err != nil {
			log.Printf("[EXPENSE] Oracle observation failed, continuing without: %v", err)
		}
	}

	s.ExpenseAnalysis = analysis
	return nil
}
