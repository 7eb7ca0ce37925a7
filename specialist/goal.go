package specialist

import (
	"context"
	"math"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// GoalScenarios projects each savings goal at the affordable saving
// rate and marks whether it lands before its target date.
type GoalScenarios struct {
	Policy tools.Policy
}

func (g *GoalScenarios) Name() string { return GoalScenarioPlanner }

func (g *GoalScenarios) Run(ctx context.Context, s *core.State) error {
	p := g.Policy
	if p.GoalIncomeShare == 0 {
		p = tools.DefaultPolicy()
	}

	avgDaily := s.AvgDailyIncome(p.FallbackDailyIncome)
	affordable := avgDaily * p.GoalIncomeShare

	s.GoalScenarios = s.GoalScenarios[:0]
	for _, goal := range s.Goals {
		remaining := math.Max(0, goal.Target-goal.Saved)
		daysRemaining := 30
		if !goal.TargetDate.IsZero() {
			daysRemaining = int(goal.TargetDate.Sub(s.RunDate).Hours() / 24)
			if daysRemaining < 1 {
				daysRemaining = 1
			}
		}
		dailyNeeded := remaining / float64(daysRemaining)
		onTrack := dailyNeeded < affordable

		scenario := map[string]interface{}{
			"goal_id":        goal.ID,
			"goal_name":      goal.Name,
			"target":         goal.Target,
			"saved":          goal.Saved,
			"remaining":      remaining,
			"days_remaining": daysRemaining,
			"daily_needed":   dailyNeeded,
			"on_track":       onTrack,
		}
		if remaining > 0 && affordable > 0 {
			daysAtAffordable := int(math.Ceil(remaining / affordable))
			scenario["projected_completion"] = s.RunDate.AddDate(0, 0, daysAtAffordable).Format("2006-01-02")
			scenario["projected_days"] = daysAtAffordable
		}
		s.GoalScenarios = append(s.GoalScenarios, scenario)

		if !onTrack && !goal.TargetDate.IsZero() && goal.TargetDate.Sub(s.RunDate) < 60*24*time.Hour {
			s.Warnings = append(s.Warnings, goal.Name+" goal is behind schedule")
		}
	}
	return nil
}
