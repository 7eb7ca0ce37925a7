package specialist

import (
	"context"
	"fmt"
	"math"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// ObligationRisk scores how ready each upcoming obligation is.
//
// Coverage projects the bucket balance forward at the linear allocation
// rate (amount/30 per day), then maps coverage to a base score and
// multiplies by an urgency factor when the due date is close.
type ObligationRisk struct{}

func (o *ObligationRisk) Name() string { return ObligationRiskAnalyzer }

func (o *ObligationRisk) Run(ctx context.Context, s *core.State) error {
	s.ObligationRisks = s.ObligationRisks[:0]
	s.RedFlagDays = s.RedFlagDays[:0]

	for _, ob := range s.Obligations {
		due := ob.DueDate(s.RunDate)
		daysUntil := int(due.Sub(s.RunDate).Hours() / 24)
		saved := s.BucketBalances[ob.BucketName]

		// Daily drip the allocator aims for over a month.
		dailyAllocation := ob.Amount / 30
		projected := saved + dailyAllocation*float64(daysUntil)

		coverage := 1.0
		if ob.Amount > 0 {
			coverage = projected / ob.Amount
		}

		score := baseRiskScore(coverage) * urgencyFactor(daysUntil)
		score = math.Min(100, score)

		risk := core.ObligationRisk{
			ObligationID:  ob.ID,
			Name:          ob.Name,
			Amount:        ob.Amount,
			DueDate:       due,
			DaysUntilDue:  daysUntil,
			CurrentSaved:  saved,
			ProjectedGap:  math.Max(0, ob.Amount-projected),
			CoverageRatio: coverage,
			RiskScore:     score,
			RiskLevel:     obligationRiskLevel(score),
		}
		s.ObligationRisks = append(s.ObligationRisks, risk)

		if risk.RiskLevel == "high" {
			s.RedFlagDays = append(s.RedFlagDays, due)
			s.Warnings = append(s.Warnings,
				fmt.Sprintf("%s: ₹%.0f due in %d days, projected gap ₹%.0f",
					ob.Name, ob.Amount, daysUntil, risk.ProjectedGap))
		}
	}
	return nil
}

func baseRiskScore(coverage float64) float64 {
	switch {
	case coverage >= 1.0:
		return 0
	case coverage >= 0.8:
		return 30
	case coverage >= 0.5:
		return 60
	default:
		return 90
	}
}

func urgencyFactor(daysUntil int) float64 {
	switch {
	case daysUntil <= 3:
		return 1.3
	case daysUntil <= 7:
		return 1.1
	default:
		return 1.0
	}
}

func obligationRiskLevel(score float64) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}
