package specialist

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// RiskScore produces the run's overall 0-100 risk verdict. With an
// oracle attached it asks for a judgment over the computed evidence;
// without one, or when the verdict is unusable, it falls back to pure
// coverage arithmetic.
type RiskScore struct {
	Oracle Oracle
}

func (r *RiskScore) Name() string { return RiskCalculator }

const riskSystemPrompt = `You assess financial risk for gig workers living on variable daily income.
Given the evidence, return JSON only: {"score": 0-100, "level": "minimal|low|medium|high", "factors": ["..."]}.
Score 0 means fully covered and stable, 100 means immediate crisis.`

func (r *RiskScore) Run(ctx context.Context, s *core.State) error {
	if r.Oracle != nil {
		var verdict struct {
			Score   float64  `json:"score"`
			Level   string   `json:"level"`
			Factors []string `json:"factors"`
		}
		prompt := r.evidence(s)
		if err := r.Oracle.CompleteJSON(ctx, riskSystemPrompt, prompt, &verdict); err == nil &&
			verdict.Score >= 0 && verdict.Score <= 100 {
			s.RiskScore = verdict.Score
			s.RiskLevel = verdict.Level
			if s.RiskLevel == "" {
				s.RiskLevel = levelForScore(verdict.Score)
			}
			s.RiskFactors = verdict.Factors
			return nil
		} else if err != nil {
			log.Printf("[RISK] Oracle verdict failed, using fallback: %v", err)
		}
	}

	score, factors := FallbackRisk(s)
	s.RiskScore = score
	s.RiskLevel = levelForScore(score)
	s.RiskFactors = factors
	return nil
}

func (r *RiskScore) evidence(s *core.State) string {
	var liquid float64
	for _, b := range s.BucketBalances {
		liquid += b
	}
	highRisk := 0
	for _, ob := range s.ObligationRisks {
		if ob.RiskLevel == "high" {
			highRisk++
		}
	}
	return fmt.Sprintf(
		"Liquid across buckets: ₹%.0f\nWeekly income: ₹%.0f\nObligations scored: %d (%d high risk)\nForecast: %s\nWarnings: %v",
		liquid, s.WeeklyIncome(), len(s.ObligationRisks), highRisk, s.ForecastSummary, s.Warnings)
}

// FallbackRisk derives the score from the coverage ratio of liquid
// balances against obligations due in the next 7 days.
func FallbackRisk(s *core.State) (float64, []string) {
	var liquid float64
	for _, b := range s.BucketBalances {
		liquid += b
	}
	horizon := s.RunDate.AddDate(0, 0, 7)
	var due float64
	for _, ob := range s.Obligations {
		if !ob.DueDate(s.RunDate).After(horizon) {
			due += ob.Amount
		}
	}

	var score float64
	var factors []string
	if due <= 0 {
		score = 10
		factors = append(factors, "No obligations due this week")
	} else {
		ratio := liquid / due
		switch {
		case ratio >= 1.5:
			score = 10
		case ratio >= 1.0:
			score = 25
		case ratio >= 0.5:
			score = 50
		default:
			score = 80
		}
		factors = append(factors, fmt.Sprintf("₹%.0f due in 7 days against ₹%.0f liquid (%.0f%% covered)",
			due, liquid, math.Min(ratio, 2)*100))
	}

	for _, ob := range s.ObligationRisks {
		if ob.RiskLevel == "high" {
			score = math.Min(100, score+10)
			factors = append(factors, ob.Name+" at high risk")
		}
	}
	return score, factors
}

func levelForScore(score float64) string {
	switch {
	case score >= 75:
		return "high"
	case score >= 50:
		return "medium"
	case score >= 25:
		return "low"
	default:
		return "minimal"
	}
}
