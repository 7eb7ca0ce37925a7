package specialist

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// MicroAdvance checks whether the next week's obligations leave a gap
// worth bridging with a small advance, and if so builds a guardrailed
// proposal.
type MicroAdvance struct {
	Policy tools.Policy
}

func (m *MicroAdvance) Name() string { return MicroAdvanceEvaluator }

func (m *MicroAdvance) Run(ctx context.Context, s *core.State) error {
	p := m.Policy
	if p.MaxAdvance == 0 {
		p = tools.DefaultPolicy()
	}

	gap := m.weekGap(s)
	if gap <= 0 {
		s.AdvanceProposal = map[string]interface{}{
			"eligible": false,
			"reason":   "No shortfall in the next 7 days",
		}
		return nil
	}

	if s.ActiveAdvanceCount() >= p.MaxActiveAdvances {
		s.AdvanceProposal = map[string]interface{}{
			"eligible": false,
			"reason":   "An advance is already active",
			"gap":      gap,
		}
		return nil
	}

	weekly := s.WeeklyIncome()
	maxAllowed := math.Min(weekly*p.MaxAdvanceShare, p.MaxAdvance)
	amount := math.Round(math.Min(gap, maxAllowed)/p.AdvanceRoundTo) * p.AdvanceRoundTo
	if amount < p.MinAdvance {
		s.AdvanceProposal = map[string]interface{}{
			"eligible": false,
			"reason":   fmt.Sprintf("Gap ₹%.0f too small for an advance (minimum ₹%.0f)", gap, p.MinAdvance),
			"gap":      gap,
		}
		return nil
	}

	fee := amount * p.AdvanceFeeRate
	repayDate := nextSunday(s.RunDate)
	s.AdvanceProposal = map[string]interface{}{
		"eligible":        true,
		"amount":          amount,
		"fee":             fee,
		"total_repayment": amount + fee,
		"repayment_date":  repayDate.Format("2006-01-02"),
		"gap":             gap,
		"covers_gap":      amount >= gap,
		"without_advance": fmt.Sprintf("₹%.0f obligation gap stays open this week", gap),
	}
	return nil
}

// weekGap is the 7-day shortfall: obligations due minus bucket cover
// and expected earnings.
func (m *MicroAdvance) weekGap(s *core.State) float64 {
	horizon := s.RunDate.AddDate(0, 0, 7)
	var due, covered float64
	for _, ob := range s.Obligations {
		d := ob.DueDate(s.RunDate)
		if d.After(horizon) {
			continue
		}
		due += ob.Amount
		covered += math.Min(s.BucketBalances[ob.BucketName], ob.Amount)
	}
	var expected float64
	for i := 1; i <= 7; i++ {
		expected += ExpectedDailyIncome(s, s.RunDate.AddDate(0, 0, i))
	}
	// Only part of income is allocatable; living costs eat the rest.
	expected -= estimateDailyExpense(s) * 7
	if expected < 0 {
		expected = 0
	}
	return due - covered - expected
}

func nextSunday(from time.Time) time.Time {
	d := from
	for {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Sunday {
			return d
		}
	}
}
