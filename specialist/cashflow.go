package specialist

import (
	"context"
	"fmt"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// CashflowForecast projects the next 30 days of balance movement:
// pattern-based income in, estimated expenses out, obligations on their
// due dates.
type CashflowForecast struct{}

func (c *CashflowForecast) Name() string { return CashflowPlanner }

func (c *CashflowForecast) Run(ctx context.Context, s *core.State) error {
	var balance float64
	for _, b := range s.BucketBalances {
		balance += b
	}

	dailyExpense := estimateDailyExpense(s)

	// Obligations land on their resolved due date.
	dueByDay := make(map[string]float64)
	for _, ob := range s.Obligations {
		due := ob.DueDate(s.RunDate)
		dueByDay[due.Format("2006-01-02")] += ob.Amount
	}

	s.Forecast = s.Forecast[:0]
	shortfallDays, tightDays := 0, 0
	for i := 1; i <= 30; i++ {
		day := s.RunDate.AddDate(0, 0, i)
		income := ExpectedDailyIncome(s, day)
		obligationsDue := dueByDay[day.Format("2006-01-02")]
		balance += income - dailyExpense - obligationsDue

		status := "safe"
		switch {
		case balance < 0:
			status = "shortfall"
			shortfallDays++
		case balance < dailyExpense*3:
			status = "tight"
			tightDays++
		}

		s.Forecast = append(s.Forecast, core.ForecastDay{
			Date:             day,
			ExpectedIncome:   income,
			ExpectedExpenses: dailyExpense,
			ObligationsDue:   obligationsDue,
			RunningBalance:   balance,
			Status:           status,
		})
	}

	switch {
	case shortfallDays > 0:
		s.ForecastSummary = fmt.Sprintf("Agle 30 din mein %d din shortfall dikh raha hai - planning zaroori hai", shortfallDays)
	case tightDays > 0:
		s.ForecastSummary = fmt.Sprintf("Cashflow theek hai par %d din tight rahenge", tightDays)
	default:
		s.ForecastSummary = "Agle 30 din ka cashflow comfortable lag raha hai"
	}
	return nil
}

// estimateDailyExpense averages the expense history, with a floor so an
// empty history still produces a sane forecast.
func estimateDailyExpense(s *core.State) float64 {
	var total float64
	for _, ev := range s.ExpenseHistory {
		total += ev.Amount
	}
	if total <= 0 {
		return 800
	}
	return total / 30
}
