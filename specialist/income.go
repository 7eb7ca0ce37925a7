package specialist

import (
	"context"
	"time"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Default daily earnings used when a user has no income history yet.
// Calibrated to typical metro delivery-work payouts.
const (
	DefaultWeekdayIncome = 2000
	DefaultWeekendIncome = 3500
)

// SeasonalMultiplier adjusts expected earnings for the month. Monsoon
// suppresses delivery volume, the festive season swells it, and
// December year-end stays mildly elevated.
func SeasonalMultiplier(month time.Month) float64 {
	switch month {
	case time.June, time.July, time.August, time.September:
		return 0.85
	case time.October, time.November:
		return 1.20
	case time.December:
		return 1.10
	default:
		return 1.0
	}
}

// IncomePattern extracts weekday/weekend rhythm, platform mix and the
// recent earning trend from income history.
type IncomePattern struct{}

func (p *IncomePattern) Name() string { return IncomeAnalyzer }

func (p *IncomePattern) Run(ctx context.Context, s *core.State) error {
	byDay := make(map[string]float64)
	byWeekday := make(map[time.Weekday]float64)
	weekdayCounts := make(map[time.Weekday]int)
	byPlatform := make(map[string]float64)

	for _, ev := range s.IncomeHistory {
		key := ev.Date.Format("2006-01-02")
		byDay[key] += ev.Amount
		if ev.Platform != "" {
			byPlatform[ev.Platform] += ev.Amount
		}
	}
	for key, amount := range byDay {
		d, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		byWeekday[d.Weekday()] += amount
		weekdayCounts[d.Weekday()]++
	}

	var weekdayTotal, weekendTotal float64
	var weekdayDays, weekendDays int
	perWeekday := make(map[string]float64)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		count := weekdayCounts[wd]
		if count == 0 {
			continue
		}
		avg := byWeekday[wd] / float64(count)
		perWeekday[wd.String()] = avg
		if wd == time.Saturday || wd == time.Sunday {
			weekendTotal += byWeekday[wd]
			weekendDays += count
		} else {
			weekdayTotal += byWeekday[wd]
			weekdayDays += count
		}
	}

	weekdayAvg := DefaultWeekdayIncome * SeasonalMultiplier(s.RunDate.Month())
	weekendAvg := DefaultWeekendIncome * SeasonalMultiplier(s.RunDate.Month())
	if weekdayDays > 0 {
		weekdayAvg = weekdayTotal / float64(weekdayDays)
	}
	if weekendDays > 0 {
		weekendAvg = weekendTotal / float64(weekendDays)
	}

	s.IncomePatterns = map[string]interface{}{
		"weekday_avg":         weekdayAvg,
		"weekend_avg":         weekendAvg,
		"per_weekday":         perWeekday,
		"by_platform":         byPlatform,
		"active_days":         len(byDay),
		"trend":               p.trend(s),
		"seasonal_multiplier": SeasonalMultiplier(s.RunDate.Month()),
	}
	return nil
}

// trend compares the most recent half of the history window against
// the older half. Movement within 10 percent is noise.
func (p *IncomePattern) trend(s *core.State) string {
	mid := s.RunDate.AddDate(0, 0, -14)
	var recent, older float64
	for _, ev := range s.IncomeHistory {
		if ev.Date.Before(mid) {
			older += ev.Amount
		} else {
			recent += ev.Amount
		}
	}
	if older <= 0 {
		return "stable"
	}
	change := (recent - older) / older
	switch {
	case change > 0.10:
		return "increasing"
	case change < -0.10:
		return "decreasing"
	default:
		return "stable"
	}
}

// ExpectedDailyIncome projects earnings for a given date from the
// learned pattern, falling back to metro defaults.
func ExpectedDailyIncome(s *core.State, date time.Time) float64 {
	weekdayAvg := float64(DefaultWeekdayIncome)
	weekendAvg := float64(DefaultWeekendIncome)
	if s.IncomePatterns != nil {
		if v, ok := s.IncomePatterns["weekday_avg"].(float64); ok && v > 0 {
			weekdayAvg = v
		}
		if v, ok := s.IncomePatterns["weekend_avg"].(float64); ok && v > 0 {
			weekendAvg = v
		}
	}
	base := weekdayAvg
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		base = weekendAvg
	}
	return base * SeasonalMultiplier(date.Month())
}
