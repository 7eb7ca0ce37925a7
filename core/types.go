package core

import "time"

// Bucket is a named envelope of money with an optional target.
// Protected buckets (rent, EMI) are never raided by discretionary spend.
type Bucket struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"` // "fixed_obligation", "goal", "buffer", "flex"
	Balance     float64 `json:"balance"`
	Target      float64 `json:"target,omitempty"`
	Priority    int     `json:"priority,omitempty"`
	IsProtected bool    `json:"is_protected,omitempty"`
}

// IncomeEvent is one payout credited to the worker.
type IncomeEvent struct {
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Platform string    `json:"platform,omitempty"` // "swiggy", "zomato", "uber", "rapido", ...
}

// ExpenseEvent is one debit.
type ExpenseEvent struct {
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category,omitempty"`
}

// Obligation is a recurring commitment due on a fixed day of month.
type Obligation struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	DueDay     int     `json:"due_day"` // day of month, 1-31
	BucketName string  `json:"bucket_name,omitempty"`
	IsFlexible bool    `json:"is_flexible,omitempty"`
}

// DueDate resolves the obligation's next due date on or after the given day.
// A DueDay past the end of the month clamps to the month's last day.
func (o Obligation) DueDate(from time.Time) time.Time {
	due := clampDay(from.Year(), from.Month(), o.DueDay)
	if due.Before(from.Truncate(24 * time.Hour)) {
		next := from.AddDate(0, 1, 0)
		due = clampDay(next.Year(), next.Month(), o.DueDay)
	}
	return due
}

func clampDay(year int, month time.Month, day int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Goal is a savings target with an optional deadline.
type Goal struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Target     float64   `json:"target"`
	Saved      float64   `json:"saved"`
	TargetDate time.Time `json:"target_date,omitempty"`
}

// Advance is a micro-advance against future earnings.
type Advance struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Fee       float64   `json:"fee"`
	Status    string    `json:"status"` // "active", "repaid", "proposed"
	DueDate   time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Alert is an actionable notification produced during a run.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"` // "info", "warning", "urgent"
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is user-facing text queued for delivery.
type Message struct {
	Type      string    `json:"type"` // "info", "warning", "action_needed", "alert"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision is one recorded choice the agent made, persisted to the
// decision ledger so later runs can learn from it.
type Decision struct {
	ID           string                 `json:"id"`
	OwnerID      string                 `json:"owner_id"`
	RunID        string                 `json:"run_id,omitempty"`
	DecisionType string                 `json:"decision_type"`
	InputSummary map[string]interface{} `json:"input_summary,omitempty"`
	Output       map[string]interface{} `json:"output,omitempty"`
	Reasoning    string                 `json:"reasoning,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Allocation is one income split into a bucket.
type Allocation struct {
	Bucket string  `json:"bucket"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
}

// ToolCall is one entry in the run's tool call log.
type ToolCall struct {
	Sequence int                    `json:"sequence"`
	Tool     string                 `json:"tool"`
	Input    map[string]interface{} `json:"input,omitempty"`
	At       time.Time              `json:"at"`
}

// ForecastDay is one row of the 30-day cashflow projection.
type ForecastDay struct {
	Date             time.Time `json:"date"`
	ExpectedIncome   float64   `json:"expected_income"`
	ExpectedExpenses float64   `json:"expected_expenses"`
	ObligationsDue   float64   `json:"obligations_due"`
	RunningBalance   float64   `json:"running_balance"`
	Status           string    `json:"status"` // "safe", "tight", "shortfall"
}

// ObligationRisk is the scored readiness of one obligation.
type ObligationRisk struct {
	ObligationID  string    `json:"obligation_id"`
	Name          string    `json:"name"`
	Amount        float64   `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	DaysUntilDue  int       `json:"days_until_due"`
	CurrentSaved  float64   `json:"current_saved"`
	ProjectedGap  float64   `json:"projected_gap"`
	CoverageRatio float64   `json:"coverage_ratio"`
	RiskScore     float64   `json:"risk_score"`
	RiskLevel     string    `json:"risk_level"` // "low", "medium", "high"
}
