package core

// Plan is the structured analysis plan produced before any tools run.
type Plan struct {
	Situation string     `json:"situation_summary"`
	Steps     []PlanStep `json:"steps"`
	Revised   int        `json:"revised,omitempty"` // times the plan was revised mid-run
}

// PlanStep is one intended action in a plan.
type PlanStep struct {
	Number   int    `json:"step"`
	Action   string `json:"action"`
	Tool     string `json:"tool,omitempty"`
	Expected string `json:"expected_outcome,omitempty"`
}

// Reflection is the assessment of one tool result.
type Reflection struct {
	Tool         string  `json:"tool"`
	Success      bool    `json:"success"`
	MatchesPlan  bool    `json:"matches_expectation"`
	Anomaly      bool    `json:"anomaly"`
	AnomalyNote  string  `json:"anomaly_note,omitempty"`
	Confidence   float64 `json:"confidence"`
	NextStepHint string  `json:"next_step_hint,omitempty"`
}

// AdvisorOpinion is one persona's position in the debate phase.
type AdvisorOpinion struct {
	Advisor        string  `json:"advisor"` // "conservative", "growth", "practical"
	Stance         string  `json:"stance"`
	Concerns       string  `json:"concerns,omitempty"`
	AgreementLevel float64 `json:"agreement_level"` // 0-100 vs the draft recommendation
}

// DebateResult is the synthesized outcome of the advisor debate.
type DebateResult struct {
	Opinions            []AdvisorOpinion `json:"opinions"`
	FinalRecommendation string           `json:"final_recommendation"`
	Confidence          float64          `json:"confidence"`
	Dissent             string           `json:"dissent,omitempty"`
}

// RoutingDecision is the router's single oracle verdict on which
// specialists to run and why.
type RoutingDecision struct {
	Reasoning    string   `json:"reasoning"`
	Urgency      string   `json:"urgency"` // "low", "medium", "high", "critical"
	AgentsToRun  []string `json:"agents_to_run"`
	FocusMessage string   `json:"focus_message,omitempty"`
	Fallback     bool     `json:"fallback,omitempty"` // true when the oracle verdict was unusable
}

// ActivityEntry records one phase or specialist execution for the run log.
type ActivityEntry struct {
	Agent      string `json:"agent"`
	Status     string `json:"status"` // "completed", "error", "skipped"
	DurationMs int64  `json:"duration_ms,omitempty"`
	Detail     string `json:"detail,omitempty"`
}
