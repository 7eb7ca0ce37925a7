package tools

// Definition describes one tool exposed to the reasoning model.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}

	// Mutates marks tools that change state (allocations, alerts,
	// risk scores). Read tools never mutate.
	Mutates bool
}

// Catalogue returns the definitions for the full financial tool set.
// Tool names and argument shapes are the contract with the reasoning
// model; changing them silently degrades every prompt that mentions them.
func Catalogue() []Definition {
	return []Definition{
		// Read operations
		{
			Name:        "get_bucket_balances",
			Description: "Get current balances of all money buckets (rent, EMI, fuel, savings, discretionary etc.) with targets and protection flags.",
			InputSchema: ObjectSchema(map[string]interface{}{}),
		},
		{
			Name:        "get_upcoming_obligations",
			Description: "Get obligations due within the next N days, with amounts, due dates and the bucket that covers each.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"days_ahead": IntegerProperty("Lookahead window in days (default: 14)"),
			}),
		},
		{
			Name:        "get_income_history",
			Description: "Get income events for the last N days, with per-platform totals and the daily average.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"days": IntegerProperty("Number of days of history (default: 30)"),
			}),
		},
		{
			Name:        "get_expense_history",
			Description: "Get expense events for the last N days with per-category totals.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"days": IntegerProperty("Number of days of history (default: 30)"),
			}),
		},
		{
			Name:        "get_goals_progress",
			Description: "Get savings goals with saved amount, target, percent complete and days remaining.",
			InputSchema: ObjectSchema(map[string]interface{}{}),
		},
		{
			Name:        "get_past_decisions",
			Description: "Get this user's past agent decisions so today's analysis can stay consistent with them. Optionally filter by decision type.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"decision_type": StringProperty("Optional: filter by decision type (e.g. 'allocation', 'advance', 'risk_assessment')"),
				"days":          IntegerProperty("How far back to look in days (default: 14)"),
			}),
		},

		// Calculators
		{
			Name:        "calculate_shortfall",
			Description: "Project whether expected income covers obligations due in the window, and the gap if not.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"days_ahead": IntegerProperty("Projection window in days (default: 7)"),
			}),
		},
		{
			Name:        "analyze_spending_pattern",
			Description: "Compare recent spending against the preceding window of equal length. Flags an anomaly when a category jumps more than 50 percent.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"days": IntegerProperty("Window length in days (default: 7)"),
			}),
		},
		{
			Name:        "calculate_goal_trajectory",
			Description: "Check whether a savings goal is achievable at the current earning rate, and the daily amount needed.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"goal_id": StringProperty("Goal to evaluate; defaults to the first goal when omitted"),
			}),
		},
		{
			Name:        "simulate_scenario",
			Description: "Run a what-if simulation: extra_income, unexpected_expense, skip_work, or advance_repayment.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"scenario_type": StringEnumProperty("Kind of scenario to simulate",
					"extra_income", "unexpected_expense", "skip_work", "advance_repayment"),
				"amount": NumberProperty("Amount in rupees (extra income, expense, or advance size)"),
				"days":   IntegerProperty("Days parameter, e.g. days of work skipped (default: 1)"),
			}, "scenario_type"),
		},
		{
			Name:        "suggest_advance",
			Description: "Evaluate whether a micro-advance is appropriate for an upcoming gap, applying eligibility guardrails and fee math.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"needed_amount": NumberProperty("Gap amount the advance should cover"),
				"reason":        StringProperty("Why the advance is needed"),
			}, "needed_amount"),
		},

		// Write operations
		{
			Name:        "allocate_to_bucket",
			Description: "Move an amount of today's unallocated income into a bucket. Records the allocation decision.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"bucket_name": StringProperty("Target bucket name (e.g. 'rent', 'fuel', 'savings')"),
				"amount":      NumberProperty("Amount in rupees to allocate"),
				"reason":      StringProperty("Why this allocation makes sense today"),
			}, "bucket_name", "amount"),
		},
		{
			Name:        "update_bucket_balance_persistent",
			Description: "Adjust a bucket balance and persist the change durably, not just for this run.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"bucket_name": StringProperty("Bucket to adjust"),
				"delta":       NumberProperty("Signed change in rupees"),
				"reason":      StringProperty("Why the balance is changing"),
			}, "bucket_name", "delta"),
		},
		{
			Name:        "save_decision",
			Description: "Record a decision to the ledger so future runs stay consistent with it.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"decision_type": StringProperty("Kind of decision (e.g. 'allocation', 'advance', 'risk_assessment')"),
				"summary":       StringProperty("Short summary of what was decided"),
				"reasoning":     StringProperty("Why it was decided"),
				"data":          ObjectProperty("Optional structured payload for the decision"),
			}, "decision_type", "summary"),
		},
		{
			Name:        "create_alert",
			Description: "Create an alert for the user. Urgent and warning alerts are also delivered as messages.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"alert_type": StringProperty("Category of alert (e.g. 'shortfall_risk', 'spending_spike')"),
				"severity":   StringEnumProperty("Alert severity", "info", "warning", "urgent"),
				"title":      StringProperty("Short alert title"),
				"body":       StringProperty("Alert body text"),
			}, "alert_type", "severity", "title"),
		},
		{
			Name:        "send_message_to_user",
			Description: "Queue a message for the user in simple Hinglish. Keep it specific and actionable.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"message":      StringProperty("The message text"),
				"message_type": StringEnumProperty("Message kind", "info", "warning", "action_needed"),
			}, "message"),
		},
		{
			Name:        "set_risk_score",
			Description: "Set the overall risk score for this run, 0 (safe) to 100 (critical), with contributing factors.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"score":   NumberProperty("Risk score 0-100"),
				"level":   StringEnumProperty("Risk level", "minimal", "low", "medium", "high"),
				"factors": ArrayProperty("Factors that drove the score", StringProperty("One factor")),
			}, "score"),
		},

		// Completion
		{
			Name:        "complete_analysis",
			Description: "Finish the analysis. Only call after investigating with other tools. Requires a substantive key insight and a recommended action.",
			Mutates:     true,
			InputSchema: ObjectSchema(map[string]interface{}{
				"key_insight":        StringProperty("The single most important finding, specific to this user's numbers"),
				"recommended_action": StringProperty("What the user should do next"),
				"confidence":         NumberProperty("Confidence in the analysis 0-1"),
			}, "key_insight", "recommended_action"),
		},
	}
}

// DefinitionByName returns the definition for a tool name.
func DefinitionByName(name string) (Definition, bool) {
	for _, def := range Catalogue() {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
