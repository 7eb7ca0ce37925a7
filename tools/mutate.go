package tools

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Mutating tool handlers. Read-your-writes holds within a run: a
// balance changed here is visible to every later tool call on the same
// executor.

func (e *Executor) allocateToBucket(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	bucket := strArg(args, "bucket_name", "")
	amount := floatArg(args, "amount", 0)
	reason := strArg(args, "reason", "")

	if bucket == "" {
		return errResult("bucket_name is required")
	}
	if amount <= 0 {
		return errResult("amount must be positive")
	}

	newBalance := s.AdjustBucket(bucket, amount)
	alloc := core.Allocation{Bucket: bucket, Amount: amount, Reason: reason}
	s.AllocationPlan = append(s.AllocationPlan, alloc)
	s.AllocationsMade = append(s.AllocationsMade, alloc)
	s.DecisionsMade = append(s.DecisionsMade, core.Decision{
		ID:           uuid.New().String(),
		OwnerID:      s.OwnerID,
		RunID:        s.RunID,
		DecisionType: "allocation",
		Output:       map[string]interface{}{"bucket": bucket, "amount": amount},
		Reasoning:    reason,
		CreatedAt:    time.Now().UTC(),
	})

	return map[string]interface{}{
		"success":     true,
		"bucket":      bucket,
		"amount":      amount,
		"new_balance": newBalance,
	}
}

// updateBucketBalancePersistent changes the in-memory balance first so
// the run stays internally consistent, then attempts the durable write.
// A persistence failure degrades, not aborts: the result carries
// persisted_to_db=false and the run continues on session state.
func (e *Executor) updateBucketBalancePersistent(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	bucket := strArg(args, "bucket_name", "")
	delta := floatArg(args, "delta", 0)

	if bucket == "" {
		return errResult("bucket_name is required")
	}
	if delta == 0 {
		return errResult("delta must be non-zero")
	}

	newBalance := s.AdjustBucket(bucket, delta)

	persisted := false
	if e.buckets != nil {
		if err := e.buckets.AddToBucket(ctx, s.OwnerID, bucket, delta); err != nil {
			log.Printf("[TOOLS] Persist bucket %s failed: %v", bucket, err)
		} else {
			persisted = true
		}
	}

	return map[string]interface{}{
		"success":         true,
		"bucket":          bucket,
		"delta":           delta,
		"new_balance":     newBalance,
		"persisted_to_db": persisted,
	}
}

func (e *Executor) saveDecision(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	decisionType := strArg(args, "decision_type", "")
	summary := strArg(args, "summary", "")
	if decisionType == "" || summary == "" {
		return errResult("decision_type and summary are required")
	}

	d := core.Decision{
		ID:           uuid.New().String(),
		OwnerID:      s.OwnerID,
		RunID:        s.RunID,
		DecisionType: decisionType,
		Output:       map[string]interface{}{"summary": summary},
		Reasoning:    strArg(args, "reasoning", ""),
		CreatedAt:    time.Now().UTC(),
	}
	if data := mapArg(args, "data"); data != nil {
		d.Output["data"] = data
	}
	s.DecisionsMade = append(s.DecisionsMade, d)

	persisted := false
	if e.ledger != nil {
		if err := e.ledger.Save(ctx, &d); err != nil {
			log.Printf("[TOOLS] Ledger save failed: %v", err)
		} else {
			persisted = true
		}
	}

	return map[string]interface{}{
		"success":         true,
		"decision_id":     d.ID,
		"persisted_to_db": persisted,
	}
}

func (e *Executor) createAlert(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	alertType := strArg(args, "alert_type", "")
	severity := strArg(args, "severity", "info")
	title := strArg(args, "title", "")
	if alertType == "" || title == "" {
		return errResult("alert_type and title are required")
	}
	switch severity {
	case "info", "warning", "urgent":
	default:
		return errResult("severity must be info, warning or urgent")
	}

	a := e.state.AddAlert(alertType, severity, title, strArg(args, "body", ""))
	return map[string]interface{}{
		"success":  true,
		"alert_id": a.ID,
		"severity": severity,
	}
}

func (e *Executor) sendMessageToUser(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	message := strArg(args, "message", "")
	if message == "" {
		return errResult("message is required")
	}
	msgType := strArg(args, "message_type", "info")
	e.state.AddMessage(msgType, message)
	return map[string]interface{}{
		"success": true,
		"queued":  len(e.state.Messages),
	}
}

func (e *Executor) setRiskScore(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	score := floatArg(args, "score", -1)
	if score < 0 || score > 100 {
		return errResult("score must be between 0 and 100")
	}

	level := strArg(args, "level", "")
	if level == "" {
		level = RiskLevelForScore(score)
	}

	s.RiskScore = score
	s.RiskLevel = level
	if factors, ok := args["factors"].([]interface{}); ok {
		s.RiskFactors = s.RiskFactors[:0]
		for _, f := range factors {
			if str, ok := f.(string); ok {
				s.RiskFactors = append(s.RiskFactors, str)
			}
		}
	}

	return map[string]interface{}{
		"success": true,
		"score":   score,
		"level":   level,
	}
}

// completeAnalysis is the gate that ends a run. It refuses lazy
// completions: too few investigative calls, or a throwaway insight, and
// the model is sent back to work with a concrete correction.
func (e *Executor) completeAnalysis(ctx context.Context, args map[string]interface{}) map[string]interface{} {
	s := e.state
	calls := e.InvestigativeCalls()
	if calls < e.policy.MinToolCalls {
		return map[string]interface{}{
			"error":        fmt.Sprintf("Analysis incomplete: only %d tools called, need at least %d", calls, e.policy.MinToolCalls),
			"tools_called": calls,
			"suggestion":   "Check bucket balances, upcoming obligations, income history, spending patterns and past decisions before completing",
		}
	}

	insight := strArg(args, "key_insight", "")
	if utf8.RuneCountInString(insight) < e.policy.MinInsightLen {
		return map[string]interface{}{
			"error":   fmt.Sprintf("key_insight too short (%d chars, need %d+): it must be a substantive finding", utf8.RuneCountInString(insight), e.policy.MinInsightLen),
			"example": "Rent bucket is ₹1,300 short with 4 days to go, but weekend earnings should cover it if ₹650/day is allocated",
		}
	}

	s.KeyInsight = insight
	s.RecommendedAction = strArg(args, "recommended_action", "")
	return map[string]interface{}{
		"status":      "complete",
		"key_insight": insight,
	}
}

// RiskLevelForScore maps a 0-100 score onto the standard levels.
func RiskLevelForScore(score float64) string {
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
