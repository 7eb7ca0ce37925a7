package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// recallLessons mines the last two weeks of ledger decisions, plus the
// vector memory when attached, into a short lessons string for the
// planner and the main loop. Entirely best-effort.
func (a *EnhancedAgent) recallLessons(ctx context.Context) string {
	s := a.executor.State()
	var parts []string

	if a.ledger != nil {
		since := s.RunDate.AddDate(0, 0, -14)
		decisions, err := a.ledger.Recent(ctx, s.OwnerID, since, "", 20)
		if err != nil {
			log.Printf("[LEARN] Ledger recall failed, continuing without: %v", err)
		} else if len(decisions) > 0 {
			prompt := formatDecisionsForRecall(decisions)
			var lessons struct {
				Lessons          []string `json:"lessons"`
				ConsistencyNotes []string `json:"consistency_notes"`
			}
			if err := a.oracle.CompleteJSON(ctx, LearningSystemPrompt, prompt, &lessons); err != nil {
				log.Printf("[LEARN] Lesson extraction failed, continuing without: %v", err)
			} else {
				parts = append(parts, lessons.Lessons...)
				parts = append(parts, lessons.ConsistencyNotes...)
			}
		}
	}

	if a.memory != nil {
		recalled, err := a.memory.Retrieve(ctx, s.OwnerID, "financial decisions allocation advance risk")
		if err != nil {
			log.Printf("[LEARN] Memory recall failed, continuing without: %v", err)
		} else if recalled != "" {
			parts = append(parts, recalled)
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return "- " + strings.Join(parts, "\n- ")
}

// saveLearnings persists a compact record of how this run went, so the
// next run's recall phase can see it. Failures are logged, never fatal.
func (a *EnhancedAgent) saveLearnings(ctx context.Context) {
	s := a.executor.State()

	insight := s.KeyInsight
	if len(insight) > 200 {
		insight = insight[:200]
	}
	findings := s.UnexpectedFindings
	if len(findings) > 5 {
		findings = findings[:5]
	}

	output := map[string]interface{}{
		"risk_score":        s.RiskScore,
		"key_insight":       insight,
		"reflections_count": len(s.Reflections),
	}
	if len(findings) > 0 {
		output["unexpected_findings"] = findings
	}
	if s.Debate != nil {
		output["debate_confidence"] = s.Debate.Confidence
	}
	if s.Plan != nil {
		output["plan_revisions"] = s.Plan.Revised
	}

	d := core.Decision{
		ID:           uuid.New().String(),
		OwnerID:      s.OwnerID,
		RunID:        s.RunID,
		DecisionType: "execution_learning",
		Output:       output,
		CreatedAt:    time.Now().UTC(),
	}

	if a.ledger != nil {
		if err := a.ledger.Save(ctx, &d); err != nil {
			log.Printf("[LEARN] Failed to save execution learning: %v", err)
		}
	}
	if a.memory != nil {
		if err := a.memory.Record(ctx, s.OwnerID, append(s.DecisionsMade, d)); err != nil {
			log.Printf("[LEARN] Failed to record decisions to memory: %v", err)
		}
	}
}

func formatDecisionsForRecall(decisions []*core.Decision) string {
	var b strings.Builder
	b.WriteString("Recent decisions for this user:\n")
	for _, d := range decisions {
		outputJSON, _ := json.Marshal(d.Output)
		fmt.Fprintf(&b, "- [%s] %s: %s\n",
			d.CreatedAt.Format("2006-01-02"), d.DecisionType, truncateText(string(outputJSON), 200))
	}
	return b.String()
}
