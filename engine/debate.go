package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// Debate order is fixed so transcripts read consistently.
var advisorOrder = []string{"conservative", "growth", "practical"}

// debate runs the draft recommendation past three advisor personas and
// synthesizes their positions. Everything degrades: an unreachable
// advisor contributes a neutral opinion, a failed synthesis keeps the
// original recommendation.
func (a *EnhancedAgent) debate(ctx context.Context) {
	s := a.executor.State()
	draft := s.RecommendedAction

	result := &core.DebateResult{}
	for _, advisor := range advisorOrder {
		opinion := a.advisorOpinion(ctx, advisor, draft)
		result.Opinions = append(result.Opinions, opinion)
	}

	prompt := fmt.Sprintf("Draft recommendation: %s\n\n", draft)
	for _, op := range result.Opinions {
		prompt += fmt.Sprintf("%s (agreement %.0f/100): %s", op.Advisor, op.AgreementLevel, op.Stance)
		if op.Concerns != "" {
			prompt += " Concerns: " + op.Concerns
		}
		prompt += "\n"
	}

	var synthesis struct {
		FinalRecommendation string  `json:"final_recommendation"`
		Confidence          float64 `json:"confidence"`
		Dissent             string  `json:"dissent"`
	}
	if err := a.oracle.CompleteJSON(ctx, SynthesisSystemPrompt, prompt, &synthesis); err != nil || synthesis.FinalRecommendation == "" {
		if err != nil {
			log.Printf("[DEBATE] Synthesis failed, keeping draft recommendation: %v", err)
		}
		result.FinalRecommendation = draft
		result.Confidence = 0.6
	} else {
		result.FinalRecommendation = synthesis.FinalRecommendation
		result.Confidence = synthesis.Confidence
		result.Dissent = synthesis.Dissent
	}

	s.Debate = result
	s.RecommendedAction = result.FinalRecommendation
	log.Printf("[DEBATE] Final recommendation (confidence %.2f)", result.Confidence)
}

// advisorOpinion asks one persona for its position. Unreachable
// advisors abstain with a neutral 70.
func (a *EnhancedAgent) advisorOpinion(ctx context.Context, advisor, draft string) core.AdvisorOpinion {
	s := a.executor.State()
	system := DebatePerspectives[advisor] + "\n\n" + DebateSystemPrompt
	prompt := fmt.Sprintf("Draft recommendation: %s\nKey insight: %s\nRisk: %.0f (%s)\nWarnings: %v",
		draft, s.KeyInsight, s.RiskScore, s.RiskLevel, s.Warnings)

	var reply struct {
		Stance         string  `json:"stance"`
		Concerns       string  `json:"concerns"`
		AgreementLevel float64 `json:"agreement_level"`
	}
	if err := a.oracle.CompleteJSON(ctx, system, prompt, &reply); err != nil {
		log.Printf("[DEBATE] Advisor %s unreachable, recording neutral opinion: %v", advisor, err)
		return core.AdvisorOpinion{
			Advisor:        advisor,
			Stance:         "No position taken",
			AgreementLevel: 70,
		}
	}
	return core.AdvisorOpinion{
		Advisor:        advisor,
		Stance:         reply.Stance,
		Concerns:       reply.Concerns,
		AgreementLevel: reply.AgreementLevel,
	}
}
