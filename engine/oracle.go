package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// Turn is one assistant turn: free text plus any tool calls requested.
type Turn struct {
	Text      string
	ToolCalls []OracleToolCall
}

// OracleToolCall is one tool invocation requested by the oracle.
type OracleToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolReply carries a tool result back into the conversation.
type ToolReply struct {
	CallID  string
	Content string
	IsError bool
}

// Conversation is an open exchange with the oracle. Loops append user
// text or tool results and read back the next turn.
type Conversation interface {
	// Say sends a user message and returns the next assistant turn.
	Say(ctx context.Context, message string) (*Turn, error)

	// ReturnToolResults sends tool results for the previous turn's
	// calls and returns the next assistant turn.
	ReturnToolResults(ctx context.Context, replies []ToolReply) (*Turn, error)
}

// Oracle abstracts the reasoning model. The engine is deliberately
// model-agnostic: strategies decide WHEN to consult the oracle, the
// implementation decides HOW.
type Oracle interface {
	// NewConversation opens a tool-enabled exchange.
	NewConversation(system string, defs []tools.Definition) Conversation

	// CompleteJSON asks one question and unmarshals the reply into out.
	// Used by the single-shot phases: planning, reflection, debate,
	// routing.
	CompleteJSON(ctx context.Context, system, prompt string, out interface{}) error
}

// AnthropicOracle implements Oracle on the Anthropic Messages API.
type AnthropicOracle struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicOption configures the oracle.
type AnthropicOption func(*AnthropicOracle)

// WithModel overrides the default model.
func WithModel(model string) AnthropicOption {
	return func(o *AnthropicOracle) { o.model = model }
}

// WithMaxTokens overrides the response token ceiling.
func WithMaxTokens(n int64) AnthropicOption {
	return func(o *AnthropicOracle) { o.maxTokens = n }
}

// NewAnthropicOracle wraps an Anthropic client as an Oracle.
func NewAnthropicOracle(client *anthropic.Client, opts ...AnthropicOption) *AnthropicOracle {
	o := &AnthropicOracle{
		client:    client,
		model:     "claude-sonnet-4-20250514",
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewConversation opens a tool-enabled exchange.
func (o *AnthropicOracle) NewConversation(system string, defs []tools.Definition) Conversation {
	return &anthropicConversation{
		oracle: o,
		system: system,
		tools:  apiTools(defs),
	}
}

// CompleteJSON sends a single prompt and parses the JSON reply. The
// model sometimes wraps JSON in prose or fences; the first balanced
// object is extracted before unmarshaling.
func (o *AnthropicOracle) CompleteJSON(ctx context.Context, system, prompt string, out interface{}) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: o.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}

	resp, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return fmt.Errorf("oracle completion: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	payload := ExtractJSON(text)
	if payload == "" {
		return fmt.Errorf("oracle returned no JSON: %q", truncateText(text, 120))
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("parse oracle JSON: %w", err)
	}
	return nil
}

type anthropicConversation struct {
	oracle   *AnthropicOracle
	system   string
	tools    []anthropic.ToolUnionParam
	messages []anthropic.MessageParam
}

func (c *anthropicConversation) Say(ctx context.Context, message string) (*Turn, error) {
	c.messages = append(c.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))
	return c.advance(ctx)
}

func (c *anthropicConversation) ReturnToolResults(ctx context.Context, replies []ToolReply) (*Turn, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(replies))
	for _, r := range replies {
		blocks = append(blocks, anthropic.NewToolResultBlock(r.CallID, r.Content, r.IsError))
	}
	c.messages = append(c.messages, anthropic.NewUserMessage(blocks...))
	return c.advance(ctx)
}

func (c *anthropicConversation) advance(ctx context.Context) (*Turn, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.oracle.model),
		MaxTokens: c.oracle.maxTokens,
		Messages:  c.messages,
		System: []anthropic.TextBlockParam{
			{Text: c.system},
		},
	}
	if len(c.tools) > 0 {
		params.Tools = c.tools
	}

	resp, err := c.oracle.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("oracle turn: %w", err)
	}
	c.messages = append(c.messages, resp.ToParam())

	turn := &Turn{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			turn.Text += block.Text
		case "tool_use":
			turn.ToolCalls = append(turn.ToolCalls, OracleToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	return turn, nil
}

// apiTools converts catalogue definitions to API tool params.
func apiTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.InputSchema["properties"],
			},
		}
		if required, ok := def.InputSchema["required"].([]string); ok {
			param.InputSchema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

// ExtractJSON pulls the first balanced JSON object out of model text,
// tolerating markdown fences and surrounding prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
