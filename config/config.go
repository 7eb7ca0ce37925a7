// Package config loads runtime configuration from the environment.
// Every knob has a default that works for local development; only the
// Anthropic API key is required for oracle-backed modes.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"

	"github.com/gigmoneyguru/guru-go-sdk/tools"
)

// OracleConfig configures the Anthropic-backed oracle.
type OracleConfig struct {
	APIKey         string `envconfig:"API_KEY"`
	Model          string `envconfig:"MODEL" default:"claude-sonnet-4-20250514"`
	MaxTokens      int    `envconfig:"MAX_TOKENS" default:"4096"`
	TimeoutSeconds int    `envconfig:"TIMEOUT_SECONDS" default:"120"`
}

// AgentConfig configures the run loops.
type AgentConfig struct {
	Mode                  string `envconfig:"MODE" default:"react"`
	MaxIterations         int    `envconfig:"MAX_ITERATIONS" default:"15"`
	EnhancedMaxIterations int    `envconfig:"ENHANCED_MAX_ITERATIONS" default:"20"`
	MinToolCalls          int    `envconfig:"MIN_TOOL_CALLS" default:"5"`
	MinInsightLen         int    `envconfig:"MIN_INSIGHT_LEN" default:"30"`
}

// GuardrailConfig tunes the domain thresholds.
type GuardrailConfig struct {
	SpikeFactor         float64 `envconfig:"SPIKE_FACTOR" default:"1.5"`
	TrendFactor         float64 `envconfig:"TREND_FACTOR" default:"0.10"`
	GoalIncomeShare     float64 `envconfig:"GOAL_INCOME_SHARE" default:"0.30"`
	AdvanceFeeRate      float64 `envconfig:"ADVANCE_FEE_RATE" default:"0.02"`
	MaxAdvanceShare     float64 `envconfig:"MAX_ADVANCE_SHARE" default:"0.40"`
	MinAdvance          float64 `envconfig:"MIN_ADVANCE" default:"500"`
	MaxAdvance          float64 `envconfig:"MAX_ADVANCE" default:"5000"`
	MaxActiveAdvances   int     `envconfig:"MAX_ACTIVE_ADVANCES" default:"1"`
	FallbackDailyIncome float64 `envconfig:"FALLBACK_DAILY_INCOME" default:"500"`
}

// StorageConfig points at the sqlite files.
type StorageConfig struct {
	LedgerPath  string `envconfig:"LEDGER_PATH" default:"guru-ledger.db"`
	FinancePath string `envconfig:"FINANCE_PATH" default:"guru-finance.db"`
	LedgerCache bool   `envconfig:"LEDGER_CACHE" default:"true"`
}

// MemoryConfig configures semantic decision recall.
type MemoryConfig struct {
	Enabled       bool   `envconfig:"ENABLED" default:"false"`
	ModelPath     string `envconfig:"MODEL_PATH"`
	TokenizerPath string `envconfig:"TOKENIZER_PATH"`
	LibraryPath   string `envconfig:"LIBRARY_PATH"`
}

// Config is the full runtime configuration.
type Config struct {
	Oracle     OracleConfig
	Agent      AgentConfig
	Guardrails GuardrailConfig
	Storage    StorageConfig
	Memory     MemoryConfig
}

// Load reads configuration from GURU_* environment variables.
// The Anthropic key falls back to ANTHROPIC_API_KEY so the standard
// variable keeps working.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("GURU_ORACLE", &cfg.Oracle); err != nil {
		return nil, fmt.Errorf("load oracle config: %w", err)
	}
	if err := envconfig.Process("GURU_AGENT", &cfg.Agent); err != nil {
		return nil, fmt.Errorf("load agent config: %w", err)
	}
	if err := envconfig.Process("GURU_GUARDRAILS", &cfg.Guardrails); err != nil {
		return nil, fmt.Errorf("load guardrail config: %w", err)
	}
	if err := envconfig.Process("GURU_STORAGE", &cfg.Storage); err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}
	if err := envconfig.Process("GURU_MEMORY", &cfg.Memory); err != nil {
		return nil, fmt.Errorf("load memory config: %w", err)
	}

	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &cfg, nil
}

// ToolPolicy maps the configured guardrails onto the executor policy.
func (c *Config) ToolPolicy() tools.Policy {
	p := tools.DefaultPolicy()
	p.MinToolCalls = c.Agent.MinToolCalls
	p.MinInsightLen = c.Agent.MinInsightLen
	p.SpikeFactor = c.Guardrails.SpikeFactor
	p.TrendFactor = c.Guardrails.TrendFactor
	p.GoalIncomeShare = c.Guardrails.GoalIncomeShare
	p.AdvanceFeeRate = c.Guardrails.AdvanceFeeRate
	p.MaxAdvanceShare = c.Guardrails.MaxAdvanceShare
	p.MinAdvance = c.Guardrails.MinAdvance
	p.MaxAdvance = c.Guardrails.MaxAdvance
	p.MaxActiveAdvances = c.Guardrails.MaxActiveAdvances
	p.FallbackDailyIncome = c.Guardrails.FallbackDailyIncome
	return p
}
