// Package llm provides centralized LLM configuration and client abstractions.
// Stages pick a model tier; the tier maps to a concrete provider model here.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: extraction and short summaries
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: search, ranking, structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form writing: resume rewriting, research, interview prep
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultMaxToolTurns bounds how many tool-call round trips a single request may make.
const DefaultMaxToolTurns = 8

// Config holds the model configuration for the application
type Config struct {
	Provider     Provider
	Models       map[ModelTier]string
	Temperature  float32
	MaxToolTurns int
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:  0.1,
		MaxToolTurns: DefaultMaxToolTurns,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

func (c *Config) maxToolTurns() int {
	if c.MaxToolTurns <= 0 {
		return DefaultMaxToolTurns
	}
	return c.MaxToolTurns
}
