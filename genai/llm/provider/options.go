package provider

import basecfg "github.com/viant/agentbridge/genai/llm/provider/base"

// Options configures a single LM client instance. The API key is read from
// the environment variable named by APIKeyEnv, falling back to
// OPENAI_API_KEY when that is empty (spec §6: "the LM API key ... is read
// from environment").
type Options struct {
	Model         string                `yaml:"model,omitempty" json:"model,omitempty"`
	Provider      string                `yaml:"provider,omitempty" json:"provider,omitempty"`
	APIKeyEnv     string                `yaml:"apiKeyEnv,omitempty" json:"apiKeyEnv,omitempty"`
	BaseURL       string                `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	Temperature   *float64              `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens     int                   `yaml:"maxTokens,omitempty" json:"maxTokens,omitempty"`
	UsageListener basecfg.UsageListener `yaml:"-" json:"-"`

	// Pricing, USD per million tokens. Zero means "use the spec default".
	InputTokenPrice  float64 `yaml:"inputTokenPrice,omitempty" json:"inputTokenPrice,omitempty"`
	OutputTokenPrice float64 `yaml:"outputTokenPrice,omitempty" json:"outputTokenPrice,omitempty"`
	CachedTokenPrice float64 `yaml:"cachedTokenPrice,omitempty" json:"cachedTokenPrice,omitempty"`

	// RequestsPerSecond/Burst configure an outbound pacing limiter applied
	// to this client, independent of any per-user rate limiting upstream.
	// Zero RequestsPerSecond disables pacing.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// Price returns the effective per-million price for each token class,
// substituting spec defaults for any unset (zero) field.
func (o Options) Price() (input, output, cached float64) {
	input, output, cached = o.InputTokenPrice, o.OutputTokenPrice, o.CachedTokenPrice
	if input == 0 {
		input = DefaultInputPricePerMillion
	}
	if output == 0 {
		output = DefaultOutputPricePerMillion
	}
	if cached == 0 {
		cached = DefaultCachedPricePerMillion
	}
	return input, output, cached
}
