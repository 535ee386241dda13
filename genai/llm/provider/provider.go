package provider

// ProviderOpenAI identifies the OpenAI-compatible chat completion API, the
// sole reference LM adapter wired in this module.
const ProviderOpenAI = "openai"

// Default per-million-token USD prices applied when Options leaves a
// pricing field unset (spec §4.4).
const (
	DefaultInputPricePerMillion  = 0.80
	DefaultOutputPricePerMillion = 4.00
	DefaultCachedPricePerMillion = 0.08
)
