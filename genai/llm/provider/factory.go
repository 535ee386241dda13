package provider

import (
	"fmt"
	"os"
	"strings"

	"github.com/viant/agentbridge/genai/llm"
	"github.com/viant/agentbridge/genai/llm/provider/base"
	"github.com/viant/agentbridge/genai/llm/provider/openai"
)

// Factory builds a llm.Model from Options. Only the OpenAI-compatible
// provider is wired; the LM vendor SDK itself is an external collaborator
// per spec §1, so this factory only needs to cover one concrete adapter.
type Factory struct{}

func New() *Factory { return &Factory{} }

func (f *Factory) CreateModel(options *Options) (llm.Model, error) {
	if options == nil || strings.TrimSpace(options.Provider) == "" {
		return nil, fmt.Errorf("provider: options.Provider is required")
	}
	switch options.Provider {
	case ProviderOpenAI:
		apiKey := os.Getenv(options.APIKeyEnv)
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		input, output, cached := options.Price()
		return openai.NewClient(openai.Config{
			APIKey:          apiKey,
			Model:           options.Model,
			BaseURL:         options.BaseURL,
			MaxTokens:       options.MaxTokens,
			Temperature:     options.Temperature,
			UsageListener:   options.UsageListener,
			InputPricePerM:  input,
			OutputPricePerM: output,
			CachedPricePerM: cached,
			Pacer:           base.NewPacer(options.RequestsPerSecond, options.Burst),
		}), nil
	default:
		return nil, fmt.Errorf("provider: unsupported provider %q", options.Provider)
	}
}
