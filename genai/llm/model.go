package llm

import "context"

// Model is one upstream LM endpoint. Implements reports whether the model
// supports an optional capability (see provider/base feature flags) so
// callers can degrade gracefully instead of failing outright.
type Model interface {
	Generate(ctx context.Context, request *GenerateRequest) (*GenerateResponse, error)
	Implements(feature string) bool
}

// ModelPreferences expresses a caller's priorities when several candidate
// models could serve a request. Hints are matched against model IDs in
// order before falling back to the weighted score.
type ModelPreferences struct {
	Intelligence float64
	Speed        float64
	Hints        []string
}

// NewModelPreferences builds preferences from zero or more option funcs.
func NewModelPreferences(opts ...func(*ModelPreferences)) *ModelPreferences {
	p := &ModelPreferences{}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	return p
}

// WithHints appends name hints consulted before the weighted score.
func WithHints(hints ...string) func(*ModelPreferences) {
	return func(p *ModelPreferences) { p.Hints = append(p.Hints, hints...) }
}
