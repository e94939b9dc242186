// Package provider abstracts the AI assistants queried during a
// visibility test behind a single interface.
package provider

import (
	"context"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	"github.com/sells-group/visibility-cli/pkg/gemini"
	"github.com/sells-group/visibility-cli/pkg/openai"
)

// Decoding parameters shared by all providers. Low temperature keeps
// the recommendation answers stable across reruns.
const (
	Temperature = 0.1
	MaxTokens   = 600
)

// Provider is one AI assistant the pipeline can pose a query to.
type Provider interface {
	// ID is the stable provider identifier persisted with test runs.
	ID() string
	// Configured reports whether an API key is present.
	Configured() bool
	// Invoke poses a single query and returns the raw answer text.
	Invoke(ctx context.Context, query string) (string, error)
}

// Registry holds the known providers in a fixed order so test runs and
// scores are reproducible.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a registry from an explicit provider list.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// FromConfig builds the standard registry: openai, anthropic, gemini.
func FromConfig(cfg *config.Config) *Registry {
	return NewRegistry(
		NewOpenAI(
			openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL)),
			cfg.OpenAI.Key, cfg.OpenAI.Model,
		),
		NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Key, cfg.Anthropic.Model),
		NewGemini(
			gemini.NewClient(cfg.Gemini.Key, gemini.WithBaseURL(cfg.Gemini.BaseURL)),
			cfg.Gemini.Key, cfg.Gemini.Model,
		),
	)
}

// All returns every registered provider, configured or not.
func (r *Registry) All() []Provider {
	return r.providers
}

// Active returns only the providers with credentials, in registry order.
func (r *Registry) Active() []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Configured() {
			out = append(out, p)
		}
	}
	return out
}
