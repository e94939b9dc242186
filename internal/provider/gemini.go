package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/pkg/gemini"
)

type geminiProvider struct {
	client gemini.Client
	key    string
	model  string
}

// NewGemini wraps a Gemini client as a Provider.
func NewGemini(client gemini.Client, key, model string) Provider {
	return &geminiProvider{client: client, key: key, model: model}
}

func (p *geminiProvider) ID() string { return "gemini" }

func (p *geminiProvider) Configured() bool { return p.key != "" }

func (p *geminiProvider) Invoke(ctx context.Context, query string) (string, error) {
	temp := Temperature
	maxTokens := MaxTokens
	resp, err := p.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Model:    p.model,
		Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: query}}}},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: &maxTokens,
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: gemini invoke")
	}
	return resp.Text(), nil
}
