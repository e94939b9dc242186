package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/pkg/anthropic"
)

type anthropicProvider struct {
	client anthropic.Client
	key    string
	model  string
}

// NewAnthropic wraps an Anthropic client as a Provider.
func NewAnthropic(client anthropic.Client, key, model string) Provider {
	return &anthropicProvider{client: client, key: key, model: model}
}

func (p *anthropicProvider) ID() string { return "anthropic" }

func (p *anthropicProvider) Configured() bool { return p.key != "" }

func (p *anthropicProvider) Invoke(ctx context.Context, query string) (string, error) {
	temp := Temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: query}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: anthropic invoke")
	}
	return resp.Text(), nil
}
