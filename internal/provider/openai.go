package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/pkg/openai"
)

type openaiProvider struct {
	client openai.Client
	key    string
	model  string
}

// NewOpenAI wraps an OpenAI client as a Provider.
func NewOpenAI(client openai.Client, key, model string) Provider {
	return &openaiProvider{client: client, key: key, model: model}
}

func (p *openaiProvider) ID() string { return "openai" }

func (p *openaiProvider) Configured() bool { return p.key != "" }

func (p *openaiProvider) Invoke(ctx context.Context, query string) (string, error) {
	temp := Temperature
	maxTokens := MaxTokens
	resp, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    []openai.Message{{Role: "user", Content: query}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "provider: openai invoke")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("provider: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
