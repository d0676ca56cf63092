package researcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"research/pkg/serrors"

	openai "github.com/sashabaranov/go-openai"
	"github.com/smhanov/laconic"
)

// openAIModel adapts a chat-completions endpoint to laconic.LLMProvider.
type openAIModel struct {
	client *openai.Client
	model  string
}

func newOpenAIModel(baseURL, apiKey, model string, httpClient *http.Client) *openAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &openAIModel{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate runs one chat completion with the given system and user prompts.
// Provider throttling surfaces as serrors.ErrRateLimited so callers can back off.
func (m *openAIModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (laconic.LLMResponse, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		if statusCode(err) == http.StatusTooManyRequests {
			return laconic.LLMResponse{}, serrors.Wrap(serrors.ErrRateLimited, err, "model %s is throttled", m.model)
		}

		return laconic.LLMResponse{}, fmt.Errorf("could not generate completion with %s: %w", m.model, err)
	}

	if len(resp.Choices) == 0 {
		return laconic.LLMResponse{}, serrors.With(serrors.ErrUnavailable, "model %s returned no choices", m.model)
	}

	// The chat-completions API reports token usage, not dollar cost, so Cost
	// stays zero and the agent's accumulated cost reflects search spend only.
	return laconic.LLMResponse{Text: resp.Choices[0].Message.Content}, nil
}

// statusCode extracts the HTTP status from go-openai's error types.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	return 0
}
