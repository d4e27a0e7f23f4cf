package ai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openAIName = "openai"

// OpenAIClient calls any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client. An empty baseURL keeps the library default.
func NewOpenAIClient(baseURL, apiKey, model string, timeouts Timeouts) (*OpenAIClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("openai model is required")
	}
	httpClient, err := newHTTPClient(timeouts)
	if err != nil {
		return nil, err
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = httpClient

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Name() string {
	return openAIName
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt Prompt, opts GenerationOptions) (string, error) {
	var messages []openai.ChatCompletionMessage
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", newProviderError(openAIName, BadResponse, 0, errors.New("no choices in response"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", newProviderError(openAIName, BadResponse, 0, errors.New("empty message content"))
	}
	return text, nil
}

func classifyOpenAIError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(openAIName, kindForStatus(apiErr.HTTPStatusCode, []byte(apiErr.Message)), apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return newProviderError(openAIName, kindForStatus(reqErr.HTTPStatusCode, nil), reqErr.HTTPStatusCode, err)
	}
	if isTransportError(err) {
		return newProviderError(openAIName, Transport, 0, err)
	}
	return newProviderError(openAIName, BadResponse, 0, err)
}
