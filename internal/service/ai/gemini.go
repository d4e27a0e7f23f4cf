package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiName = "gemini"

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeouts Timeouts) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		return nil, errors.New("gemini model is required")
	}
	httpClient, err := newHTTPClient(timeouts)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string {
	return geminiName
}

func (c *GeminiClient) Generate(ctx context.Context, prompt Prompt, opts GenerationOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", newProviderError(geminiName, BadResponse, 0, errors.New("empty candidate text"))
	}
	return text, nil
}

func classifyGeminiError(err error) *ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(geminiName, kindForStatus(apiErr.Code, []byte(apiErr.Message)), apiErr.Code, err)
	}
	return classifyError(geminiName, err)
}
