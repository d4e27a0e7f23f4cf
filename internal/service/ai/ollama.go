package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const ollamaName = "ollama"

// OllamaClient talks to a local Ollama server through the non-streaming /api/chat endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

// NewOllamaClient validates the timeouts and builds a client.
func NewOllamaClient(baseURL, model string, timeouts Timeouts) (*OllamaClient, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(model) == "" {
		return nil, errors.New("ollama base url and model are required")
	}
	client, err := newHTTPClient(timeouts)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    client,
	}, nil
}

func (c *OllamaClient) Name() string {
	return ollamaName
}

func (c *OllamaClient) Generate(ctx context.Context, prompt Prompt, opts GenerationOptions) (string, error) {
	payload := ollamaRequest{
		Model:  c.model,
		Stream: false,
	}
	if prompt.System != "" {
		payload.Messages = append(payload.Messages, ollamaMessage{Role: "system", Content: prompt.System})
	}
	payload.Messages = append(payload.Messages, ollamaMessage{Role: "user", Content: prompt.User})

	options := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	payload.Options = options

	body, err := json.Marshal(payload)
	if err != nil {
		return "", newProviderError(ollamaName, Transport, 0, fmt.Errorf("encode request: %w", err))
	}

	raw, err := postJSON(ctx, c.http, ollamaName, c.baseURL+"/api/chat", nil, body)
	if err != nil {
		return "", err
	}

	text, ok := ExtractText(raw, OllamaExtractors)
	if !ok {
		return "", newProviderError(ollamaName, BadResponse, http.StatusOK, fmt.Errorf("no text in response: %s", snippet(raw)))
	}
	return text, nil
}
