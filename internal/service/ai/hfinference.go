package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/sjson"
)

const hfName = "hf"

// HFClient calls a hosted text-generation model over the inference API.
type HFClient struct {
	baseURL string
	token   string
	model   string
	http    *http.Client
}

// NewHFClient validates the timeouts and builds a client.
func NewHFClient(baseURL, token, model string, timeouts Timeouts) (*HFClient, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(model) == "" {
		return nil, errors.New("inference base url and model are required")
	}
	client, err := newHTTPClient(timeouts)
	if err != nil {
		return nil, err
	}
	return &HFClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   strings.Trim(model, "/"),
		http:    client,
	}, nil
}

func (c *HFClient) Name() string {
	return hfName
}

func (c *HFClient) Generate(ctx context.Context, prompt Prompt, opts GenerationOptions) (string, error) {
	body, err := buildInferenceRequest(prompt, opts)
	if err != nil {
		return "", newProviderError(hfName, Transport, 0, fmt.Errorf("encode request: %w", err))
	}

	headers := map[string]string{}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	raw, err := postJSON(ctx, c.http, hfName, c.baseURL+"/models/"+c.model, headers, body)
	if err != nil {
		return "", err
	}

	text, ok := ExtractText(raw, InferenceExtractors)
	if !ok {
		return "", newProviderError(hfName, BadResponse, http.StatusOK, fmt.Errorf("no text in response: %s", snippet(raw)))
	}
	return text, nil
}

func buildInferenceRequest(prompt Prompt, opts GenerationOptions) ([]byte, error) {
	body := []byte(`{}`)
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		body, err = sjson.SetBytes(body, path, value)
	}

	set("inputs", renderInferencePrompt(prompt))
	if opts.MaxTokens > 0 {
		set("parameters.max_new_tokens", opts.MaxTokens)
	}
	// the API rejects a zero temperature
	if opts.Temperature > 0 {
		set("parameters.temperature", opts.Temperature)
	}
	set("parameters.return_full_text", false)
	set("options.wait_for_model", false)

	return body, err
}

func renderInferencePrompt(prompt Prompt) string {
	var b strings.Builder
	if prompt.System != "" {
		b.WriteString(prompt.System)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(prompt.User)
	b.WriteString("\nAssistant:")
	return b.String()
}
