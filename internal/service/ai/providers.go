package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/config"
	"github.com/zhouzirui/line-relay/backend/internal/logging"
)

// NewProviders builds the configured providers in cfg.Gateway.Order. Providers whose
// section is not configured are skipped; an unknown name is an error.
func NewProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]Provider, error) {
	logger = logging.OrNop(logger)
	timeouts := Timeouts{Connect: cfg.Gateway.ConnectTimeout, Total: cfg.Gateway.RequestTimeout}
	if err := timeouts.validate(); err != nil {
		return nil, err
	}

	var providers []Provider
	for _, name := range cfg.Gateway.Order {
		provider, err := newProvider(ctx, name, cfg, timeouts)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			logger.Info("provider not configured, skipping", zap.String("provider", name))
			continue
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func newProvider(ctx context.Context, name string, cfg *config.Config, timeouts Timeouts) (Provider, error) {
	switch name {
	case ollamaName:
		if !cfg.Ollama.Enabled() {
			return nil, nil
		}
		return NewOllamaClient(cfg.Ollama.BaseURL, cfg.Ollama.Model, timeouts)
	case hfName:
		if !cfg.HF.Enabled() {
			return nil, nil
		}
		return NewHFClient(cfg.HF.BaseURL, cfg.HF.Token, cfg.HF.Model, timeouts)
	case openAIName:
		if !cfg.OpenAI.Enabled() {
			return nil, nil
		}
		return NewOpenAIClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, timeouts)
	case arkName:
		if !cfg.Ark.Enabled() {
			return nil, nil
		}
		return NewArkClient(ctx, cfg.Ark, timeouts)
	case geminiName:
		if !cfg.Gemini.Enabled() {
			return nil, nil
		}
		return NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, timeouts)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
