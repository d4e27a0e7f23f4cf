package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/config"
	"github.com/zhouzirui/line-relay/backend/internal/model/persona"
	"github.com/zhouzirui/line-relay/backend/internal/service/ai"
	"github.com/zhouzirui/line-relay/backend/internal/service/chat"
	"github.com/zhouzirui/line-relay/backend/internal/service/dispatch"
	"github.com/zhouzirui/line-relay/backend/internal/service/line"
	"github.com/zhouzirui/line-relay/backend/internal/service/postprocess"
	"github.com/zhouzirui/line-relay/backend/internal/service/tools"
)

type app struct {
	personas   *persona.MemoryStore
	sessions   *chat.Service
	gateway    *ai.Gateway
	dispatcher *dispatch.Dispatcher
	policy     postprocess.Policy
}

func loadPersonas(cfg *config.Config) (*persona.MemoryStore, error) {
	if cfg.PersonaFile == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(cfg.PersonaFile)
	if err != nil {
		return nil, err
	}
	return persona.NewMemoryStore(items), nil
}

func newGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ai.Gateway, error) {
	providers, err := ai.NewProviders(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	if len(providers) == 0 {
		logger.Warn("no provider configured, every free-text message will get the apology reply")
	}

	opts := ai.GenerationOptions{MaxTokens: cfg.Gateway.MaxTokens, Temperature: cfg.Gateway.Temperature}
	gateway := ai.NewGateway(providers, opts, logger)
	logger.Info("gateway ready", zap.Strings("providers", gateway.Providers()))
	return gateway, nil
}

// replyPolicy keeps processed replies inside one LINE message so the send cap never cuts
// the suffix off.
func replyPolicy(cfg *config.Config) postprocess.Policy {
	return postprocess.Policy{
		MaxChars:       cfg.Reply.MaxChars,
		RequiredSuffix: cfg.Reply.Suffix,
		StripReasoning: cfg.Reply.StripReasoning,
	}.Within(line.MaxTextRunes)
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	personas, err := loadPersonas(cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions := chat.NewService()
	policy := replyPolicy(cfg)
	sender := line.NewClient(nil, cfg.LINE.APIBase, cfg.LINE.AccessToken)

	dispatcher := dispatch.New(dispatch.Deps{
		Sessions: sessions,
		Personas: personas,
		Gateway:  gateway,
		Tools:    tools.Default(),
		Prompts:  ai.NewPromptBuilder(""),
		Sender:   sender,
	}, dispatch.Options{
		Mode:         cfg.Dispatch.Mode,
		EventTimeout: cfg.Dispatch.EventTimeout,
		AsyncWorkers: cfg.Dispatch.AsyncWorkers,
		Reply:        policy,
	}, logger)

	return &app{
		personas:   personas,
		sessions:   sessions,
		gateway:    gateway,
		dispatcher: dispatcher,
		policy:     policy,
	}, nil
}
