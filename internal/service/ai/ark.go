package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/line-relay/backend/internal/config"
)

const arkName = "ark"

// ArkClient runs prompts through an eino chain ending in a Volcengine Ark chat model.
type ArkClient struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkClient creates the Ark chat model from cfg and compiles the chain around it.
func NewArkClient(ctx context.Context, cfg config.ArkConfig, timeouts Timeouts) (*ArkClient, error) {
	if err := timeouts.validate(); err != nil {
		return nil, err
	}
	chatModel, err := cfg.NewChatModel(ctx, timeouts.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChainClient(ctx, chatModel)
}

// NewChainClient compiles the system/user prompt chain around any chat model.
func NewChainClient(ctx context.Context, chatModel model.ChatModel) (*ArkClient, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkClient{chain: runnable}, nil
}

func (c *ArkClient) Name() string {
	return arkName
}

func (c *ArkClient) Generate(ctx context.Context, p Prompt, opts GenerationOptions) (string, error) {
	input := map[string]any{
		"system": p.System,
		"query":  p.User,
	}

	modelOpts := []model.Option{model.WithTemperature(float32(opts.Temperature))}
	if opts.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	response, err := c.chain.Invoke(ctx, input, compose.WithChatModelOption(modelOpts...))
	if err != nil {
		return "", classifyError(arkName, err)
	}
	if response == nil {
		return "", newProviderError(arkName, BadResponse, 0, errors.New("nil message"))
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", newProviderError(arkName, BadResponse, 0, errors.New("empty message content"))
	}
	return text, nil
}
