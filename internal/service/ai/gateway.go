package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/logging"
)

// Attempt records one failed provider call.
type Attempt struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// Result is the outcome of Gateway.Ask. Provider is empty when every provider failed.
type Result struct {
	Text     string
	Provider string
	// Errors lists failed attempts in the order they were made.
	Errors []Attempt
}

// OK reports whether some provider produced text.
func (r Result) OK() bool {
	return r.Provider != ""
}

// Gateway tries providers in order until one succeeds and remembers the last winner.
type Gateway struct {
	providers []Provider
	opts      GenerationOptions
	logger    *zap.Logger

	mu     sync.Mutex
	sticky int
}

// NewGateway keeps providers in the given order. The slice is copied.
func NewGateway(providers []Provider, opts GenerationOptions, logger *zap.Logger) *Gateway {
	return &Gateway{
		providers: append([]Provider(nil), providers...),
		opts:      opts,
		logger:    logging.OrNop(logger).With(zap.String("component", "gateway")),
		sticky:    -1,
	}
}

// Ask runs prompt through the sticky provider first, then through the rest in order.
// It never returns an error; failures are reported in Result.Errors.
func (g *Gateway) Ask(ctx context.Context, prompt Prompt) Result {
	var result Result

	tried := g.stickyIndex()
	if tried >= 0 {
		text, err := g.try(ctx, tried, prompt)
		if err == nil {
			result.Text, result.Provider = text, g.providers[tried].Name()
			return result
		}
		result.Errors = append(result.Errors, Attempt{Provider: g.providers[tried].Name(), Message: err.Error()})
		g.clearSticky(tried)
	}

	for i, provider := range g.providers {
		if i == tried {
			continue
		}
		text, err := g.try(ctx, i, prompt)
		if err != nil {
			result.Errors = append(result.Errors, Attempt{Provider: provider.Name(), Message: err.Error()})
			continue
		}
		g.setSticky(i)
		result.Text, result.Provider = text, provider.Name()
		return result
	}

	g.logger.Warn("all providers failed", zap.Int("attempts", len(result.Errors)))
	return result
}

func (g *Gateway) try(ctx context.Context, i int, prompt Prompt) (text string, err error) {
	provider := g.providers[i]
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", newProviderError(provider.Name(), Transport, 0, ctxErr)
	}

	defer func() {
		if r := recover(); r != nil {
			err = newProviderError(provider.Name(), BadResponse, 0, fmt.Errorf("panic: %v", r))
		}
	}()

	text, err = provider.Generate(ctx, prompt, g.opts)
	if err == nil && text == "" {
		err = newProviderError(provider.Name(), BadResponse, 0, errors.New("empty text"))
	}
	if err != nil {
		g.logger.Warn("provider failed", zap.String("provider", provider.Name()), zap.Error(err))
		return "", err
	}
	g.logger.Debug("provider answered", zap.String("provider", provider.Name()), zap.Int("chars", len(text)))
	return text, nil
}

func (g *Gateway) stickyIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sticky
}

func (g *Gateway) setSticky(i int) {
	g.mu.Lock()
	changed := g.sticky != i
	g.sticky = i
	g.mu.Unlock()

	if changed {
		g.logger.Info("sticky provider set", zap.String("provider", g.providers[i].Name()))
	}
}

// clearSticky only clears when i is still the sticky provider, so a concurrent success
// elsewhere is not lost.
func (g *Gateway) clearSticky(i int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sticky == i {
		g.sticky = -1
	}
}

// Sticky returns the name of the sticky provider, or "" when none is set.
func (g *Gateway) Sticky() string {
	i := g.stickyIndex()
	if i < 0 {
		return ""
	}
	return g.providers[i].Name()
}

// Providers lists provider names in fallback order.
func (g *Gateway) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}
