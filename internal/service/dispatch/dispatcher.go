package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zhouzirui/line-relay/backend/internal/config"
	"github.com/zhouzirui/line-relay/backend/internal/logging"
	"github.com/zhouzirui/line-relay/backend/internal/model/chat"
	"github.com/zhouzirui/line-relay/backend/internal/model/persona"
	"github.com/zhouzirui/line-relay/backend/internal/service/ai"
	"github.com/zhouzirui/line-relay/backend/internal/service/postprocess"
	"github.com/zhouzirui/line-relay/backend/internal/service/tools"
)

// Sender delivers text back to the platform.
type Sender interface {
	// Reply answers through the event's single-use reply token.
	Reply(ctx context.Context, replyToken, text string) error
	// Push sends to a durable user, group or room id.
	Push(ctx context.Context, to, text string) error
}

// Asker produces generated text for a prompt. *ai.Gateway implements it.
type Asker interface {
	Ask(ctx context.Context, prompt ai.Prompt) ai.Result
}

// SessionStore keeps per-user conversational state.
type SessionStore interface {
	GetOrCreate(ctx context.Context, userID string) (chat.Session, bool, error)
	SetPersona(ctx context.Context, userID, personaKey string) (chat.Session, error)
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Sessions SessionStore
	Personas persona.Store
	Gateway  Asker
	Tools    *tools.Registry
	Prompts  *ai.PromptBuilder
	Sender   Sender
}

// Options control reply behavior.
type Options struct {
	// Mode is config.ModeSync or config.ModeAsync.
	Mode         string
	EventTimeout time.Duration
	AsyncWorkers int
	// AsyncQueue bounds accepted background tasks, running or waiting for a worker.
	// Defaults to four per worker.
	AsyncQueue int
	Reply      postprocess.Policy
}

// Dispatcher classifies inbound events and answers each message event exactly once.
type Dispatcher struct {
	deps   Deps
	opts   Options
	logger *zap.Logger

	sem   *semaphore.Weighted
	queue *semaphore.Weighted
	tasks *sync.WaitGroup
}

// New fills defaults for missing options and collaborators.
func New(deps Deps, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Mode == "" {
		opts.Mode = config.ModeSync
	}
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = 45 * time.Second
	}
	if opts.AsyncWorkers <= 0 {
		opts.AsyncWorkers = 8
	}
	if opts.AsyncQueue < opts.AsyncWorkers {
		opts.AsyncQueue = 4 * opts.AsyncWorkers
	}
	if deps.Tools == nil {
		deps.Tools = tools.Default()
	}
	if deps.Prompts == nil {
		deps.Prompts = ai.NewPromptBuilder("")
	}

	return &Dispatcher{
		deps:   deps,
		opts:   opts,
		logger: logging.OrNop(logger).With(zap.String("component", "dispatch")),
		sem:    semaphore.NewWeighted(int64(opts.AsyncWorkers)),
		queue:  semaphore.NewWeighted(int64(opts.AsyncQueue)),
		tasks:  &sync.WaitGroup{},
	}
}

// WithSender returns a dispatcher that answers through s. It shares sessions, the gateway
// and the async task pool with d.
func (d *Dispatcher) WithSender(s Sender) *Dispatcher {
	clone := *d
	clone.deps.Sender = s
	return &clone
}

// Mode reports the configured reply mode.
func (d *Dispatcher) Mode() string {
	return d.opts.Mode
}

// Wait blocks until every background task has finished.
func (d *Dispatcher) Wait() {
	d.tasks.Wait()
}

// Handle processes events sequentially, in delivery order.
func (d *Dispatcher) Handle(ctx context.Context, events []chat.Event) {
	for _, ev := range events {
		d.handleEvent(ctx, ev)
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev chat.Event) {
	logger := d.logger.With(zap.Stringer("kind", ev.Kind), zap.String("source", ev.SourceID))

	switch ev.Kind {
	case chat.EventFollow, chat.EventJoin:
		d.session(ctx, ev, logger)
		d.reply(ctx, ev, greeting(), logger)
	case chat.EventMessage:
		if ev.Text == nil {
			d.reply(ctx, ev, msgTextOnly, logger)
			return
		}
		d.handleText(ctx, ev, logger)
	default:
		logger.Debug("ignoring event")
	}
}

func (d *Dispatcher) session(ctx context.Context, ev chat.Event, logger *zap.Logger) chat.Session {
	session, created, err := d.deps.Sessions.GetOrCreate(ctx, ev.SessionKey())
	if err != nil {
		logger.Warn("session unavailable, using default persona", zap.Error(err))
		return chat.Session{PersonaKey: persona.DefaultID}
	}
	if created {
		logger.Info("session created", zap.String("session", session.ID))
	}
	return session
}

func (d *Dispatcher) handleText(ctx context.Context, ev chat.Event, logger *zap.Logger) {
	session := d.session(ctx, ev, logger)
	text := strings.TrimSpace(ev.TextValue())

	if reply, ok := d.command(ctx, ev, session, text, logger); ok {
		d.reply(ctx, ev, reply, logger)
		return
	}

	p := d.deps.Personas.Resolve(session.PersonaKey)
	prompt := d.deps.Prompts.Build(&p, text)

	if d.opts.Mode == config.ModeAsync && ev.SourceID != "" {
		if !d.queue.TryAcquire(1) {
			logger.Warn("async queue full, rejecting message")
			d.reply(ctx, ev, msgBusy, logger)
			return
		}
		d.reply(ctx, ev, msgThinking, logger)
		d.spawn(ctx, ev, prompt, logger)
		return
	}

	d.reply(ctx, ev, d.generate(ctx, prompt, logger), logger)
}

// command handles every input that does not reach the gateway.
func (d *Dispatcher) command(ctx context.Context, ev chat.Event, session chat.Session, text string, logger *zap.Logger) (string, bool) {
	lower := strings.ToLower(text)

	if _, ok := backToChatTokens[lower]; ok {
		return backToChat(d.deps.Personas.Resolve(session.PersonaKey)), true
	}
	if _, ok := personaMenuTokens[lower]; ok {
		return personaMenu(d.deps.Personas.List(), session.PersonaKey), true
	}
	if _, ok := toolsMenuTokens[lower]; ok {
		return toolsMenu(d.deps.Tools.List()), true
	}
	if key, ok := selectKey(lower); ok {
		return d.selectPersona(ctx, ev, session, key, logger), true
	}
	if _, ok := statusTokens[lower]; ok {
		return msgStatus, true
	}

	fields := strings.Fields(text)
	if len(fields) > 0 {
		if tool, ok := d.deps.Tools.Lookup(fields[0]); ok {
			out, err := tool.Run(fields[1:])
			if err != nil {
				if !errors.Is(err, tools.ErrUsage) {
					logger.Warn("tool failed", zap.String("tool", tool.Name), zap.Error(err))
				}
				return toolUsage(tool), true
			}
			return out, true
		}
	}
	return "", false
}

func selectKey(lower string) (string, bool) {
	for _, prefix := range selectPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(lower, prefix)), true
		}
	}
	return "", false
}

func (d *Dispatcher) selectPersona(ctx context.Context, ev chat.Event, session chat.Session, key string, logger *zap.Logger) string {
	if key == "" {
		return personaMenu(d.deps.Personas.List(), session.PersonaKey)
	}
	p, ok := d.deps.Personas.FindByID(key)
	if !ok {
		return unknownPersona(key)
	}
	if _, err := d.deps.Sessions.SetPersona(ctx, ev.SessionKey(), p.ID); err != nil {
		logger.Warn("failed to set persona", zap.String("persona", p.ID), zap.Error(err))
		return msgAIUnavailable
	}
	logger.Info("persona selected", zap.String("persona", p.ID))
	return personaSelected(p)
}

// generate asks the gateway within the per-event timeout and post-processes the answer.
func (d *Dispatcher) generate(ctx context.Context, prompt ai.Prompt, logger *zap.Logger) string {
	askCtx, cancel := context.WithTimeout(ctx, d.opts.EventTimeout)
	defer cancel()

	res := d.deps.Gateway.Ask(askCtx, prompt)
	if !res.OK() {
		logger.Warn("gateway failed", zap.Any("attempts", res.Errors))
		return msgAIUnavailable
	}

	body := postprocess.Process(res.Text, postprocess.Policy{StripReasoning: d.opts.Reply.StripReasoning})
	if body == "" {
		logger.Info("empty answer after post-processing", zap.String("provider", res.Provider))
		return msgNoAnswer
	}

	logger.Debug("answered", zap.String("provider", res.Provider), zap.Int("failed_attempts", len(res.Errors)))
	return postprocess.Process(res.Text, d.opts.Reply)
}

// spawn runs generation in the background and pushes the answer to the event's source.
// The caller holds a queue slot; the task releases it.
func (d *Dispatcher) spawn(ctx context.Context, ev chat.Event, prompt ai.Prompt, logger *zap.Logger) {
	taskID := uuid.NewString()
	logger = logger.With(zap.String("task", taskID))
	taskCtx := context.WithoutCancel(ctx)

	d.tasks.Add(1)
	go func() {
		defer d.tasks.Done()
		defer d.queue.Release(1)

		if err := d.sem.Acquire(taskCtx, 1); err != nil {
			logger.Error("failed to acquire worker", zap.Error(err))
			return
		}
		defer d.sem.Release(1)

		text := d.generate(taskCtx, prompt, logger)
		if err := d.deps.Sender.Push(taskCtx, ev.SourceID, text); err != nil {
			logger.Error("push failed", zap.Error(err))
			return
		}
		logger.Debug("pushed answer")
	}()
}

func (d *Dispatcher) reply(ctx context.Context, ev chat.Event, text string, logger *zap.Logger) {
	if ev.ReplyToken == "" {
		if ev.SourceID == "" {
			logger.Warn("event has no reply target, dropping reply")
			return
		}
		if err := d.deps.Sender.Push(ctx, ev.SourceID, text); err != nil {
			logger.Error("push failed", zap.Error(err))
		}
		return
	}
	if err := d.deps.Sender.Reply(ctx, ev.ReplyToken, text); err != nil {
		logger.Error("reply failed", zap.Error(err))
	}
}
