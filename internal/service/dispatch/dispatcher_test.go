package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/line-relay/backend/internal/config"
	"github.com/zhouzirui/line-relay/backend/internal/model/chat"
	"github.com/zhouzirui/line-relay/backend/internal/model/persona"
	"github.com/zhouzirui/line-relay/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/line-relay/backend/internal/service/chat"
	"github.com/zhouzirui/line-relay/backend/internal/service/postprocess"
)

type sent struct {
	push   bool
	target string
	text   string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *recordingSender) Reply(_ context.Context, replyToken, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{target: replyToken, text: text})
	return s.err
}

func (s *recordingSender) Push(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{push: true, target: to, text: text})
	return s.err
}

func (s *recordingSender) all() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.sent...)
}

type fakeAsker struct {
	mu      sync.Mutex
	calls   int
	prompts []ai.Prompt
	answer  func(ctx context.Context, prompt ai.Prompt) ai.Result
}

func (f *fakeAsker) Ask(ctx context.Context, prompt ai.Prompt) ai.Result {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	answer := f.answer
	f.mu.Unlock()

	if answer == nil {
		return ai.Result{Text: "ok", Provider: "fake"}
	}
	return answer(ctx, prompt)
}

func (f *fakeAsker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func answering(text string) func(context.Context, ai.Prompt) ai.Result {
	return func(context.Context, ai.Prompt) ai.Result {
		return ai.Result{Text: text, Provider: "fake"}
	}
}

type fixture struct {
	dispatcher *Dispatcher
	sessions   *chatservice.Service
	personas   *persona.MemoryStore
	asker      *fakeAsker
	sender     *recordingSender
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		sessions: chatservice.NewService(),
		personas: persona.NewMemoryStore(persona.Seed()),
		asker:    &fakeAsker{},
		sender:   &recordingSender{},
	}
	f.dispatcher = New(Deps{
		Sessions: f.sessions,
		Personas: f.personas,
		Gateway:  f.asker,
		Sender:   f.sender,
	}, opts, zaptest.NewLogger(t))
	return f
}

func (f *fixture) text(t *testing.T, user, text string) string {
	t.Helper()
	before := len(f.sender.all())
	f.dispatcher.Handle(context.Background(), []chat.Event{chat.NewTextEvent(user, "rt-"+user, text)})
	after := f.sender.all()
	require.Len(t, after, before+1, "expected exactly one reply for %q", text)
	return after[len(after)-1].text
}

func defaultPolicy() postprocess.Policy {
	return postprocess.Policy{MaxChars: 4900, RequiredSuffix: "🤖", StripReasoning: true}
}

func TestFollowGreetsAndCreatesSession(t *testing.T) {
	f := newFixture(t, Options{})

	f.dispatcher.Handle(context.Background(), []chat.Event{{Kind: chat.EventFollow, SourceID: "U1", UserID: "U1", ReplyToken: "rt"}})

	out := f.sender.all()
	require.Len(t, out, 1)
	assert.Equal(t, "rt", out[0].target)
	assert.True(t, strings.HasPrefix(out[0].text, msgGreeting))

	session, ok := f.sessions.GetSession(context.Background(), "U1")
	require.True(t, ok)
	assert.Equal(t, persona.DefaultID, session.PersonaKey)
	assert.Zero(t, f.asker.callCount())
}

func TestJoinUsesSourceAsSessionKey(t *testing.T) {
	f := newFixture(t, Options{})

	f.dispatcher.Handle(context.Background(), []chat.Event{{Kind: chat.EventJoin, SourceID: "G1", ReplyToken: "rt"}})

	require.Len(t, f.sender.all(), 1)
	_, ok := f.sessions.GetSession(context.Background(), "G1")
	assert.True(t, ok)
}

func TestMenuListsPersonasRegardlessOfCurrent(t *testing.T) {
	f := newFixture(t, Options{})
	f.text(t, "U1", "เลือกteacher")

	for _, token := range []string{"เมนู", " MENU ", "persona"} {
		out := f.text(t, "U1", token)
		for _, p := range persona.Seed() {
			assert.Contains(t, out, p.Label())
		}
	}
	assert.Zero(t, f.asker.callCount())
}

func TestSelectKnownPersona(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.text(t, "U1", "เลือกteacher")
	teacher, _ := f.personas.FindByID("teacher")
	assert.Equal(t, personaSelected(teacher), out)

	session, _ := f.sessions.GetSession(context.Background(), "U1")
	assert.Equal(t, "teacher", session.PersonaKey)

	f.text(t, "U1", "select  Friend")
	session, _ = f.sessions.GetSession(context.Background(), "U1")
	assert.Equal(t, "friend", session.PersonaKey)

	f.text(t, "U1", "เลือก coder")
	session, _ = f.sessions.GetSession(context.Background(), "U1")
	assert.Equal(t, "coder", session.PersonaKey)

	assert.Zero(t, f.asker.callCount())
}

func TestSelectUnknownPersona(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.text(t, "U1", "เลือกbogus")
	assert.Equal(t, unknownPersona("bogus"), out)

	session, _ := f.sessions.GetSession(context.Background(), "U1")
	assert.Equal(t, persona.DefaultID, session.PersonaKey)
	assert.Zero(t, f.asker.callCount())
}

func TestBackToChatNamesCurrentPersona(t *testing.T) {
	f := newFixture(t, Options{})
	f.text(t, "U1", "เลือกpoet")

	poet, _ := f.personas.FindByID("poet")
	assert.Equal(t, backToChat(poet), f.text(t, "U1", " แชท "))
	assert.Equal(t, backToChat(poet), f.text(t, "U1", "Back"))
}

func TestToolsMenuAndStatus(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.text(t, "U1", "เครื่องมือ")
	assert.Contains(t, out, "bmi")
	assert.Contains(t, out, "loan")

	assert.Equal(t, msgStatus, f.text(t, "U1", "PING"))
	assert.Equal(t, msgStatus, f.text(t, "U1", "เช็คบอท"))
	assert.Zero(t, f.asker.callCount())
}

func TestBMICommandSkipsGateway(t *testing.T) {
	f := newFixture(t, Options{})

	assert.Equal(t, "BMI = 22.9 (ปกติ)", f.text(t, "U1", "BMI 70 175"))
	assert.Contains(t, f.text(t, "U1", "bmi seventy"), "วิธีใช้: bmi")
	assert.Zero(t, f.asker.callCount())
}

func TestFreeTextGoesThroughGateway(t *testing.T) {
	f := newFixture(t, Options{Reply: defaultPolicy()})
	f.asker.answer = answering("<think>plan</think>สวัสดีค่ะ ยินดีที่ได้รู้จัก!")

	out := f.text(t, "U1", "สวัสดี")
	assert.Equal(t, "สวัสดีค่ะ ยินดีที่ได้รู้จัก 🤖", out)
	assert.True(t, strings.HasSuffix(out, "🤖"))

	require.Equal(t, 1, f.asker.callCount())
	prompt := f.asker.prompts[0]
	assert.Equal(t, "สวัสดี", prompt.User)
	general, _ := f.personas.FindByID(persona.DefaultID)
	assert.Contains(t, prompt.System, general.Style)
	assert.Contains(t, prompt.System, ai.BaseDirective)
}

func TestFreeTextUsesSelectedPersona(t *testing.T) {
	f := newFixture(t, Options{Reply: defaultPolicy()})
	f.text(t, "U1", "เลือกteacher")
	f.text(t, "U1", "อธิบายแรงโน้มถ่วง")

	teacher, _ := f.personas.FindByID("teacher")
	require.Len(t, f.asker.prompts, 1)
	assert.Contains(t, f.asker.prompts[0].System, teacher.Style)
}

func TestGatewayFailureApologizes(t *testing.T) {
	f := newFixture(t, Options{Reply: defaultPolicy()})
	f.asker.answer = func(context.Context, ai.Prompt) ai.Result {
		return ai.Result{Errors: []ai.Attempt{{Provider: "a", Message: "down"}}}
	}

	assert.Equal(t, msgAIUnavailable, f.text(t, "U1", "คำถาม"))
}

func TestReasoningOnlyAnswer(t *testing.T) {
	f := newFixture(t, Options{Reply: defaultPolicy()})
	f.asker.answer = answering("<think>nothing to say</think>  ")

	assert.Equal(t, msgNoAnswer, f.text(t, "U1", "คำถาม"))
}

func TestPerEventTimeout(t *testing.T) {
	f := newFixture(t, Options{EventTimeout: 20 * time.Millisecond})
	f.asker.answer = func(ctx context.Context, _ ai.Prompt) ai.Result {
		<-ctx.Done()
		return ai.Result{Errors: []ai.Attempt{{Provider: "slow", Message: ctx.Err().Error()}}}
	}

	assert.Equal(t, msgAIUnavailable, f.text(t, "U1", "ช้า"))
}

func TestNonTextAndOtherEvents(t *testing.T) {
	f := newFixture(t, Options{})

	f.dispatcher.Handle(context.Background(), []chat.Event{
		{Kind: chat.EventMessage, SourceID: "U1", UserID: "U1", ReplyToken: "rt1", MessageType: "sticker"},
		{Kind: chat.EventOther, SourceID: "U1", UserID: "U1"},
	})

	out := f.sender.all()
	require.Len(t, out, 1)
	assert.Equal(t, msgTextOnly, out[0].text)
}

func TestBatchProcessedInOrder(t *testing.T) {
	f := newFixture(t, Options{})

	f.dispatcher.Handle(context.Background(), []chat.Event{
		chat.NewTextEvent("U1", "rt1", "ping"),
		chat.NewTextEvent("U2", "rt2", "เลือกfriend"),
		chat.NewTextEvent("U1", "rt3", "status"),
	})

	out := f.sender.all()
	require.Len(t, out, 3)
	assert.Equal(t, []string{"rt1", "rt2", "rt3"}, []string{out[0].target, out[1].target, out[2].target})
}

func TestSendFailureDoesNotStopBatch(t *testing.T) {
	f := newFixture(t, Options{})
	f.sender.err = errors.New("invalid reply token")

	f.dispatcher.Handle(context.Background(), []chat.Event{
		chat.NewTextEvent("U1", "rt1", "ping"),
		chat.NewTextEvent("U1", "rt2", "ping"),
	})

	assert.Len(t, f.sender.all(), 2)
}

func TestAsyncModeAcknowledgesThenPushes(t *testing.T) {
	f := newFixture(t, Options{Mode: config.ModeAsync, AsyncWorkers: 2, Reply: defaultPolicy()})
	f.asker.answer = answering("คำตอบ")

	f.dispatcher.Handle(context.Background(), []chat.Event{
		chat.NewTextEvent("U1", "rt1", "คำถามยาว"),
		chat.NewTextEvent("U1", "rt2", "ping"),
	})
	f.dispatcher.Wait()

	out := f.sender.all()
	require.Len(t, out, 3)

	var replies, pushes []sent
	for _, s := range out {
		if s.push {
			pushes = append(pushes, s)
		} else {
			replies = append(replies, s)
		}
	}
	require.Len(t, replies, 2)
	assert.Equal(t, sent{target: "rt1", text: msgThinking}, replies[0])
	assert.Equal(t, sent{target: "rt2", text: msgStatus}, replies[1])
	require.Len(t, pushes, 1)
	assert.Equal(t, sent{push: true, target: "U1", text: "คำตอบ 🤖"}, pushes[0])
}

func TestAsyncModeRejectsWhenQueueIsFull(t *testing.T) {
	f := newFixture(t, Options{Mode: config.ModeAsync, AsyncWorkers: 1, AsyncQueue: 1, Reply: defaultPolicy()})
	release := make(chan struct{})
	f.asker.answer = func(context.Context, ai.Prompt) ai.Result {
		<-release
		return ai.Result{Text: "คำตอบ", Provider: "fake"}
	}

	f.dispatcher.Handle(context.Background(), []chat.Event{
		chat.NewTextEvent("U1", "rt1", "คำถามแรก"),
		chat.NewTextEvent("U2", "rt2", "คำถามที่สอง"),
	})

	out := f.sender.all()
	require.Len(t, out, 2)
	assert.Equal(t, sent{target: "rt1", text: msgThinking}, out[0])
	assert.Equal(t, sent{target: "rt2", text: msgBusy}, out[1])

	close(release)
	f.dispatcher.Wait()

	f.dispatcher.Handle(context.Background(), []chat.Event{chat.NewTextEvent("U2", "rt3", "คำถามที่สอง")})
	f.dispatcher.Wait()

	out = f.sender.all()
	require.Len(t, out, 5)
	assert.Equal(t, sent{push: true, target: "U1", text: "คำตอบ 🤖"}, out[2])
	assert.Equal(t, sent{target: "rt3", text: msgThinking}, out[3])
	assert.Equal(t, sent{push: true, target: "U2", text: "คำตอบ 🤖"}, out[4])
	assert.Equal(t, 2, f.asker.callCount())
}

func TestAsyncModeSurvivesCanceledRequest(t *testing.T) {
	f := newFixture(t, Options{Mode: config.ModeAsync})
	ctx, cancel := context.WithCancel(context.Background())

	f.dispatcher.Handle(ctx, []chat.Event{chat.NewTextEvent("U1", "rt1", "คำถาม")})
	cancel()
	f.dispatcher.Wait()

	out := f.sender.all()
	require.Len(t, out, 2)
	assert.Equal(t, sent{push: true, target: "U1", text: "ok"}, out[1])
}

func TestWithSenderSharesState(t *testing.T) {
	f := newFixture(t, Options{})
	other := &recordingSender{}

	f.dispatcher.WithSender(other).Handle(context.Background(), []chat.Event{chat.NewTextEvent("U1", "rt", "เลือกcoder")})

	assert.Len(t, other.all(), 1)
	assert.Empty(t, f.sender.all())
	session, _ := f.sessions.GetSession(context.Background(), "U1")
	assert.Equal(t, "coder", session.PersonaKey)
}
