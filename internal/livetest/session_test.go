package livetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"agentai-console/internal/form"
	"agentai-console/internal/realtime"
	"agentai-console/pkg/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTester struct {
	mu   sync.Mutex
	reqs []models.TestRequest
	err  error
}

func (f *fakeTester) TestAgent(_ context.Context, req models.TestRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

type recorder struct {
	mu       sync.Mutex
	messages []models.TestMessage
	errs     map[string]string
	accounts [][]models.AccountIg
}

func newRecorder() *recorder { return &recorder{errs: map[string]string{}} }

func (r *recorder) OnMessage(msg models.TestMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) OnError(field, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[field] = message
}

func (r *recorder) OnAccounts(accounts []models.AccountIg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append(r.accounts, accounts)
}

func sequentialTokens(s *Session) {
	n := 0
	s.newToken = func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}
}

func TestSession_OpenSubscribesToken(t *testing.T) {
	bus := realtime.NewBus()
	s := NewSession(bus, &fakeTester{}, nil)
	sequentialTokens(s)

	assert.Equal(t, StateIdle, s.State())
	token := s.Open()
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, 1, bus.Subscribers("test-agent-tok-1"))
}

func TestSession_ReopenRotatesToken(t *testing.T) {
	bus := realtime.NewBus()
	rec := newRecorder()
	s := NewSession(bus, &fakeTester{}, rec)
	sequentialTokens(s)

	s.Open()
	s.Open()

	assert.Equal(t, 0, bus.Subscribers("test-agent-tok-1"))
	assert.Equal(t, 1, bus.Subscribers("test-agent-tok-2"))

	require.NoError(t, bus.Publish("test-agent-tok-1", models.TestMessage{Role: models.RoleAgent, Content: "stale"}))
	require.NoError(t, bus.Publish("test-agent-tok-2", models.TestMessage{Role: models.RoleAgent, Content: "fresh"}))

	assert.Equal(t, []models.TestMessage{{Role: models.RoleAgent, Content: "fresh"}}, s.Transcript())
	assert.Len(t, rec.messages, 1)
}

func TestSession_SendDraft(t *testing.T) {
	bus := realtime.NewBus()
	tester := &fakeTester{}
	rec := newRecorder()
	s := NewSession(bus, tester, rec)
	sequentialTokens(s)
	s.Open()

	snap := form.DraftSnapshot{Agent: models.Agent{Name: "Draft", Model: "gpt-4o-mini", Personality: "calm"}}
	require.NoError(t, s.SendDraft(context.Background(), "hello", snap))
	s.Wait()

	require.Len(t, tester.reqs, 1)
	assert.Equal(t, "hello", tester.reqs[0].Content)
	assert.Equal(t, "tok-1", tester.reqs[0].TokenTest)
	assert.Equal(t, "calm", tester.reqs[0].Personality)

	require.NoError(t, bus.Publish("test-agent-tok-1", models.TestMessage{Role: models.RoleAgent, Content: "hi there"}))
	require.NoError(t, bus.Publish("test-agent-tok-1", models.TestMessage{Role: models.RoleSystem, Content: "tool used"}))

	assert.Equal(t, []models.TestMessage{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAgent, Content: "hi there"},
		{Role: models.RoleSystem, Content: "tool used"},
	}, s.Transcript())
	assert.Empty(t, rec.errs)
}

func TestSession_SendDraftRejectsBlank(t *testing.T) {
	tester := &fakeTester{}
	s := NewSession(realtime.NewBus(), tester, nil)
	s.Open()

	assert.ErrorIs(t, s.SendDraft(context.Background(), "  \n", form.DraftSnapshot{}), ErrEmptyDraft)
	assert.Empty(t, s.Transcript())
	assert.Empty(t, tester.reqs)
}

func TestSession_SendDraftRequiresOpen(t *testing.T) {
	s := NewSession(realtime.NewBus(), &fakeTester{}, nil)
	assert.ErrorIs(t, s.SendDraft(context.Background(), "hi", form.DraftSnapshot{}), ErrNotOpen)
}

func TestSession_TestFailureReportedAsFieldError(t *testing.T) {
	tester := &fakeTester{err: errors.New("502 bad gateway")}
	rec := newRecorder()
	s := NewSession(realtime.NewBus(), tester, rec)
	s.Open()

	require.NoError(t, s.SendDraft(context.Background(), "hello", form.DraftSnapshot{}))
	s.Wait()

	assert.Equal(t, testFailedMessage, rec.errs[ErrorField])
	assert.Equal(t, StateOpen, s.State())
	assert.Len(t, s.Transcript(), 1)
}

func TestSession_Clear(t *testing.T) {
	bus := realtime.NewBus()
	s := NewSession(bus, &fakeTester{}, nil)
	sequentialTokens(s)
	s.Open()
	require.NoError(t, s.SendDraft(context.Background(), "hello", form.DraftSnapshot{}))
	s.Wait()

	require.NoError(t, s.Clear(context.Background()))
	assert.Empty(t, s.Transcript())

	emitted := bus.Emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, models.EventClearTokenTest, emitted[0].Event)
	assert.JSONEq(t, `"tok-1"`, string(emitted[0].Data))
}

func TestSession_ClearKeepsTranscriptWhenEmitFails(t *testing.T) {
	bus := realtime.NewBus()
	s := NewSession(bus, &fakeTester{}, nil)
	s.Open()
	require.NoError(t, s.SendDraft(context.Background(), "hello", form.DraftSnapshot{}))
	s.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Clear(ctx))

	assert.Len(t, s.Transcript(), 1)
	assert.Empty(t, bus.Emitted())
}

func TestSession_CloseIsIdempotentAndDropsReplies(t *testing.T) {
	bus := realtime.NewBus()
	rec := newRecorder()
	s := NewSession(bus, &fakeTester{}, rec)
	sequentialTokens(s)
	s.Open()

	s.Close()
	s.Close()

	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 0, bus.Subscribers("test-agent-tok-1"))

	require.NoError(t, bus.Publish("test-agent-tok-1", models.TestMessage{Role: models.RoleAgent, Content: "late"}))
	assert.Empty(t, s.Transcript())
	assert.Empty(t, rec.messages)
	assert.ErrorIs(t, s.Clear(context.Background()), ErrNotOpen)
}

func TestModal_Lifecycle(t *testing.T) {
	bus := realtime.NewBus()
	rec := newRecorder()
	m := NewModal("modal-9", bus, &fakeTester{}, rec)

	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, 1, bus.Subscribers(models.EventAccounts))
	assert.Equal(t, StateOpen, m.Session.State())

	require.NoError(t, bus.Publish(models.EventAccounts, []models.AccountIg{{ID: "1789", Username: "shop"}}))
	require.Len(t, rec.accounts, 1)
	assert.Equal(t, "shop", rec.accounts[0][0].Username)

	require.NoError(t, m.Close(context.Background()))
	require.NoError(t, m.Close(context.Background()))
	assert.Equal(t, 0, bus.Subscribers(models.EventAccounts))
	assert.Equal(t, StateClosed, m.Session.State())

	var events []string
	for _, e := range bus.Emitted() {
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{models.EventJoinModal, models.EventExitModal}, events)
}
