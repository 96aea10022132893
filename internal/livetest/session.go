// Package livetest runs an unsaved agent draft against the model. Messages
// go out over HTTP and replies come back on a realtime event named after an
// ephemeral token.
package livetest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"agentai-console/internal/form"
	"agentai-console/internal/realtime"
	"agentai-console/pkg/models"

	"github.com/google/uuid"
	"github.com/mudler/xlog"
	"github.com/pkg/errors"
)

var (
	ErrEmptyDraft = errors.New("message is empty")
	ErrNotOpen    = errors.New("test session is not open")
)

// ErrorField is the form field that test failures are reported on.
const ErrorField = "content"

const testFailedMessage = "internal error processing the test"

// Tester posts a test message for a draft.
type Tester interface {
	TestAgent(ctx context.Context, req models.TestRequest) error
}

// Listener receives everything a session or modal produces.
type Listener interface {
	OnMessage(msg models.TestMessage)
	OnError(field, message string)
	OnAccounts(accounts []models.AccountIg)
}

type State int

const (
	StateIdle State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

type Session struct {
	ch       realtime.Channel
	tester   Tester
	listener Listener
	newToken func() string

	mu         sync.Mutex
	state      State
	token      string
	sub        realtime.Subscription
	transcript []models.TestMessage

	pending sync.WaitGroup
}

func NewSession(ch realtime.Channel, tester Tester, listener Listener) *Session {
	return &Session{
		ch:       ch,
		tester:   tester,
		listener: listener,
		newToken: uuid.NewString,
	}
}

// Open starts a conversation under a fresh token. Any previous token is
// released first, so at most one subscription exists per session.
func (s *Session) Open() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	token := s.newToken()
	s.token = token
	s.transcript = nil
	s.sub = s.ch.Subscribe(models.TestEvent(token), s.receive(token))
	s.state = StateOpen

	xlog.Debug("Test session opened", "token", token)
	return token
}

func (s *Session) receive(token string) realtime.Handler {
	return func(data json.RawMessage) {
		var msg models.TestMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			xlog.Warn("Dropping malformed test reply", "token", token, "error", err)
			return
		}
		if !s.appendIfCurrent(token, msg) {
			return
		}
		if s.listener != nil {
			s.listener.OnMessage(msg)
		}
	}
}

func (s *Session) appendIfCurrent(token string, msg models.TestMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen || s.token != token {
		return false
	}
	s.transcript = append(s.transcript, msg)
	return true
}

// SendDraft appends the user's text and posts it with the draft. The post
// completes in the background; its failure is reported to the listener and
// leaves the session open.
func (s *Session) SendDraft(ctx context.Context, text string, snap form.DraftSnapshot) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDraft
	}

	msg := models.TestMessage{Role: models.RoleUser, Content: text}
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	token := s.token
	s.transcript = append(s.transcript, msg)
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.OnMessage(msg)
	}

	req := models.TestRequest{Agent: snap.Agent, Content: text, TokenTest: token}
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.tester.TestAgent(ctx, req); err != nil {
			xlog.Error("Agent test request failed", "token", token, "error", err)
			if s.current(token) && s.listener != nil {
				s.listener.OnError(ErrorField, testFailedMessage)
			}
		}
	}()
	return nil
}

func (s *Session) current(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateOpen && s.token == token
}

// Clear asks the server to forget the conversation, then empties the
// transcript. A failed emit leaves the transcript intact.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrNotOpen
	}
	token := s.token
	s.mu.Unlock()

	if err := s.ch.Emit(ctx, models.EventClearTokenTest, token); err != nil {
		return errors.Wrap(err, "clear test token")
	}

	s.mu.Lock()
	if s.token == token {
		s.transcript = nil
	}
	s.mu.Unlock()
	return nil
}

// Close releases the token subscription. Later replies are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.state = StateClosed
	s.token = ""
}

// Wait blocks until background test posts have returned.
func (s *Session) Wait() {
	s.pending.Wait()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Transcript() []models.TestMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TestMessage(nil), s.transcript...)
}
