package livetest

import (
	"context"
	"encoding/json"
	"sync"

	"agentai-console/internal/realtime"
	"agentai-console/pkg/models"

	"github.com/mudler/xlog"
	"github.com/pkg/errors"
)

// Modal is the realtime side of one open create or edit dialog: the modal
// room on the server, the Instagram accounts feed and the test session.
type Modal struct {
	ID      string
	Session *Session

	ch       realtime.Channel
	listener Listener

	mu       sync.Mutex
	accounts realtime.Subscription
	closed   bool
}

func NewModal(id string, ch realtime.Channel, tester Tester, listener Listener) *Modal {
	return &Modal{
		ID:       id,
		Session:  NewSession(ch, tester, listener),
		ch:       ch,
		listener: listener,
	}
}

// Open subscribes the accounts feed, opens the test session and joins the
// modal room. The session is usable even when the join could not be sent.
func (m *Modal) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.accounts == nil {
		m.accounts = m.ch.Subscribe(models.EventAccounts, m.onAccounts)
	}
	m.mu.Unlock()

	m.Session.Open()
	return errors.Wrap(m.ch.Emit(ctx, models.EventJoinModal, m.ID), "join modal")
}

func (m *Modal) onAccounts(data json.RawMessage) {
	var accounts []models.AccountIg
	if err := json.Unmarshal(data, &accounts); err != nil {
		xlog.Warn("Dropping malformed accounts event", "modal", m.ID, "error", err)
		return
	}
	if m.listener != nil {
		m.listener.OnAccounts(accounts)
	}
}

// Close tears the modal down once. Later calls return nil.
func (m *Modal) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.accounts != nil {
		m.accounts.Unsubscribe()
		m.accounts = nil
	}
	m.mu.Unlock()

	m.Session.Close()
	return errors.Wrap(m.ch.Emit(ctx, models.EventExitModal, m.ID), "exit modal")
}
