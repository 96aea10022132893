// Package ws is the browser-facing WebSocket hub. Each socket belongs to one
// open agent modal and carries its live test session, while cache and
// connection status events fan out to every socket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"agentai-console/internal/form"
	"agentai-console/internal/livetest"
	"agentai-console/internal/realtime"
	"agentai-console/pkg/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mudler/xlog"
)

// Events sent to the browser.
const (
	EventTestSession = "test:session"
	EventTestMessage = "test:message"
	EventTestError   = "test:error"
	EventAccounts    = "accounts"
	EventStatus      = "status-connection"
	EventInvalidate  = "invalidate"
)

// Events received from the browser.
const (
	EventTestSend   = "test:send"
	EventTestClear  = "test:clear"
	EventTestReopen = "test:reopen"
)

const (
	maxMessageSize = 1 << 20
	emitTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client represents a connected browser modal
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	modal *livetest.Modal

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	ch     realtime.Channel
	tester livetest.Tester

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub(ch realtime.Channel, tester livetest.Tester) *Hub {
	return &Hub{
		ch:         ch,
		tester:     tester,
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			xlog.Debug("WebSocket client registered", "modal", client.modal.ID)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
			}
			h.mu.Unlock()
			xlog.Debug("WebSocket client unregistered", "modal", client.modal.ID)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.deliver(message) {
					client.shutdown()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports the registered sockets.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// testSend is the payload of test:send. Draft is the wizard state at the
// time of sending.
type testSend struct {
	Content string                  `json:"content"`
	Draft   form.AgentCreationInput `json:"draft"`
}

type sessionInfo struct {
	ModalID string `json:"modalId"`
	Token   string `json:"token"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func encode(eventType string, data interface{}) ([]byte, bool) {
	payload, err := json.Marshal(WSEvent{Type: eventType, Data: data})
	if err != nil {
		xlog.Error("Error marshaling WS event", "type", eventType, "error", err)
		return nil, false
	}
	return payload, true
}

func (h *Hub) BroadcastEvent(eventType string, data interface{}) {
	if payload, ok := encode(eventType, data); ok {
		h.broadcast <- payload
	}
}

// NotifyStatus relays a connection status change to every browser.
func (h *Hub) NotifyStatus(status models.StatusConnection) {
	h.BroadcastEvent(EventStatus, status)
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	modalID := r.URL.Query().Get("modal_id")
	if modalID == "" {
		modalID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		xlog.Error("WebSocket upgrade error", "error", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	client.modal = livetest.NewModal(modalID, h.ch, h.tester, client)

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	if err := client.modal.Open(ctx); err != nil {
		xlog.Warn("Modal opened without realtime join", "modal", modalID, "error", err)
	}
	cancel()
	client.announce()

	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

// deliver queues a frame without blocking. It reports false when the
// client is gone or too slow.
func (c *Client) deliver(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) emit(eventType string, data interface{}) {
	if payload, ok := encode(eventType, data); ok {
		c.deliver(payload)
	}
}

func (c *Client) announce() {
	c.emit(EventTestSession, sessionInfo{ModalID: c.modal.ID, Token: c.modal.Session.Token()})
}

func (c *Client) OnMessage(msg models.TestMessage) {
	c.emit(EventTestMessage, msg)
}

func (c *Client) OnError(field, message string) {
	c.emit(EventTestError, fieldError{Field: field, Message: message})
}

func (c *Client) OnAccounts(accounts []models.AccountIg) {
	c.emit(EventAccounts, accounts)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := c.modal.Close(ctx); err != nil {
			xlog.Debug("Modal closed without realtime exit", "modal", c.modal.ID, "error", err)
		}
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		xlog.Debug("Ignoring malformed browser event", "modal", c.modal.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	session := c.modal.Session

	switch ev.Type {
	case EventTestSend:
		var in testSend
		if err := json.Unmarshal(ev.Data, &in); err != nil {
			c.OnError(livetest.ErrorField, "invalid test message")
			return
		}
		if err := session.SendDraft(ctx, in.Content, in.Draft.Snapshot()); err != nil {
			c.OnError(livetest.ErrorField, err.Error())
		}
	case EventTestClear:
		if err := session.Clear(ctx); err != nil {
			xlog.Warn("Failed to clear test session", "modal", c.modal.ID, "error", err)
		}
	case EventTestReopen:
		session.Open()
		c.announce()
	default:
		xlog.Debug("Ignoring unknown browser event", "modal", c.modal.ID, "type", ev.Type)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
