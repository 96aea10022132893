package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mudler/xlog"
	"github.com/pkg/errors"
)

var ErrNotConnected = errors.New("realtime: not connected")

const (
	writeWait      = 10 * time.Second
	minBackoff     = time.Second
	maxBackoff     = 30 * time.Second
	maxMessageSize = 1 << 20
)

// Client is a Channel over the platform's WebSocket endpoint. Subscriptions
// survive reconnects; emits fail while disconnected.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	reg    *registry

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(url, token string) *Client {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &Client{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reg:    newRegistry(),
	}
}

func (c *Client) Subscribe(event string, h Handler) Subscription {
	return c.reg.add(event, h)
}

func (c *Client) Emit(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", event)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return errors.Wrapf(err, "marshal envelope %s", event)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return errors.Wrapf(err, "emit %s", event)
	}
	return nil
}

// Run keeps the connection alive until ctx is done.
func (c *Client) Run(ctx context.Context) {
	backoff := minBackoff
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			xlog.Warn("Realtime dial failed", "url", c.url, "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		xlog.Info("Realtime connected", "url", c.url)
		backoff = minBackoff
		c.setConn(conn)

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		c.readPump(conn)
		close(done)
		c.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		xlog.Warn("Realtime connection lost, reconnecting")
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				xlog.Warn("Realtime read error", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			xlog.Debug("Dropping malformed realtime frame", "error", err)
			continue
		}
		if n := c.reg.dispatch(env.Event, env.Data); n == 0 {
			xlog.Debug("Realtime event without subscribers", "event", env.Event)
		}
	}
}
