package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/strogmv/forge/internal/domain"
)

const (
	defaultPingInterval = 15 * time.Second
	maxReconnects       = 5
	baseBackoff         = time.Second
	maxBackoff          = 10 * time.Second
)

// backoffDelay returns the reconnect delay for the given attempt:
// min(1s * 2^attempt, 10s). This exponential policy recovers the transport
// and is intentionally separate from the executor's fixed-delay retry, which
// recovers a computation.
func backoffDelay(attempt int) time.Duration {
	d := baseBackoff << attempt
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

// Client is the reconnecting half of the push channel. It subscribes to one
// job's progress stream and invokes OnProgress for every event.
type Client struct {
	URL          string // ws://host/ws/jobs/<jobID>
	OnProgress   func(domain.Progress)
	OnError      func(error)
	PingInterval time.Duration
	Log          *slog.Logger

	dialer  *websocket.Dialer
	backoff func(attempt int) time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewClient(url string, onProgress func(domain.Progress)) *Client {
	return &Client{
		URL:          url,
		OnProgress:   onProgress,
		PingInterval: defaultPingInterval,
		Log:          slog.Default(),
		dialer:       websocket.DefaultDialer,
		backoff:      backoffDelay,
	}
}

// Run connects and consumes progress events until the server closes the
// stream normally, the context is canceled, or the reconnect budget is
// exhausted. On abnormal close it reconnects after backoffDelay(attempt);
// the attempt counter resets to zero on every successful open. After
// maxReconnects failed attempts it returns a terminal transport error.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := c.dialer.DialContext(ctx, c.URL, nil)
		if err != nil {
			attempt++
			if attempt > maxReconnects {
				return c.terminal(fmt.Errorf("push channel: giving up after %d attempts: %w", attempt-1, err))
			}
			c.Log.Warn("push channel dial failed, backing off",
				slog.Int("attempt", attempt),
				slog.Duration("delay", c.backoff(attempt-1)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
			continue
		}

		attempt = 0
		c.setConn(conn)

		normal, err := c.consume(ctx, conn)
		c.setConn(nil)
		if normal || c.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		if attempt > maxReconnects {
			return c.terminal(fmt.Errorf("push channel: giving up after %d attempts: %w", attempt-1, err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt - 1)):
		}
	}
}

// consume reads envelopes off one live connection. It returns normal=true
// only for a clean normal-closure close, which suppresses any reconnect.
func (c *Client) consume(ctx context.Context, conn *websocket.Conn) (normal bool, err error) {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.heartbeat(pingCtx, conn)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, err
		}

		var head controlMsg
		if err := json.Unmarshal(payload, &head); err != nil {
			continue
		}
		switch head.Type {
		case TypeProgress:
			var msg progressMsg
			if err := json.Unmarshal(payload, &msg); err != nil {
				continue
			}
			if c.OnProgress != nil {
				c.OnProgress(msg.Progress)
			}
		case TypeError:
			var msg errorMsg
			if err := json.Unmarshal(payload, &msg); err != nil {
				continue
			}
			if c.OnError != nil {
				c.OnError(fmt.Errorf("server error: %s", msg.Message))
			}
		case TypeConnected, TypePong:
			// Liveness is driven by our own ping ticker; nothing to do.
		}
	}
}

// heartbeat sends the message-framed ping on a fixed interval. The server may
// answer with pong, but the client does not depend on it to stay alive.
func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	interval := c.PingInterval
	if interval <= 0 {
		interval = defaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteJSON(controlMsg{Type: TypePing})
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close performs a normal closure; no reconnect is scheduled afterward.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) terminal(err error) error {
	if c.OnError != nil {
		c.OnError(err)
	}
	return err
}
