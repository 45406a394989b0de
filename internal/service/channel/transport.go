package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is the slice of a websocket connection the channel relies on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a Conn to target.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

// TransportOptions tunes the websocket dialer.
type TransportOptions struct {
	HandshakeTimeout time.Duration // 0 waits for the handshake indefinitely
	ReadTimeout      time.Duration // only enforced while pings are enabled
	WriteTimeout     time.Duration
	PingInterval     time.Duration // 0 disables keepalive pings
	Header           http.Header
}

// DefaultTransportOptions mirrors the keepalive cadence used by the conversation server.
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// WebSocketDialer dials gorilla websocket connections.
type WebSocketDialer struct {
	opts TransportOptions
}

// NewWebSocketDialer creates a dialer with opts.
func NewWebSocketDialer(opts TransportOptions) *WebSocketDialer {
	return &WebSocketDialer{opts: opts}
}

// Dial performs the websocket handshake and starts the keepalive loop.
func (d *WebSocketDialer) Dial(ctx context.Context, target string) (Conn, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.opts.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, target, d.opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	wc := &wsConn{
		Conn: conn,
		opts: d.opts,
		done: make(chan struct{}),
	}

	if d.opts.PingInterval > 0 {
		wc.extendReadDeadline()
		conn.SetPongHandler(func(string) error {
			wc.extendReadDeadline()
			return nil
		})
		go wc.pingLoop()
	}

	return wc, nil
}

type wsConn struct {
	*websocket.Conn
	opts      TransportOptions
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	messageType, payload, err := c.Conn.ReadMessage()
	if err == nil && c.opts.PingInterval > 0 {
		c.extendReadDeadline()
	}
	return messageType, payload, err
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	if c.opts.WriteTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	return c.Conn.WriteMessage(messageType, data)
}

// Close sends a normal close frame, best effort, and releases the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) extendReadDeadline() {
	if c.opts.ReadTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
}

// pingLoop 定期发送ping消息
func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if c.opts.WriteTimeout <= 0 {
				deadline = time.Now().Add(10 * time.Second)
			}
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Str("component", "channel").Msg("keepalive ping failed")
				return
			}
		}
	}
}
