package channel

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/model/conversation"
)

// Option customizes handles opened by a Channel.
type Option func(*settings)

type settings struct {
	bufferLimit int
}

// WithBufferLimit keeps at most n messages per handle, evicting the oldest first.
// n <= 0 keeps every message.
func WithBufferLimit(n int) Option {
	return func(s *settings) {
		s.bufferLimit = n
	}
}

// Channel owns the conversation connection of one view. It holds at most one live
// handle: opening a new conversation closes the previous one.
type Channel struct {
	endpoint Endpoint
	dialer   Dialer
	sink     Sink
	settings settings

	mu      sync.Mutex
	current *Handle
}

// New creates a Channel. A nil sink discards notifications.
func New(endpoint Endpoint, dialer Dialer, sink Sink, opts ...Option) *Channel {
	if sink == nil {
		sink = NopSink{}
	}
	ch := &Channel{
		endpoint: endpoint,
		dialer:   dialer,
		sink:     sink,
	}
	for _, opt := range opts {
		opt(&ch.settings)
	}
	return ch
}

// Open starts a conversation and returns immediately. When req or cred fail validation
// nothing is dialed and the returned handle stays Idle with Skipped set.
func (c *Channel) Open(req conversation.Request, cred conversation.Credential) *Handle {
	h := &Handle{
		id:    uuid.NewString(),
		req:   req,
		sink:  c.sink,
		state: conversation.StateIdle,
		buf:   newBuffer(c.settings.bufferLimit),
		done:  make(chan struct{}),
	}

	if err := req.Validate(cred); err != nil {
		h.skipped = err
		close(h.done)
		log.Debug().Str("component", "channel").Str("topic_id", req.TopicID).Err(err).Msg("open skipped")
		if notifier, ok := c.sink.(SkipNotifier); ok {
			notifier.OnSkipped(err)
		}
		return h
	}

	// h must be fully initialised before other goroutines can reach it via Current.
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.state = conversation.StateConnecting

	c.mu.Lock()
	prev := c.current
	c.current = h
	c.mu.Unlock()
	prev.Close()

	target := c.endpoint.ConversationURL(req)
	go h.run(ctx, c.dialer, target, cred)
	return h
}

// Close tears down h and forgets it if it is the current handle. Safe on nil.
func (c *Channel) Close(h *Handle) {
	h.Close()

	c.mu.Lock()
	if c.current == h {
		c.current = nil
	}
	c.mu.Unlock()
}

// Current returns the handle most recently opened, or nil.
func (c *Channel) Current() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Handle is one conversation attempt: one connection, one transcript.
type Handle struct {
	id      string
	req     conversation.Request
	sink    Sink
	skipped error
	cancel  context.CancelFunc
	done    chan struct{}

	mu         sync.Mutex
	state      conversation.State
	conn       Conn
	buf        *buffer
	err        error
	localClose bool
	closedFrom conversation.State
	writeMu    sync.Mutex
}

// ID identifies the handle in logs.
func (h *Handle) ID() string {
	return h.id
}

// Request returns the request the handle was opened with.
func (h *Handle) Request() conversation.Request {
	return h.req
}

// Skipped returns the validation failure that suppressed the open, or nil.
func (h *Handle) Skipped() error {
	return h.skipped
}

// State returns the current lifecycle state.
func (h *Handle) State() conversation.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the transport error that moved the handle to Errored, or nil.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Messages returns a snapshot of the transcript in arrival order.
func (h *Handle) Messages() []conversation.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.snapshot()
}

// Done is closed once the handle's event loop has exited and the sink has seen the
// terminal notification. For skipped handles it is closed from the start.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Close tears the connection down. It is idempotent, safe on nil, safe on a handle that
// was never opened, and may be called from sink callbacks.
func (h *Handle) Close() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if h.state == conversation.StateIdle || h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.localClose = true
	h.closedFrom = h.state
	h.state = conversation.StateClosed
	conn := h.conn
	h.mu.Unlock()

	h.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	log.Debug().Str("component", "channel").Str("handle", h.id).Msg("closed locally")
}

// Send records text as a local message and writes it to the peer. The message is
// sequenced before the write so any reply to it sorts after it. A failed write is
// reported but the message stays in the transcript.
func (h *Handle) Send(text string) error {
	h.mu.Lock()
	if h.state != conversation.StateReceiving {
		h.mu.Unlock()
		return ErrNotReceiving
	}
	conn := h.conn
	h.buf.append(conversation.SenderLocal, text)
	h.mu.Unlock()

	if err := h.write(conn, []byte(text)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (h *Handle) run(ctx context.Context, dialer Dialer, target string, cred conversation.Credential) {
	defer close(h.done)
	defer h.cancel()

	h.notifyState(conversation.StateIdle, conversation.StateConnecting)
	logger := log.With().Str("component", "channel").Str("handle", h.id).Str("topic_id", h.req.TopicID).Logger()
	logger.Debug().Str("target", target).Msg("dialing")

	conn, err := dialer.Dial(ctx, target)
	if err != nil {
		h.finish(&TransportError{Op: "dial", Err: err})
		return
	}

	h.mu.Lock()
	if h.localClose {
		h.mu.Unlock()
		_ = conn.Close()
		h.finish(nil)
		return
	}
	h.conn = conn
	h.state = conversation.StateAuthenticated
	h.mu.Unlock()
	h.notifyState(conversation.StateConnecting, conversation.StateAuthenticated)

	payload, err := json.Marshal(conversation.NewAuthEnvelope(cred))
	if err != nil {
		h.finish(&TransportError{Op: "auth", Err: err})
		return
	}
	if err := h.write(conn, payload); err != nil {
		h.finish(&TransportError{Op: "auth", Err: err})
		return
	}

	if !h.advance(conversation.StateAuthenticated, conversation.StateReceiving) {
		h.finish(nil)
		return
	}
	logger.Info().Msg("conversation connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if isRemoteClose(err) {
				h.finish(nil)
			} else {
				h.finish(&TransportError{Op: "read", Err: err})
			}
			return
		}
		h.deliver(string(data))
	}
}

func (h *Handle) write(conn Conn, data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handle) advance(from, to conversation.State) bool {
	h.mu.Lock()
	if h.state != from {
		h.mu.Unlock()
		return false
	}
	h.state = to
	h.mu.Unlock()
	h.notifyState(from, to)
	return true
}

func (h *Handle) deliver(text string) {
	h.mu.Lock()
	if h.state != conversation.StateReceiving {
		h.mu.Unlock()
		return
	}
	msg := h.buf.append(conversation.SenderRemote, text)
	h.mu.Unlock()

	h.sink.OnMessage(msg)
}

// finish moves the handle to its terminal state and tells the sink. A nil cause means an
// orderly close; anything else is a transport error unless Close already ran.
func (h *Handle) finish(cause error) {
	h.mu.Lock()
	if h.localClose {
		from := h.closedFrom
		h.mu.Unlock()
		h.notifyState(from, conversation.StateClosed)
		h.sink.OnClosed()
		return
	}

	from := h.state
	to := conversation.StateClosed
	if cause != nil {
		to = conversation.StateErrored
		h.err = cause
	}
	h.state = to
	conn := h.conn
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	h.notifyState(from, to)

	if cause != nil {
		log.Warn().Str("component", "channel").Str("handle", h.id).Err(cause).Msg("conversation failed")
		h.sink.OnError(cause)
		return
	}
	log.Info().Str("component", "channel").Str("handle", h.id).Msg("conversation closed by peer")
	h.sink.OnClosed()
}

func (h *Handle) notifyState(from, to conversation.State) {
	if observer, ok := h.sink.(StateObserver); ok {
		observer.OnStateChange(from, to)
	}
}
