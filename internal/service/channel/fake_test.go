package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/parley-app/parley/internal/model/conversation"
)

var errConnClosed = errors.New("use of closed network connection")

type frame struct {
	data []byte
	err  error
}

type fakeConn struct {
	inbound   chan frame
	closedCh  chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan frame, 64),
		closedCh: make(chan struct{}),
	}
}

func (c *fakeConn) push(text string) {
	c.inbound <- frame{data: []byte(text)}
}

func (c *fakeConn) fail(err error) {
	c.inbound <- frame{err: err}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closedCh:
		return 0, nil, errConnClosed
	default:
	}
	select {
	case f := <-c.inbound:
		if f.err != nil {
			return 0, nil, f.err
		}
		return 1, f.data, nil
	case <-c.closedCh:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closedCh:
		return errConnClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closedCh) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

// fakeDialer hands out fresh fakeConns. When gate is set, Dial blocks until the gate is
// closed, which lets tests observe the Connecting state and then "connect".
type fakeDialer struct {
	gate chan struct{}

	mu      sync.Mutex
	targets []string
	conns   []*fakeConn
	errs    []error
}

func (d *fakeDialer) Dial(ctx context.Context, target string) (Conn, error) {
	d.mu.Lock()
	d.targets = append(d.targets, target)
	var err error
	if len(d.errs) > 0 {
		err = d.errs[0]
		d.errs = d.errs[1:]
	}
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

type recordingSink struct {
	mu       sync.Mutex
	messages []conversation.Message
	errs     []error
	closed   int
	skipped  []error
	states   []conversation.State
}

func (s *recordingSink) OnMessage(msg conversation.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) OnClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func (s *recordingSink) OnSkipped(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = append(s.skipped, err)
}

func (s *recordingSink) OnStateChange(_, to conversation.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, to)
}

func (s *recordingSink) snapshot() (messages []conversation.Message, errs []error, closed int, states []conversation.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]conversation.Message(nil), s.messages...),
		append([]error(nil), s.errs...),
		s.closed,
		append([]conversation.State(nil), s.states...)
}
