package channel

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-app/parley/internal/model/conversation"
)

type scriptedServer struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	query string
	auth  string
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, auth, err := conn.ReadMessage()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.query = r.URL.RawQuery
	s.auth = string(auth)
	s.mu.Unlock()

	_ = conn.WriteMessage(websocket.TextMessage, []byte("Hello"))
	_ = conn.WriteMessage(websocket.TextMessage, []byte("Let's talk"))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))

	// drain until the client answers the close frame
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWebSocketDialerEndToEnd(t *testing.T) {
	server := &scriptedServer{}
	srv := httptest.NewServer(server)
	defer srv.Close()

	endpoint, err := NewEndpoint(srv.URL)
	require.NoError(t, err)

	opts := DefaultTransportOptions()
	opts.HandshakeTimeout = 5 * time.Second
	sink := &recordingSink{}
	ch := New(endpoint, NewWebSocketDialer(opts), sink)

	h := ch.Open(conversation.Request{TopicID: "42", DurationMinutes: 5}, "tok123")
	waitDone(t, h)

	assert.Equal(t, conversation.StateClosed, h.State())
	assert.NoError(t, h.Err())

	msgs := h.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, "Let's talk", msgs[1].Text)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "topic_id=42&duration=5", server.query)
	assert.JSONEq(t, `{"type":"auth","token":"Bearer tok123"}`, server.auth)
}

func TestWebSocketDialerRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	endpoint, err := NewEndpoint(srv.URL)
	require.NoError(t, err)
	ch := New(endpoint, NewWebSocketDialer(DefaultTransportOptions()), nil)

	h := ch.Open(conversation.Request{TopicID: "42", DurationMinutes: 5}, "tok")
	waitDone(t, h)

	assert.Equal(t, conversation.StateErrored, h.State())
	assert.Contains(t, h.Err().Error(), "403")
}
