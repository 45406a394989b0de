package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-app/parley/internal/model/conversation"
)

func TestEndpointConversationURL(t *testing.T) {
	cases := []struct {
		base   string
		want   string
		secure bool
	}{
		{"http://localhost:8000", "ws://localhost:8000/conversation?topic_id=42&duration=5", false},
		{"https://api.example.com/", "wss://api.example.com/conversation?topic_id=42&duration=5", true},
		{"wss://api.example.com/v1", "wss://api.example.com/v1/conversation?topic_id=42&duration=5", true},
		{"ws://10.0.0.5:8000?x=1", "ws://10.0.0.5:8000/conversation?topic_id=42&duration=5", false},
	}

	for _, tc := range cases {
		endpoint, err := NewEndpoint(tc.base)
		require.NoError(t, err, tc.base)
		assert.Equal(t, tc.want, endpoint.ConversationURL(conversation.Request{TopicID: "42", DurationMinutes: 5}))
		assert.Equal(t, tc.secure, endpoint.Secure())
	}
}

func TestEndpointEscapesTopic(t *testing.T) {
	endpoint, err := NewEndpoint("http://localhost")
	require.NoError(t, err)
	got := endpoint.ConversationURL(conversation.Request{TopicID: "a&b c", DurationMinutes: 1})
	assert.Equal(t, "ws://localhost/conversation?topic_id=a%26b+c&duration=1", got)
}

func TestEndpointRejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := NewEndpoint(base)
		assert.Error(t, err, base)
	}
}
