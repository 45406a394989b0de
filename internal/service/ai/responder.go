package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/parley-app/parley/internal/model/chat"
	"github.com/parley-app/parley/internal/model/topic"
)

// Responder produces the partner's next line in a topic conversation.
type Responder interface {
	Intro(topic topic.Topic) string
	Reply(ctx context.Context, topic topic.Topic, history []chat.Message, userMessage string) (string, error)
}

// Intro builds the opening line the server sends once a conversation starts.
func Intro(t topic.Topic) string {
	return fmt.Sprintf("Let's talk about %s. What do you think about it?", t.Name)
}

// EchoResponder keeps the conversation going without a language model.
type EchoResponder struct{}

func (EchoResponder) Intro(t topic.Topic) string {
	return Intro(t)
}

func (EchoResponder) Reply(_ context.Context, t topic.Topic, _ []chat.Message, userMessage string) (string, error) {
	trimmed := strings.TrimSpace(userMessage)
	if trimmed == "" {
		return fmt.Sprintf("Take your time. Anything else about %s?", strings.ToLower(t.Name)), nil
	}
	return fmt.Sprintf("You said: %q. Can you tell me more about that?", trimmed), nil
}
