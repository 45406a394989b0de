package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/config"
	"github.com/parley-app/parley/internal/model/chat"
	"github.com/parley-app/parley/internal/model/topic"
)

const historyLimit = 10

// Service answers conversation turns with an Ark chat model.
type Service struct {
	cfg   config.AIConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates a new AI service instance
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newServiceWithModel(ctx, chatModel, cfg)
}

func newServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		cfg:   cfg,
		chain: runnable,
	}, nil
}

func (s *Service) Intro(t topic.Topic) string {
	return Intro(t)
}

// Reply runs the prompt chain for one user utterance.
func (s *Service) Reply(ctx context.Context, t topic.Topic, history []chat.Message, userMessage string) (string, error) {
	input := map[string]any{
		"system":  buildSystemPrompt(t),
		"history": buildHistoryMessages(history),
		"query":   userMessage,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Debug().Str("component", "ai").Str("model", s.cfg.Model).Str("topic_id", t.ID).Int("length", len(response.Content)).Msg("generated reply")
	return response.Content, nil
}

func buildSystemPrompt(t topic.Topic) string {
	return fmt.Sprintf(`You are a friendly conversation partner helping the user practise spoken English.
The topic is %q: %s
Keep every answer short (one or two sentences), stay on topic and end with a question that keeps the user talking.`, t.Name, t.Description)
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
