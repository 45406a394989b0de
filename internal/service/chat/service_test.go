package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/parley-app/parley/internal/model/chat"
	chat "github.com/parley-app/parley/internal/service/chat"
)

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "ada@example.com", "3", 5)
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "3", got.TopicID)
	assert.Equal(t, 5, got.DurationMinutes)
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService()

	_, err := svc.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestServiceCreateSessionValidation(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "", "1", 1)
	assert.ErrorIs(t, err, chat.ErrUserRequired)

	_, err = svc.CreateSession(ctx, "u", "", 1)
	assert.ErrorIs(t, err, chat.ErrTopicRequired)
}

func TestServiceTranscriptAndHistory(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "ada", "1", 1)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := svc.CreateSession(ctx, "ada", "2", 5)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "bob", "2", 5)
	require.NoError(t, err)

	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: first.ID, Role: chatmodel.RoleAssistant, Content: "hi"}))
	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: first.ID, Role: chatmodel.RoleUser, Content: "hello"}))
	assert.ErrorIs(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: "nope"}), chat.ErrSessionNotFound)

	transcript, err := svc.LoadTranscript(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "hi", transcript[0].Content)
	assert.NotEmpty(t, transcript[0].ID)

	history := svc.ListByUser(ctx, "ada")
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)

	require.NoError(t, svc.EndSession(ctx, first.ID))
	ended, err := svc.GetSession(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
}

func TestEndSessionScoresUserTurns(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "ada", "2", 1)
	require.NoError(t, err)
	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: session.ID, Role: chatmodel.RoleAssistant, Content: "Let's talk about Favourite food."}))
	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: session.ID, Role: chatmodel.RoleUser, Content: "What do you like to cook on weekends?"}))
	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: session.ID, Role: chatmodel.RoleUser, Content: "ok"}))

	require.NoError(t, svc.EndSession(ctx, session.ID))
	ended, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, 8.5, ended.Score)
	assert.Equal(t, 9, ended.WordsSpoken)

	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: session.ID, Role: chatmodel.RoleUser, Content: "late"}))
	require.NoError(t, svc.EndSession(ctx, session.ID))
	again, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, ended, again, "ending twice keeps the first result")

	assert.ErrorIs(t, svc.EndSession(ctx, "missing"), chat.ErrSessionNotFound)
}

func TestStatsAverageEndedSessions(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	assert.Equal(t, chatmodel.Stats{}, svc.Stats(ctx, "ada"))

	full, err := svc.CreateSession(ctx, "ada", "1", 1)
	require.NoError(t, err)
	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: full.ID, Role: chatmodel.RoleUser, Content: "What do you like to cook on weekends?"}))
	require.NoError(t, svc.EndSession(ctx, full.ID))

	short, err := svc.CreateSession(ctx, "ada", "2", 1)
	require.NoError(t, err)
	require.NoError(t, svc.SaveMessage(ctx, chatmodel.Message{SessionID: short.ID, Role: chatmodel.RoleUser, Content: "ok"}))
	require.NoError(t, svc.EndSession(ctx, short.ID))

	_, err = svc.CreateSession(ctx, "ada", "3", 5)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "bob", "3", 5)
	require.NoError(t, err)

	assert.Equal(t, chatmodel.Stats{TotalSessions: 3, AvgScore: 8.5, HighScore: 10}, svc.Stats(ctx, "ada"))
}
