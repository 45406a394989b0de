package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parley-app/parley/internal/model/chat"
)

var (
	ErrUserRequired    = errors.New("user id is required")
	ErrTopicRequired   = errors.New("topic id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Service records conversation sessions and their transcripts.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	now      func() time.Time
}

// NewService bootstraps the in-memory session service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession opens a session for userID about topicID.
func (s *Service) CreateSession(_ context.Context, userID, topicID string, durationMinutes int) (chat.Session, error) {
	if userID == "" {
		return chat.Session{}, ErrUserRequired
	}
	if topicID == "" {
		return chat.Session{}, ErrTopicRequired
	}

	session := chat.Session{
		ID:              uuid.NewString(),
		UserID:          userID,
		TopicID:         topicID,
		DurationMinutes: durationMinutes,
		CreatedAt:       s.now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

// EndSession stamps the session's end time and scores what the user said. Ending twice
// keeps the first result.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.EndedAt != nil {
		return nil
	}

	var utterances []string
	for _, message := range s.messages[sessionID] {
		if message.Role == chat.RoleUser {
			utterances = append(utterances, message.Content)
		}
	}

	ended := s.now()
	session.EndedAt = &ended
	session.TotalMinutes = round2(ended.Sub(session.CreatedAt).Minutes())
	session.Score, session.WordsSpoken = ScoreUtterances(utterances)
	s.sessions[sessionID] = session
	return nil
}

// Stats counts every session of userID and averages the scores of the ended ones.
func (s *Service) Stats(_ context.Context, userID string) chat.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		stats  chat.Stats
		scored int
		sum    float64
	)
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		stats.TotalSessions++
		if session.EndedAt == nil {
			continue
		}
		scored++
		sum += session.Score
		if session.Score > stats.HighScore {
			stats.HighScore = session.Score
		}
	}
	if scored > 0 {
		stats.AvgScore = round2(sum / float64(scored))
	}
	return stats
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// ListByUser returns the user's sessions, newest first.
func (s *Service) ListByUser(_ context.Context, userID string) []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []chat.Session
	for _, session := range s.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
