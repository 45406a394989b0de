package chat

import "time"

// Session captures one conversation a user held about a topic.
type Session struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	TopicID         string     `json:"topicId"`
	DurationMinutes int        `json:"durationMinutes"`
	CreatedAt       time.Time  `json:"createdAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`

	// Filled in when the session ends.
	TotalMinutes float64 `json:"totalMinutes"`
	Score        float64 `json:"score"`
	WordsSpoken  int     `json:"wordsSpoken"`
}

// Stats summarises a user's scored sessions.
type Stats struct {
	TotalSessions int     `json:"total_session"`
	AvgScore      float64 `json:"avg_score"`
	HighScore     float64 `json:"high_score"`
}
