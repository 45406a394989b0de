package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreUtterances(t *testing.T) {
	tests := []struct {
		name       string
		utterances []string
		score      float64
		words      int
	}{
		{name: "nothing said", utterances: nil, score: 0, words: 0},
		{name: "full marks", utterances: []string{"What do you like to cook on weekends?"}, score: 10, words: 8},
		{name: "one word", utterances: []string{"ok"}, score: 7, words: 1},
		{name: "digits fail grammar", utterances: []string{"I have 2 cats"}, score: 8, words: 4},
		{
			name:       "mean is rounded",
			utterances: []string{"What do you like to cook on weekends?", "ok", "I have 2 cats"},
			score:      8.33,
			words:      13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, words := ScoreUtterances(tt.utterances)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.words, words)
		})
	}
}

func TestTokenizeKeepsContractions(t *testing.T) {
	assert.Equal(t, []string{"don't", "stop", "!"}, tokenize("don't stop!"))
	assert.Equal(t, []string{"'", "quoted", "'"}, tokenize("'quoted'"))
}
