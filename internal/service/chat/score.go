package chat

import (
	"math"
	"strings"
	"unicode"
)

// Each utterance earns 1 or 2 points on five criteria, so a turn scores between 5 and 10.
const (
	pointLow  = 1
	pointHigh = 2
)

// ScoreUtterances grades what the user said in one session. It returns the mean
// per-utterance score, rounded to two decimals, and the number of words spoken.
func ScoreUtterances(utterances []string) (float64, int) {
	if len(utterances) == 0 {
		return 0, 0
	}

	total, words := 0, 0
	for _, text := range utterances {
		tokens := tokenize(text)
		wordCount := countWords(tokens)
		words += wordCount
		fields := len(strings.Fields(text))

		total += grade(allWordsOrPunct(tokens))                   // grammar
		total += grade(fields > 3)                                // relevance
		total += grade(strings.Contains(text, "?") || fields > 5) // engagement
		total += grade(wordCount > 3)                             // coherence
		total += pointHigh                                        // typed input is always clear
	}

	return round2(float64(total) / float64(len(utterances))), words
}

func grade(ok bool) int {
	if ok {
		return pointHigh
	}
	return pointLow
}

// tokenize splits text into word tokens and single punctuation tokens. Apostrophes
// inside a word ("don't") stay part of it.
func tokenize(text string) []string {
	var (
		tokens  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		case r == '\'' && current.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			current.WriteRune(r)
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

func isWord(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func countWords(tokens []string) int {
	n := 0
	for _, token := range tokens {
		if isWord(token) {
			n++
		}
	}
	return n
}

// allWordsOrPunct reports whether every token is alphabetic or punctuation; digits and
// symbols such as "$" or "#" fail it.
func allWordsOrPunct(tokens []string) bool {
	for _, token := range tokens {
		for _, r := range token {
			if unicode.IsLetter(r) || unicode.IsPunct(r) {
				continue
			}
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
