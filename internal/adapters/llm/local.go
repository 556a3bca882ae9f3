package llm

import (
	"context"
	"regexp"
	"strings"
)

// NoAnswer is returned by the local model when nothing in the context overlaps the question.
const NoAnswer = "I don't know based on the provided document."

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?])`)
)

var questionWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"of": {}, "in": {}, "on": {}, "to": {}, "what": {}, "which": {}, "who": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "does": {}, "do": {}, "did": {},
}

// LocalAdapter is an offline extractive answerer. It splits the prompt at the
// last "Question:" marker and returns the context sentence sharing the most
// words with the question.
type LocalAdapter struct{}

// NewLocalAdapter creates the offline answerer.
func NewLocalAdapter() *LocalAdapter { return &LocalAdapter{} }

// Generate picks the best matching sentence from the prompt's context.
func (a *LocalAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	idx := strings.LastIndex(prompt, "Question:")
	if idx < 0 {
		return NoAnswer, nil
	}
	contextText := prompt[:idx]
	question := prompt[idx+len("Question:"):]
	if end := strings.Index(question, "\n"); end >= 0 {
		question = question[:end]
	}
	if c := strings.Index(contextText, "Context:"); c >= 0 {
		contextText = contextText[c+len("Context:"):]
	}

	qTokens := tokenSet(question)
	if len(qTokens) == 0 {
		return NoAnswer, nil
	}

	best, bestScore := "", 0
	for _, s := range sentenceRe.FindAllString(contextText, -1) {
		score := overlap(qTokens, s)
		if score > bestScore {
			best, bestScore = strings.TrimSpace(s), score
		}
	}
	if bestScore == 0 {
		return NoAnswer, nil
	}
	return best, nil
}

// ModelName identifies the local answerer.
func (a *LocalAdapter) ModelName() string { return "local-extractive" }

func tokenSet(s string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, t := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if _, skip := questionWords[t]; skip {
			continue
		}
		m[t] = struct{}{}
	}
	return m
}

func overlap(q map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := q[t]; ok {
			score++
		}
	}
	return score
}
