// Package loopback provides a deterministic offline backend. It fabricates
// answers from the prompt's own context section, which makes pipeline
// behavior (streaming scope, call ordering, usage accounting) observable in
// tests and demos without a model server.
package loopback

import (
	"context"
	"errors"
	"strings"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/llm"
)

// Ensure Backend implements llm.Backend.
var _ llm.Backend = (*Backend)(nil)

const (
	contextDelimiter     = "---------------------"
	existingAnswerMarker = "We have provided an existing answer:"
)

// Backend answers from the context block embedded in the prompt.
type Backend struct{}

// New creates a loopback Backend.
func New() *Backend {
	return &Backend{}
}

// Generate fabricates a deterministic completion. For a refine-style prompt
// it returns the existing answer unchanged; for an answer-style prompt it
// returns the leading sentences of the context block. Fragments are streamed
// word by word through the sink when one is supplied.
func (b *Backend) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return llm.GenerateResult{}, errors.New("loopback: empty prompt")
	}
	if err := ctx.Err(); err != nil {
		return llm.GenerateResult{}, err
	}

	text := b.reply(req.Prompt)
	StreamWords(text, req.Sink)

	return llm.GenerateResult{
		Text: text,
		Usage: llm.Usage{
			PromptTokens:     llm.ApproximateTokens(req.Prompt),
			CompletionTokens: llm.ApproximateTokens(text),
		},
	}, nil
}

func (b *Backend) reply(prompt string) string {
	if answer, ok := existingAnswer(prompt); ok {
		return answer
	}
	if ctxText, ok := contextBlock(prompt); ok {
		return leadingSentences(ctxText, 2)
	}
	// No recognizable structure; echo the last non-empty line.
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// existingAnswer extracts the answer block of a refine-style prompt.
func existingAnswer(prompt string) (string, bool) {
	i := strings.Index(prompt, existingAnswerMarker)
	if i < 0 {
		return "", false
	}
	rest := prompt[i+len(existingAnswerMarker):]
	if j := strings.Index(rest, contextDelimiter); j >= 0 {
		rest = rest[:j]
	}
	// Drop the trailing instruction line preceding the delimiter.
	if j := strings.Index(rest, "We have the opportunity"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest), true
}

// contextBlock extracts the text between the first pair of delimiter lines.
func contextBlock(prompt string) (string, bool) {
	i := strings.Index(prompt, contextDelimiter)
	if i < 0 {
		return "", false
	}
	rest := prompt[i+len(contextDelimiter):]
	j := strings.Index(rest, contextDelimiter)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

func leadingSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count == n {
				return text[:i+1]
			}
		}
	}
	return text
}

// StreamWords delivers text to the sink one word (with trailing space) at a
// time. A nil sink is a no-op.
func StreamWords(text string, sink callback.Sink) {
	if sink == nil {
		return
	}
	rest := text
	for rest != "" {
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			sink.OnToken(rest)
			return
		}
		sink.OnToken(rest[:i+1])
		rest = rest[i+1:]
	}
}
