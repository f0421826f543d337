package llm

import (
	"context"

	"github.com/streamdex/streamdex/internal/callback"
)

// GenerateRequest describes one generation call against a backend.
// When Sink is non-nil the backend must deliver each produced fragment to
// Sink.OnToken as it arrives, in order, before returning the full text.
// A nil Sink requests a plain, non-streamed completion.
type GenerateRequest struct {
	Prompt      string
	Sink        callback.Sink
	Temperature *float64
	MaxTokens   int
}

// Usage reports approximate token counts for a generation call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// GenerateResult is the outcome of one generation call.
type GenerateResult struct {
	Text  string
	Usage Usage
}

// Backend converts a prompt into generated text, optionally streaming
// fragments through the request's sink while producing them.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// ApproximateTokens estimates a token count from text length. Mirrors the
// common chars/4 heuristic used when no tokenizer is available.
func ApproximateTokens(text string) int64 {
	return int64(len(text) / 4)
}
