package ledger

import (
	"context"
	"time"
)

// Entry represents the token usage of a single query session.
type Entry struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	Question         string    `json:"question"`
	GenerationCalls  int       `json:"generation_calls"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary aggregates usage across all recorded query sessions.
type Summary struct {
	Queries          int64 `json:"queries"`
	GenerationCalls  int64 `json:"generation_calls"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Store defines persistence behaviour for the usage ledger.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Summary(ctx context.Context) (Summary, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
