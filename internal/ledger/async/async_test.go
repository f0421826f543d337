package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/streamdex/streamdex/internal/ledger"
)

type captureStore struct {
	mu      sync.Mutex
	entries []ledger.Entry
	closed  bool
}

func (c *captureStore) Record(ctx context.Context, entry ledger.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureStore) Summary(ctx context.Context) (ledger.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ledger.Summary{Queries: int64(len(c.entries))}, nil
}

func (c *captureStore) ListRecent(ctx context.Context, limit int) ([]ledger.Entry, error) {
	return nil, nil
}

func (c *captureStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestCloseFlushesQueuedEntries(t *testing.T) {
	underlying := &captureStore{}
	s := New(underlying, Config{BatchSize: 100, FlushInterval: time.Hour})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Record(ctx, ledger.Entry{SessionID: "s", PromptTokens: int64(i)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	underlying.mu.Lock()
	defer underlying.mu.Unlock()
	if len(underlying.entries) != 5 {
		t.Fatalf("expected 5 flushed entries, got %d", len(underlying.entries))
	}
	if !underlying.closed {
		t.Fatalf("underlying store not closed")
	}
}

func TestSummaryDelegates(t *testing.T) {
	underlying := &captureStore{entries: []ledger.Entry{{SessionID: "a"}}}
	s := New(underlying, Config{})
	t.Cleanup(func() { _ = s.Close() })

	summary, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Queries != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
