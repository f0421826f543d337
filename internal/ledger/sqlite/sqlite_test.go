package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamdex/streamdex/internal/ledger"
)

func TestStoreRecordAndSummary(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	record := func(session string, calls int, prompt, completion int64) {
		if err := store.Record(ctx, ledger.Entry{
			SessionID:        session,
			Question:         "test question",
			GenerationCalls:  calls,
			PromptTokens:     prompt,
			CompletionTokens: completion,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	record("s1", 3, 100, 50)
	record("s2", 1, 60, 20)

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Queries != 2 {
		t.Fatalf("expected 2 queries, got %d", summary.Queries)
	}
	if summary.GenerationCalls != 4 {
		t.Fatalf("expected 4 calls, got %d", summary.GenerationCalls)
	}
	if summary.PromptTokens != 160 || summary.CompletionTokens != 70 {
		t.Fatalf("unexpected token totals %+v", summary)
	}
	if summary.TotalTokens != 230 {
		t.Fatalf("unexpected total %d", summary.TotalTokens)
	}
}

func TestListRecentOrdering(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	entries := []ledger.Entry{
		{SessionID: "old", PromptTokens: 1, CompletionTokens: 1, CreatedAt: time.Now().Add(-2 * time.Hour)},
		{SessionID: "mid", PromptTokens: 2, CompletionTokens: 2, CreatedAt: time.Now().Add(-1 * time.Hour)},
		{SessionID: "new", PromptTokens: 3, CompletionTokens: 3, CreatedAt: time.Now()},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].SessionID != "new" || recent[1].SessionID != "mid" {
		t.Fatalf("unexpected ordering %#v", recent)
	}
}

func TestRecordValidation(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Record(context.Background(), ledger.Entry{}); err == nil {
		t.Fatalf("expected error for missing session id")
	}
}
