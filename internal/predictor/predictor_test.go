package predictor

import (
	"context"
	"errors"
	"testing"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/llm"
)

// scriptedBackend returns canned replies in order and streams them word by
// word when a sink is attached.
type scriptedBackend struct {
	replies []string
	next    int
	err     error
}

func (b *scriptedBackend) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResult, error) {
	if b.err != nil {
		return llm.GenerateResult{}, b.err
	}
	if b.next >= len(b.replies) {
		return llm.GenerateResult{}, errors.New("scripted backend exhausted")
	}
	text := b.replies[b.next]
	b.next++
	if req.Sink != nil {
		req.Sink.OnToken(text)
	}
	return llm.GenerateResult{
		Text:  text,
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: llm.ApproximateTokens(text)},
	}, nil
}

func TestFinalOnlyScoping(t *testing.T) {
	backend := &scriptedBackend{replies: []string{"draft one", "draft two", "final answer"}}
	sink := &callback.BufferSink{}
	p := New(backend, sink, false)

	ctx := context.Background()
	for _, role := range []Role{RoleIntermediate, RoleIntermediate} {
		if _, err := p.Predict(ctx, "prompt", role); err != nil {
			t.Fatalf("Predict: %v", err)
		}
	}
	got, err := p.Predict(ctx, "prompt", RoleFinal)
	if err != nil {
		t.Fatalf("Predict final: %v", err)
	}

	if got != "final answer" {
		t.Fatalf("unexpected final text %q", got)
	}
	if sink.String() != "final answer" {
		t.Fatalf("sink saw intermediate output: %q", sink.String())
	}
	if sink.Len() != 1 {
		t.Fatalf("expected 1 streamed event, got %d", sink.Len())
	}
}

func TestStreamAllReceivesEveryCall(t *testing.T) {
	backend := &scriptedBackend{replies: []string{"one ", "two ", "three"}}
	sink := &callback.BufferSink{}
	p := New(backend, sink, true)

	ctx := context.Background()
	if _, err := p.Predict(ctx, "a", RoleIntermediate); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, err := p.Predict(ctx, "b", RoleIntermediate); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, err := p.Predict(ctx, "c", RoleFinal); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if sink.String() != "one two three" {
		t.Fatalf("expected call-order concatenation, got %q", sink.String())
	}
}

func TestNilSinkDisablesStreaming(t *testing.T) {
	backend := &scriptedBackend{replies: []string{"answer"}}
	p := New(backend, nil, true)
	got, err := p.Predict(context.Background(), "q", RoleFinal)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != "answer" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestUsageAccumulates(t *testing.T) {
	backend := &scriptedBackend{replies: []string{"aaaa", "bbbbbbbb"}}
	p := New(backend, nil, false)

	ctx := context.Background()
	if _, err := p.Predict(ctx, "q", RoleIntermediate); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, err := p.Predict(ctx, "q", RoleFinal); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if p.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", p.Calls())
	}
	usage := p.Usage()
	if usage.PromptTokens != 20 {
		t.Fatalf("expected 20 prompt tokens, got %d", usage.PromptTokens)
	}
	if usage.CompletionTokens != 3 { // 4/4 + 8/4
		t.Fatalf("expected 3 completion tokens, got %d", usage.CompletionTokens)
	}
}

func TestBackendErrorPropagates(t *testing.T) {
	backendErr := errors.New("backend unavailable")
	p := New(&scriptedBackend{err: backendErr}, nil, false)
	if _, err := p.Predict(context.Background(), "q", RoleFinal); !errors.Is(err, backendErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestInvalidRoleRejected(t *testing.T) {
	p := New(&scriptedBackend{replies: []string{"x"}}, nil, false)
	if _, err := p.Predict(context.Background(), "q", Role("other")); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}
