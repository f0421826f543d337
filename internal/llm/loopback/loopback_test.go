package loopback

import (
	"context"
	"strings"
	"testing"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/llm"
)

const answerPrompt = `Context information is below.
---------------------
The author grew up writing short stories. Later the author learned to program on an IBM 1401. School was mostly a distraction.
---------------------
Given the context information and no prior knowledge, answer the question: What did the author do growing up?
`

const refinePrompt = `The original question is as follows: What did the author do growing up?
We have provided an existing answer: The author grew up writing short stories.
We have the opportunity to refine the existing answer with more context below.
---------------------
The author painted portraits for a while.
---------------------
Given the new context, refine the original answer. If the context is not useful, return the existing answer.
`

func TestGenerateFromContext(t *testing.T) {
	b := New()
	res, err := b.Generate(context.Background(), llm.GenerateRequest{Prompt: answerPrompt})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "The author grew up writing short stories. Later the author learned to program on an IBM 1401."
	if res.Text != want {
		t.Fatalf("unexpected answer %q", res.Text)
	}
	if res.Usage.CompletionTokens == 0 || res.Usage.PromptTokens == 0 {
		t.Fatalf("expected non-zero usage, got %+v", res.Usage)
	}
}

func TestGenerateRefineReturnsExistingAnswer(t *testing.T) {
	b := New()
	res, err := b.Generate(context.Background(), llm.GenerateRequest{Prompt: refinePrompt})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "The author grew up writing short stories." {
		t.Fatalf("unexpected refined answer %q", res.Text)
	}
}

func TestGenerateStreamsMatchingFragments(t *testing.T) {
	b := New()
	sink := &callback.BufferSink{}
	res, err := b.Generate(context.Background(), llm.GenerateRequest{Prompt: answerPrompt, Sink: sink})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sink.String() != res.Text {
		t.Fatalf("streamed %q != returned %q", sink.String(), res.Text)
	}
	if sink.Len() != len(strings.Fields(res.Text)) {
		t.Fatalf("expected one fragment per word, got %d events", sink.Len())
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	b := New()
	if _, err := b.Generate(context.Background(), llm.GenerateRequest{Prompt: "   "}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestGenerateHonorsCancelledContext(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Generate(ctx, llm.GenerateRequest{Prompt: answerPrompt}); err == nil {
		t.Fatalf("expected context error")
	}
}
