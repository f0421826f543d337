// Package predictor pairs a generation backend with a callback sink and
// decides, per generation call, whether the sink is attached. The scope of
// streaming is an explicit parameter at each call site rather than mutable
// backend state, so intermediate synthesis calls can be kept silent while
// the final call streams.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/llm"
)

// Role tags a generation call by how its output is used.
type Role string

const (
	// RoleFinal marks the call whose output is the user-visible answer.
	RoleFinal Role = "final"
	// RoleIntermediate marks a call whose output feeds further synthesis.
	RoleIntermediate Role = "intermediate"
)

// Predictor issues generation calls against a backend, attaching the
// configured sink to final calls only, or to every call when StreamAll is
// set. A nil sink disables streaming entirely.
type Predictor struct {
	backend   llm.Backend
	sink      callback.Sink
	streamAll bool

	usage llm.Usage
	calls int
}

// New creates a Predictor. sink may be nil.
func New(backend llm.Backend, sink callback.Sink, streamAll bool) *Predictor {
	return &Predictor{backend: backend, sink: sink, streamAll: streamAll}
}

// Predict runs one generation call. The sink is passed to the backend iff
// the call is final or the predictor is configured to stream every call.
// Errors from the backend propagate unchanged; there are no retries.
func (p *Predictor) Predict(ctx context.Context, prompt string, role Role) (string, error) {
	if p.backend == nil {
		return "", errors.New("predictor: no backend configured")
	}
	if role != RoleFinal && role != RoleIntermediate {
		return "", fmt.Errorf("predictor: invalid role %q", role)
	}

	req := llm.GenerateRequest{Prompt: prompt}
	if p.sink != nil && (role == RoleFinal || p.streamAll) {
		req.Sink = p.sink
	}

	res, err := p.backend.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	p.calls++
	p.usage.PromptTokens += res.Usage.PromptTokens
	p.usage.CompletionTokens += res.Usage.CompletionTokens
	return res.Text, nil
}

// Usage returns cumulative token usage across all calls made so far.
func (p *Predictor) Usage() llm.Usage {
	return p.usage
}

// Calls returns the number of completed generation calls.
func (p *Predictor) Calls() int {
	return p.calls
}
