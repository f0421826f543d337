// Package engine answers natural-language questions over a vector index by
// retrieving the most relevant chunks and synthesizing an answer through one
// or more generation calls. The last call of a session is the final call;
// streaming scope (final-only versus every call) is decided per call through
// the predictor.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/index"
	"github.com/streamdex/streamdex/internal/ledger"
	"github.com/streamdex/streamdex/internal/llm"
	"github.com/streamdex/streamdex/internal/predictor"
)

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("engine: empty question")

// QueryOptions configures one query session.
type QueryOptions struct {
	// TopK is the number of retrieved chunks to synthesize over. Zero uses
	// the engine default.
	TopK int
	// Sink receives generated tokens as they are produced. Nil disables
	// streaming.
	Sink callback.Sink
	// StreamFinalOnly restricts token delivery to the final generation
	// call. When false, every call streams through the sink and the sink
	// observes the calls' outputs concatenated in call order.
	StreamFinalOnly bool
}

// Source describes one retrieved chunk that contributed to an answer.
type Source struct {
	Path  string  `json:"path"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

// Response is the result of a query session.
type Response struct {
	SessionID       string    `json:"session_id"`
	Answer          string    `json:"answer"`
	Sources         []Source  `json:"sources"`
	GenerationCalls int       `json:"generation_calls"`
	Usage           llm.Usage `json:"usage"`
}

// Engine binds an index, a generation backend, and an optional usage ledger.
// The index is swappable at runtime (reindex), so access goes through
// indexMu.
type Engine struct {
	indexMu     sync.RWMutex
	index       *index.Index
	backend     llm.Backend
	usage       ledger.Store
	defaultTopK int
	logger      *log.Logger
}

// Config configures the engine.
type Config struct {
	Index       *index.Index
	Backend     llm.Backend
	Usage       ledger.Store // optional
	DefaultTopK int          // default 3
	Logger      *log.Logger  // optional
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Index == nil {
		return nil, errors.New("engine: index required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("engine: backend required")
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Engine{
		index:       cfg.Index,
		backend:     cfg.Backend,
		usage:       cfg.Usage,
		defaultTopK: topK,
		logger:      logger,
	}, nil
}

// SetIndex swaps the index the engine queries, e.g. after a reindex. Safe
// for use while queries are in flight; running queries keep the index they
// started with.
func (e *Engine) SetIndex(ix *index.Index) {
	e.indexMu.Lock()
	e.index = ix
	e.indexMu.Unlock()
}

// Index returns the current index.
func (e *Engine) Index() *index.Index {
	e.indexMu.RLock()
	defer e.indexMu.RUnlock()
	return e.index
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// Query runs one query session: retrieve, synthesize, refine. The first
// generation call answers from the top chunk; each further chunk is folded
// in with a refine call. The last call is the final call and the only one
// that streams when StreamFinalOnly is set. Backend and index failures
// propagate unchanged; there are no retries.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (Response, error) {
	if strings.TrimSpace(question) == "" {
		return Response{}, ErrEmptyQuestion
	}

	sessionID := uuid.NewString()
	topK := opts.TopK
	if topK <= 0 {
		topK = e.defaultTopK
	}
	start := time.Now()
	e.logf("query start session=%s topk=%d stream_final_only=%v", sessionID, topK, opts.StreamFinalOnly)

	scored, err := e.Index().Search(ctx, question, topK)
	if err != nil {
		e.logf("query retrieve error session=%s: %v", sessionID, err)
		return Response{}, fmt.Errorf("engine: retrieve: %w", err)
	}

	pred := predictor.New(e.backend, opts.Sink, !opts.StreamFinalOnly)

	answer := ""
	for i, sc := range scored {
		role := predictor.RoleIntermediate
		if i == len(scored)-1 {
			role = predictor.RoleFinal
		}
		var prompt string
		if i == 0 {
			prompt = answerPrompt(sc.Chunk.Text, question)
		} else {
			prompt = refinePrompt(question, answer, sc.Chunk.Text)
		}
		answer, err = pred.Predict(ctx, prompt, role)
		if err != nil {
			e.logf("query generate error session=%s call=%d: %v", sessionID, i+1, err)
			return Response{}, fmt.Errorf("engine: generate call %d: %w", i+1, err)
		}
	}

	sources := make([]Source, len(scored))
	for i, sc := range scored {
		sources[i] = Source{Path: sc.Chunk.Path, Score: sc.Score, Text: sc.Chunk.Text}
	}

	resp := Response{
		SessionID:       sessionID,
		Answer:          answer,
		Sources:         sources,
		GenerationCalls: pred.Calls(),
		Usage:           pred.Usage(),
	}

	e.recordUsage(ctx, sessionID, question, resp)
	e.logf("query done session=%s calls=%d total_ms=%d", sessionID, resp.GenerationCalls, time.Since(start).Milliseconds())
	return resp, nil
}

func (e *Engine) recordUsage(ctx context.Context, sessionID, question string, resp Response) {
	if e.usage == nil {
		return
	}
	err := e.usage.Record(ctx, ledger.Entry{
		SessionID:        sessionID,
		Question:         question,
		GenerationCalls:  resp.GenerationCalls,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	})
	if err != nil {
		// Usage accounting must not fail the query.
		e.logf("record usage session=%s: %v", sessionID, err)
	}
}
