// Package bootstrap wires configuration into concrete backends, embedders,
// and stores. It keeps the CLI and the daemon entrypoints thin.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/document"
	"github.com/streamdex/streamdex/internal/embedding"
	embeddingopenai "github.com/streamdex/streamdex/internal/embedding/openai"
	"github.com/streamdex/streamdex/internal/index"
	"github.com/streamdex/streamdex/internal/index/store"
	indexpostgres "github.com/streamdex/streamdex/internal/index/store/postgres"
	indexsqlite "github.com/streamdex/streamdex/internal/index/store/sqlite"
	"github.com/streamdex/streamdex/internal/ledger"
	ledgerasync "github.com/streamdex/streamdex/internal/ledger/async"
	ledgersqlite "github.com/streamdex/streamdex/internal/ledger/sqlite"
	"github.com/streamdex/streamdex/internal/llm"
	"github.com/streamdex/streamdex/internal/llm/loopback"
	llmollama "github.com/streamdex/streamdex/internal/llm/ollama"
	llmopenai "github.com/streamdex/streamdex/internal/llm/openai"
)

// NewBackend builds the generation backend selected by the configuration.
func NewBackend(cfg config.Config) (llm.Backend, error) {
	switch cfg.Backend {
	case "loopback":
		return loopback.New(), nil
	case "openai":
		return llmopenai.New(llmopenai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	case "ollama":
		return llmollama.New(llmollama.Config{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
		})
	default:
		return nil, fmt.Errorf("bootstrap: unknown backend %q", cfg.Backend)
	}
}

// NewEmbedder builds the embedder selected by the configuration.
func NewEmbedder(cfg config.Config) (embedding.Embedder, error) {
	switch cfg.Embedder {
	case "hash":
		return embedding.NewHashEmbedder(cfg.EmbeddingDimension), nil
	case "openai":
		return embeddingopenai.New(embeddingopenai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.EmbeddingModel,
			Dimension: cfg.EmbeddingDimension,
		})
	default:
		return nil, fmt.Errorf("bootstrap: unknown embedder %q", cfg.Embedder)
	}
}

// Splitter builds the chunker from the configured sizes.
func Splitter(cfg config.Config) *document.Splitter {
	s := document.DefaultSplitter()
	if cfg.ChunkSize > 0 {
		s.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkOverlap >= 0 {
		s.Overlap = cfg.ChunkOverlap
	}
	return s
}

// OpenIndexStore opens the configured snapshot store. Postgres wins when a
// DSN is set, otherwise sqlite at IndexPath. Returns nil when neither is
// configured.
func OpenIndexStore(cfg config.Config) (store.Store, error) {
	if cfg.PostgresDSN != "" {
		return indexpostgres.New(cfg.PostgresDSN, 8, 4, 30*time.Minute)
	}
	if cfg.IndexPath != "" {
		return indexsqlite.New(cfg.IndexPath)
	}
	return nil, nil
}

// OpenLedger opens the usage ledger, wrapped in the async batching writer.
// Returns nil when no ledger path is configured.
func OpenLedger(cfg config.Config, logger *log.Logger) (ledger.Store, error) {
	if cfg.LedgerPath == "" {
		return nil, nil
	}
	base, err := ledgersqlite.New(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	return ledgerasync.New(base, ledgerasync.Config{Logger: logger}), nil
}

// BuildIndex loads documents from DocsDir and builds a fresh index.
func BuildIndex(ctx context.Context, cfg config.Config, embedder embedding.Embedder) (*index.Index, error) {
	docs, err := document.LoadDir(cfg.DocsDir)
	if err != nil {
		return nil, err
	}
	return index.Build(ctx, docs, Splitter(cfg), embedder)
}

// LoadOrBuildIndex restores an index snapshot from st when one exists and
// was produced by a compatible embedder; otherwise it rebuilds from DocsDir
// and saves the result. A nil st always rebuilds.
func LoadOrBuildIndex(ctx context.Context, cfg config.Config, embedder embedding.Embedder, st store.Store, logger *log.Logger) (*index.Index, error) {
	signature := cfg.EmbedderSignature()
	if st != nil {
		snap, err := st.Load(ctx)
		if err != nil {
			return nil, err
		}
		if len(snap.Chunks) > 0 {
			if snap.EmbedderSignature == signature {
				if logger != nil {
					logger.Printf("index restored chunks=%d signature=%s", len(snap.Chunks), signature)
				}
				return index.FromParts(snap.Chunks, snap.Vectors, embedder)
			}
			if logger != nil {
				logger.Printf("index signature mismatch stored=%s want=%s, rebuilding", snap.EmbedderSignature, signature)
			}
		}
	}

	ix, err := BuildIndex(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}
	if st != nil {
		snap := store.Snapshot{
			EmbedderSignature: signature,
			Dimension:         embedder.Dimension(),
			Chunks:            ix.Chunks(),
			Vectors:           ix.Vectors(),
		}
		if err := st.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("bootstrap: save index snapshot: %w", err)
		}
	}
	if logger != nil {
		logger.Printf("index built chunks=%d signature=%s", ix.Len(), signature)
	}
	return ix, nil
}
