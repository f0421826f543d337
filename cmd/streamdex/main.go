package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/streamdex/streamdex/internal/bootstrap"
	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/engine"
)

func main() {
	configPath := flag.String("config", "streamdex.yaml", "path to the YAML config file")
	docsDir := flag.String("docs", "", "override the document directory")
	question := flag.String("q", "", "question to answer")
	topK := flag.Int("topk", 0, "override the number of retrieved chunks")
	streamAll := flag.Bool("stream-all", false, "stream every generation call, not just the final one")
	showSources := flag.Bool("sources", false, "print retrieved sources after the answer")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *docsDir != "" {
		cfg.DocsDir = *docsDir
	}
	if *question == "" {
		fmt.Fprintln(os.Stderr, "usage: streamdex -q \"your question\" [-docs DIR] [-topk N] [-stream-all]")
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "[streamdex] ", log.LstdFlags|log.Lmicroseconds)

	backend, err := bootstrap.NewBackend(cfg)
	if err != nil {
		logger.Fatalf("backend: %v", err)
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	ix, err := bootstrap.BuildIndex(ctx, cfg, embedder)
	if err != nil {
		logger.Fatalf("build index: %v", err)
	}
	logger.Printf("indexed chunks=%d docs_dir=%s total_ms=%d", ix.Len(), cfg.DocsDir, time.Since(start).Milliseconds())

	eng, err := engine.New(engine.Config{
		Index:       ix,
		Backend:     backend,
		DefaultTopK: cfg.TopK,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}

	// The config's stream scope is the default; -stream-all forces global.
	streamFinalOnly := cfg.StreamFinalOnly
	if *streamAll {
		streamFinalOnly = false
	}
	resp, err := eng.Query(ctx, *question, engine.QueryOptions{
		TopK:            *topK,
		Sink:            callback.NewWriterSink(os.Stdout),
		StreamFinalOnly: streamFinalOnly,
	})
	if err != nil {
		logger.Fatalf("query: %v", err)
	}
	fmt.Println()

	if *showSources {
		for i, src := range resp.Sources {
			fmt.Fprintf(os.Stderr, "source %d: %s score=%.4f\n", i+1, src.Path, src.Score)
		}
	}
	logger.Printf("done session=%s calls=%d prompt_tokens=%d completion_tokens=%d",
		resp.SessionID, resp.GenerationCalls, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
}
