package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/streamdex/streamdex/internal/bootstrap"
	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/engine"
	"github.com/streamdex/streamdex/internal/httpserver"
	"github.com/streamdex/streamdex/internal/index"
	"github.com/streamdex/streamdex/internal/index/store"
	"github.com/streamdex/streamdex/internal/logging"
)

func main() {
	configPath := flag.String("config", "streamdex.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	const maxLogBytes = int64(300 * 1024 * 1024) // 300MB
	if target := strings.TrimSpace(cfg.LogFile); target != "" {
		rot, err := logging.NewRotatingWriter(target, maxLogBytes)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		// Mirror to stdout as well for foreground runs
		log.SetOutput(io.MultiWriter(os.Stdout, rot))
		defer rot.Close()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetPrefix("[streamdexd] ")
	logger := log.Default()

	backend, err := bootstrap.NewBackend(cfg)
	if err != nil {
		logger.Fatalf("backend: %v", err)
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	indexStore, err := bootstrap.OpenIndexStore(cfg)
	if err != nil {
		logger.Fatalf("open index store: %v", err)
	}
	if indexStore != nil {
		defer indexStore.Close()
	}

	ix, err := bootstrap.LoadOrBuildIndex(ctx, cfg, embedder, indexStore, logger)
	if err != nil {
		logger.Fatalf("prepare index: %v", err)
	}

	usage, err := bootstrap.OpenLedger(cfg, logger)
	if err != nil {
		logger.Fatalf("open ledger: %v", err)
	}
	if usage != nil {
		defer usage.Close()
	}

	eng, err := engine.New(engine.Config{
		Index:       ix,
		Backend:     backend,
		Usage:       usage,
		DefaultTopK: cfg.TopK,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}

	rebuild := func(ctx context.Context) (*index.Index, error) {
		ix, err := bootstrap.BuildIndex(ctx, cfg, embedder)
		if err != nil {
			return nil, err
		}
		if indexStore != nil {
			snap := store.Snapshot{
				EmbedderSignature: cfg.EmbedderSignature(),
				Dimension:         embedder.Dimension(),
				Chunks:            ix.Chunks(),
				Vectors:           ix.Vectors(),
			}
			if err := indexStore.Save(ctx, snap); err != nil {
				return nil, err
			}
		}
		return ix, nil
	}

	srv, err := httpserver.New(httpserver.Config{
		Engine:          eng,
		Usage:           usage,
		Rebuild:         rebuild,
		StreamFinalOnly: cfg.StreamFinalOnly,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("http server: %v", err)
	}

	logger.Printf("starting backend=%s embedder=%s docs_dir=%s", cfg.Backend, cfg.Embedder, cfg.DocsDir)
	if err := srv.Start(ctx, cfg.ListenAddr); err != nil {
		logger.Fatalf("http server error: %v", err)
	}
	logger.Printf("shutdown complete")
}
