package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "loopback" || cfg.Embedder != "hash" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.TopK != 3 || !cfg.StreamFinalOnly {
		t.Fatalf("unexpected query defaults %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamdex.yaml")
	content := []byte("backend: ollama\nollama_model: mistral\ntop_k: 5\nstream_final_only: false\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "ollama" || cfg.OllamaModel != "mistral" {
		t.Fatalf("file values not applied %+v", cfg)
	}
	if cfg.TopK != 5 || cfg.StreamFinalOnly {
		t.Fatalf("query overrides not applied %+v", cfg)
	}
	// Untouched keys keep defaults.
	if cfg.ChunkSize != 512 {
		t.Fatalf("default lost: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamdex.yaml")
	if err := os.WriteFile(path, []byte("top_k: 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STREAMDEX_TOP_K", "7")
	t.Setenv("STREAMDEX_BACKEND", "loopback")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopK != 7 {
		t.Fatalf("env override not applied: %d", cfg.TopK)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STREAMDEX_BACKEND", "gpt-neo")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadRejectsOpenAIWithoutKey(t *testing.T) {
	t.Setenv("STREAMDEX_BACKEND", "openai")
	t.Setenv("STREAMDEX_OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("backend: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEmbedderSignature(t *testing.T) {
	cfg := Default()
	if cfg.EmbedderSignature() != "hash:256" {
		t.Fatalf("unexpected signature %q", cfg.EmbedderSignature())
	}
	cfg.Embedder = "openai"
	cfg.EmbeddingModel = "text-embedding-3-small"
	cfg.EmbeddingDimension = 1536
	if cfg.EmbedderSignature() != "openai:text-embedding-3-small:1536" {
		t.Fatalf("unexpected signature %q", cfg.EmbedderSignature())
	}
}
