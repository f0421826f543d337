// Package config loads runtime configuration from a YAML file with
// environment variable overrides (STREAMDEX_*).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes runtime options for the CLI and the daemon.
type Config struct {
	// Backend selects the generation backend: loopback, openai, ollama.
	Backend string `yaml:"backend"`
	// Embedder selects the embedder: hash, openai.
	Embedder string `yaml:"embedder"`

	// DocsDir is the directory of plain-text documents to index.
	DocsDir string `yaml:"docs_dir"`

	// OpenAI-compatible backend settings.
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	// Ollama backend settings.
	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`

	// Embedding settings.
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`

	// Chunking parameters (runes).
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Query defaults.
	TopK            int  `yaml:"top_k"`
	StreamFinalOnly bool `yaml:"stream_final_only"`

	// Persistence.
	IndexPath   string `yaml:"index_path"`   // sqlite file for the index snapshot
	PostgresDSN string `yaml:"postgres_dsn"` // when set, overrides the sqlite index store
	LedgerPath  string `yaml:"ledger_path"`  // sqlite file for the usage ledger

	// Serving and logging.
	ListenAddr string `yaml:"listen_addr"`
	LogFile    string `yaml:"log_file"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Backend:            "loopback",
		Embedder:           "hash",
		DocsDir:            "docs",
		OpenAIModel:        "gpt-4o-mini",
		OllamaModel:        "llama3.2",
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDimension: 256,
		ChunkSize:          512,
		ChunkOverlap:       64,
		TopK:               3,
		StreamFinalOnly:    true,
		IndexPath:          "data/index.db",
		LedgerPath:         "data/ledger.db",
		ListenAddr:         ":8390",
	}
}

// Load reads the config file at path (optional) and applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	setString("STREAMDEX_BACKEND", &cfg.Backend)
	setString("STREAMDEX_EMBEDDER", &cfg.Embedder)
	setString("STREAMDEX_DOCS_DIR", &cfg.DocsDir)
	setString("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	setString("STREAMDEX_OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	setString("STREAMDEX_OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	setString("STREAMDEX_OPENAI_MODEL", &cfg.OpenAIModel)
	setString("STREAMDEX_OLLAMA_BASE_URL", &cfg.OllamaBaseURL)
	setString("STREAMDEX_OLLAMA_MODEL", &cfg.OllamaModel)
	setString("STREAMDEX_EMBEDDING_MODEL", &cfg.EmbeddingModel)
	setInt("STREAMDEX_EMBEDDING_DIMENSION", &cfg.EmbeddingDimension)
	setInt("STREAMDEX_CHUNK_SIZE", &cfg.ChunkSize)
	setInt("STREAMDEX_CHUNK_OVERLAP", &cfg.ChunkOverlap)
	setInt("STREAMDEX_TOP_K", &cfg.TopK)
	setBool("STREAMDEX_STREAM_FINAL_ONLY", &cfg.StreamFinalOnly)
	setString("STREAMDEX_INDEX_PATH", &cfg.IndexPath)
	setString("STREAMDEX_POSTGRES_DSN", &cfg.PostgresDSN)
	setString("STREAMDEX_LEDGER_PATH", &cfg.LedgerPath)
	setString("STREAMDEX_LISTEN_ADDR", &cfg.ListenAddr)
	setString("STREAMDEX_LOG_FILE", &cfg.LogFile)
}

func (c Config) validate() error {
	switch c.Backend {
	case "loopback", "openai", "ollama":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Embedder {
	case "hash", "openai":
	default:
		return fmt.Errorf("config: unknown embedder %q", c.Embedder)
	}
	if c.Backend == "openai" && strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("config: openai backend requires an api key")
	}
	if c.Embedder == "openai" && strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("config: openai embedder requires an api key")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("config: chunk_overlap %d incompatible with chunk_size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("config: top_k must be positive, got %d", c.TopK)
	}
	return nil
}

// EmbedderSignature identifies the embedder configuration that produced an
// index snapshot, so stale snapshots are detected on load.
func (c Config) EmbedderSignature() string {
	if c.Embedder == "openai" {
		return fmt.Sprintf("openai:%s:%d", c.EmbeddingModel, c.EmbeddingDimension)
	}
	return fmt.Sprintf("hash:%d", c.EmbeddingDimension)
}
