// Package ollama implements llm.Backend against a local Ollama server using
// its native /api/generate endpoint, which streams newline-delimited JSON.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/streamdex/streamdex/internal/llm"
)

// Ensure Backend implements llm.Backend.
var _ llm.Backend = (*Backend)(nil)

// Backend sends generation requests to a local Ollama instance.
type Backend struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama backend.
type Config struct {
	BaseURL        string // optional, defaults to http://localhost:11434
	Model          string // model tag, e.g. "llama3.2"
	RequestTimeout time.Duration
}

// New creates a Backend instance.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ollama: model required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &Backend{
		baseURL: baseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type generateChunk struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
	Error           string `json:"error"`
}

// Generate sends one request to /api/generate. Ollama always streams NDJSON
// chunks; each chunk's response text is forwarded to the sink when present.
func (b *Backend) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return llm.GenerateResult{}, errors.New("ollama: empty prompt")
	}

	payload := map[string]interface{}{
		"model":  b.model,
		"prompt": req.Prompt,
		"stream": true,
	}
	options := map[string]interface{}{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("ollama: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return llm.GenerateResult{}, fmt.Errorf("ollama: http %d: %s", resp.StatusCode, string(data))
	}

	var full strings.Builder
	usage := llm.Usage{}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return llm.GenerateResult{}, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return llm.GenerateResult{}, fmt.Errorf("ollama: parse stream: %w", err)
		}
		if chunk.Error != "" {
			return llm.GenerateResult{}, fmt.Errorf("ollama: %s", chunk.Error)
		}
		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if req.Sink != nil {
				req.Sink.OnToken(chunk.Response)
			}
		}
		if chunk.Done {
			usage.PromptTokens = chunk.PromptEvalCount
			usage.CompletionTokens = chunk.EvalCount
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return llm.GenerateResult{}, fmt.Errorf("ollama: read stream: %w", err)
	}

	text := full.String()
	if usage.PromptTokens == 0 {
		usage.PromptTokens = llm.ApproximateTokens(req.Prompt)
	}
	if usage.CompletionTokens == 0 {
		usage.CompletionTokens = llm.ApproximateTokens(text)
	}
	return llm.GenerateResult{Text: text, Usage: usage}, nil
}
