// Package openai implements llm.Backend against any OpenAI-compatible
// /chat/completions endpoint (OpenAI itself, Azure-compatible gateways, or
// local servers such as llama.cpp and vLLM).
package openai

import (
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

// Backend sends generation requests to an OpenAI-compatible API.
type Backend struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	org        string // optional organization ID
}

// Config holds configuration for the OpenAI backend.
type Config struct {
	APIKey         string
	BaseURL        string // optional, defaults to https://api.openai.com/v1
	Model          string
	Organization   string // optional
	RequestTimeout time.Duration
}

// New creates a Backend instance.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai: model required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Backend{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		org:     cfg.Organization,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chunkChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type streamChunk struct {
	Choices []chunkChoice `json:"choices"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate sends one chat completion request. With a sink on the request the
// call streams server-sent events and forwards each content delta to the
// sink as it arrives; without one it performs a plain completion.
func (b *Backend) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return llm.GenerateResult{}, errors.New("openai: empty prompt")
	}

	payload := map[string]interface{}{
		"model":    b.model,
		"messages": []chatMessage{{Role: "user", Content: req.Prompt}},
		"stream":   req.Sink != nil,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	if b.org != "" {
		httpReq.Header.Set("OpenAI-Organization", b.org)
	}
	if req.Sink != nil {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("openai: send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return llm.GenerateResult{}, decodeAPIError(resp)
	}

	if req.Sink != nil {
		return b.consumeStream(ctx, resp, req)
	}
	return b.consumeCompletion(resp, req)
}

func (b *Backend) consumeCompletion(resp *http.Response, req llm.GenerateRequest) (llm.GenerateResult, error) {
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.GenerateResult{}, fmt.Errorf("openai: read response: %w", err)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return llm.GenerateResult{}, fmt.Errorf("openai: unmarshal response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return llm.GenerateResult{}, errors.New("openai: no choices in response")
	}

	usage := llm.Usage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}
	if usage.PromptTokens == 0 {
		usage.PromptTokens = llm.ApproximateTokens(req.Prompt)
	}
	text := completion.Choices[0].Message.Content
	if usage.CompletionTokens == 0 {
		usage.CompletionTokens = llm.ApproximateTokens(text)
	}
	return llm.GenerateResult{Text: text, Usage: usage}, nil
}

// consumeStream reads SSE frames and forwards content deltas to the sink.
func (b *Backend) consumeStream(ctx context.Context, resp *http.Response, req llm.GenerateRequest) (llm.GenerateResult, error) {
	defer resp.Body.Close()

	var full strings.Builder
	handleLine := func(line string) error {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			return nil
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			return nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return fmt.Errorf("openai: parse stream: %w", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				full.WriteString(choice.Delta.Content)
				req.Sink.OnToken(choice.Delta.Content)
			}
		}
		return nil
	}

	buf := make([]byte, 8192)
	leftover := ""
	for {
		select {
		case <-ctx.Done():
			return llm.GenerateResult{}, ctx.Err()
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			data := leftover + string(buf[:n])
			lines := strings.Split(data, "\n")
			leftover = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				if perr := handleLine(line); perr != nil {
					return llm.GenerateResult{}, perr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return llm.GenerateResult{}, fmt.Errorf("openai: read stream: %w", err)
		}
	}
	// A lenient server may close the stream without terminating the last
	// frame with a newline.
	if err := handleLine(leftover); err != nil {
		return llm.GenerateResult{}, err
	}

	text := full.String()
	return llm.GenerateResult{
		Text: text,
		Usage: llm.Usage{
			PromptTokens:     llm.ApproximateTokens(req.Prompt),
			CompletionTokens: llm.ApproximateTokens(text),
		},
	}, nil
}

func decodeAPIError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("openai: %s (type=%s, code=%s)", errResp.Error.Message, errResp.Error.Type, errResp.Error.Code)
	}
	return fmt.Errorf("openai: http %d: %s", resp.StatusCode, string(respBody))
}
