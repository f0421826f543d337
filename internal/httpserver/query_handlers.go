package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/engine"
	"github.com/streamdex/streamdex/internal/index"
)

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	// StreamAll overrides the server's configured streaming scope when
	// present; omitted, the configured default applies.
	StreamAll *bool `json:"stream_all,omitempty"`
}

type queryResponse struct {
	SessionID       string       `json:"session_id"`
	Answer          string       `json:"answer"`
	Sources         []sourceJSON `json:"sources"`
	GenerationCalls int          `json:"generation_calls"`
	Usage           usageJSON    `json:"usage"`
}

type sourceJSON struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type usageJSON struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

type tokenEvent struct {
	Token string `json:"token"`
}

func decodeQueryRequest(r *http.Request) (queryRequest, error) {
	var req queryRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		return req, errors.New("invalid JSON body")
	}
	return req, nil
}

func toQueryResponse(resp engine.Response) queryResponse {
	sources := make([]sourceJSON, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		sources = append(sources, sourceJSON{Path: src.Path, Score: float64(src.Score), Text: src.Text})
	}
	return queryResponse{
		SessionID:       resp.SessionID,
		Answer:          resp.Answer,
		Sources:         sources,
		GenerationCalls: resp.GenerationCalls,
		Usage:           usageJSON{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens},
	}
}

func queryErrorStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, index.ErrEmptyIndex):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	reqStart := time.Now()
	req, err := decodeQueryRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.engine.Query(r.Context(), req.Question, engine.QueryOptions{
		TopK:            req.TopK,
		StreamFinalOnly: true,
	})
	if err != nil {
		s.respondError(w, queryErrorStatus(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, toQueryResponse(resp))
	s.logf("query session=%s calls=%d total_ms=%d", resp.SessionID, resp.GenerationCalls, time.Since(reqStart).Milliseconds())
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	reqStart := time.Now()
	req, err := decodeQueryRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	sink := callback.SinkFunc(func(fragment string) {
		_, _ = io.WriteString(w, "data: ")
		if err := enc.Encode(tokenEvent{Token: fragment}); err != nil {
			return
		}
		_, _ = io.WriteString(w, "\n")
		if flusher != nil {
			flusher.Flush()
		}
	})

	streamFinalOnly := s.streamFinalOnly
	if req.StreamAll != nil {
		streamFinalOnly = !*req.StreamAll
	}
	resp, err := s.engine.Query(r.Context(), req.Question, engine.QueryOptions{
		TopK:            req.TopK,
		Sink:            sink,
		StreamFinalOnly: streamFinalOnly,
	})
	if err != nil {
		// Headers are already committed to the event stream, so errors
		// travel as a data frame rather than an HTTP status.
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		_, _ = io.WriteString(w, "data: "+string(payload)+"\n\n")
		if flusher != nil {
			flusher.Flush()
		}
		return
	}

	final, _ := json.Marshal(toQueryResponse(resp))
	_, _ = io.WriteString(w, "data: "+string(final)+"\n\n")
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
	s.logf("query.stream session=%s calls=%d total_ms=%d", resp.SessionID, resp.GenerationCalls, time.Since(reqStart).Milliseconds())
}
