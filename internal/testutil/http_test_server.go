// Package testutil provides HTTP helpers for testing streaming backends.
package testutil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
)

// IPv4Server is an HTTP server bound to the IPv4 loopback interface. Unlike
// the recorder-based helpers it exercises real connection flushing, which is
// what streaming clients depend on.
type IPv4Server struct {
	URL    string
	server *http.Server
}

// NewIPv4Server starts a server for handler and skips the test when no tcp4
// loopback is available.
func NewIPv4Server(t *testing.T, handler http.Handler) *IPv4Server {
	t.Helper()
	if handler == nil {
		handler = http.NewServeMux()
	}
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: tcp4 loopback unavailable (%v)", err)
	}
	s := &IPv4Server{
		URL:    "http://" + l.Addr().String(),
		server: &http.Server{Handler: handler},
	}
	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("IPv4Server serve error: %v", err)
		}
	}()
	return s
}

// Close shuts down the underlying server and frees resources.
func (s *IPv4Server) Close() {
	_ = s.server.Shutdown(context.Background())
}

// SSEHandler serves the given payloads as server-sent events, one "data:"
// frame per payload, terminated with "data: [DONE]". Each frame is flushed
// individually so clients observe incremental delivery.
func SSEHandler(payloads ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		flusher, _ := w.(http.Flusher)
		for _, p := range payloads {
			_, _ = io.WriteString(w, "data: "+p+"\n\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	})
}

// NDJSONHandler serves the given lines as newline-delimited JSON, flushing
// after each line.
func NDJSONHandler(lines ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}
