// Package web provides an HTTP status server and command endpoint for the
// bench-rover daemon.
package web

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sweeney/bench-rover/internal/status"
	"github.com/sweeney/bench-rover/internal/transport"
)

// maxCommandBytes bounds a POST /command body.
const maxCommandBytes = 256

// DefaultCommandTimeout is how long POST /command waits for the control loop.
const DefaultCommandTimeout = 10 * time.Second

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	requests   chan<- transport.Request
	timeout    time.Duration
}

// New creates a Server that reads state from the given tracker. Commands
// posted to /command are enqueued on requests; a nil requests disables the
// endpoint.
func New(addr string, tracker *status.Tracker, requests chan<- transport.Request) *Server {
	s := &Server{tracker: tracker, requests: requests, timeout: DefaultCommandTimeout}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/command", s.handleCommand)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleCommand runs one command line through the control loop and returns
// the lines it produced.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.requests == nil {
		http.Error(w, "commands disabled", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "command too long", http.StatusRequestEntityTooLarge)
		return
	}
	line := strings.TrimSpace(string(body))
	if line == "" {
		http.Error(w, "empty command", http.StatusBadRequest)
		return
	}
	if strings.ContainsAny(line, "\r\n") {
		http.Error(w, "one command per request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	buf := transport.NewBufferResponder("HTTP")
	req := transport.Request{Line: line, From: buf, Done: make(chan struct{})}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		http.Error(w, "control loop busy", http.StatusServiceUnavailable)
		return
	}
	select {
	case <-req.Done:
	case <-ctx.Done():
		http.Error(w, "command timed out", http.StatusGatewayTimeout)
		return
	}

	if wantsJSON(r.Header.Get("Accept"), r.URL.Query().Get("format")) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(formatCommandJSON(line, buf.Lines()))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(formatCommandText(buf.Lines()))
}
