// Package diagserver exposes a minimal HTTP introspection surface over a
// flash in progress: current session phase and bytes transferred since
// the last flash started. It is read-only by design -- nothing about a
// session can be driven over HTTP, only observed.
package diagserver

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi"
)

// Status is the point-in-time snapshot diagserver reports.
type Status struct {
	Phase            string `json:"phase"`
	BytesTransferred uint64 `json:"bytes_transferred"`
	LastError        string `json:"last_error,omitempty"`
}

// Server tracks a Status under a mutex and serves it over HTTP. The
// zero value is not usable; construct one with New.
type Server struct {
	mu     sync.Mutex
	status Status
	router chi.Router
}

// New builds a Server with its routes already bound.
func New() *Server {
	s := &Server{}
	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Get("/list-of-routes", s.handleListRoutes)
	r.Get("/probe", s.handleProbe)
	s.router = r
	return s
}

// Router returns the chi router so a caller can Mount it under its own
// stem, or pass it directly to http.ListenAndServe.
func (s *Server) Router() chi.Router { return s.router }

// SetStatus replaces the reported status. Safe to call from the session
// thread while diagserver.Router serves a separate goroutine.
func (s *Server) SetStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// ProgressFunc returns a session.ProgressFunc-compatible callback that
// accumulates bytes transferred into the reported status, so a caller
// wiring up a flash can pass diagServer.ProgressFunc(phase) straight to
// session.Session.Flash.
func (s *Server) ProgressFunc(phase string) func(uint64) {
	return func(n uint64) {
		s.mu.Lock()
		s.status.Phase = phase
		s.status.BytesTransferred += n
		s.mu.Unlock()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	routes := []string{"/status", "/list-of-routes", "/probe"}
	if err := json.NewEncoder(w).Encode(routes); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// probeResult is what /probe reports about a TCP target's reachability.
type probeResult struct {
	Addr      string `json:"addr"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// handleProbe dials addr (?addr=host:port) with an exponential backoff
// like transport.Dial's but with shorter limits (2 s per attempt, 1 s
// maximum interval, 3 s in total), so an operator can check whether a
// wireless target is up before starting a session without reaching for
// a second tool.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("addr")
	if addr == "" {
		http.Error(w, "missing addr query parameter", http.StatusBadRequest)
		return
	}

	var lastErr error
	op := func() error {
		conn, err := net.DialTimeout("tcp4", addr, 2*time.Second)
		if err != nil {
			lastErr = err
			return err
		}
		conn.Close()
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock,
	})

	result := probeResult{Addr: addr, Reachable: err == nil}
	if err != nil {
		result.Error = lastErr.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
