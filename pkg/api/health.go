package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/failover/pkg/log"
	"github.com/cuemby/failover/pkg/metrics"
	"github.com/cuemby/failover/pkg/reconciler"
	"github.com/rs/zerolog"
)

// StatusSource reports the last finished reconciliation pass
type StatusSource interface {
	LastSummary() *reconciler.PassSummary
}

// HealthServer provides the HTTP status endpoints of the controller
type HealthServer struct {
	source StatusSource
	next   func() time.Time
	mux    *http.ServeMux
	logger zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHealthServer creates a new status HTTP server. source may be nil.
func NewHealthServer(source StatusSource) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		source: source,
		mux:    mux,
		logger: log.WithComponent("api"),
	}

	// Register endpoints
	mux.HandleFunc("/health", getOnly(metrics.HealthHandler()))
	mux.HandleFunc("/ready", getOnly(metrics.ReadyHandler()))
	mux.HandleFunc("/live", getOnly(metrics.LivenessHandler()))
	mux.HandleFunc("/status", getOnly(hs.statusHandler))
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// WithNextPass reports the scheduler's next fire time on /status
func (hs *HealthServer) WithNextPass(next func() time.Time) *HealthServer {
	hs.next = next
	return hs
}

// Start binds addr and serves in the background
func (hs *HealthServer) Start(addr string) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.server != nil {
		return fmt.Errorf("status server already started")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	hs.listener = listener
	hs.server = &http.Server{
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	server := hs.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error().Err(err).Msg("Status server failed")
		}
	}()

	hs.logger.Info().Str("addr", listener.Addr().String()).Msg("Status server listening")
	return nil
}

// Addr returns the bound address, empty before Start
func (hs *HealthServer) Addr() string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener == nil {
		return ""
	}
	return hs.listener.Addr().String()
}

// Shutdown gracefully stops the server
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	hs.mu.Lock()
	server := hs.server
	hs.server = nil
	hs.listener = nil
	hs.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// StatusResponse represents the /status response
type StatusResponse struct {
	Timestamp time.Time               `json:"timestamp"`
	NextPass  *time.Time              `json:"nextPass,omitempty"`
	LastPass  *reconciler.PassSummary `json:"lastPass,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

// statusHandler implements the /status endpoint
func (hs *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{Timestamp: time.Now()}

	if hs.next != nil {
		if next := hs.next(); !next.IsZero() {
			response.NextPass = &next
		}
	}
	if hs.source != nil {
		response.LastPass = hs.source.LastSummary()
	}
	if response.LastPass == nil {
		response.Message = "no pass has finished yet"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
