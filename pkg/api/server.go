// Package api provides the HTTP monitoring surface: liveness, readiness,
// startup status, and Prometheus metrics. It never triggers attach or sync
// attempts; it only reads state the orchestrator already holds.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/persistfs/persistfs/pkg/types"
)

// StatusSource is the slice of the startup orchestrator the server reads.
type StatusSource interface {
	CurrentStartupFailure() *types.StartupFailure
}

// MountChecker reports whether the bucket is currently attached.
type MountChecker interface {
	IsMounted(ctx context.Context, path, label string) bool
}

// ServerConfig configures the monitoring server.
type ServerConfig struct {
	Address      string        `yaml:"address" json:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// DefaultServerConfig returns the default monitoring server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      "localhost:9090",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server serves the monitoring endpoints.
type Server struct {
	httpServer *http.Server
	source     StatusSource
	checker    MountChecker
	mountPath  string
	config     ServerConfig
	logger     *slog.Logger
}

// NewServer creates the monitoring server. metricsHandler may be nil to
// disable the /metrics endpoint; checker may be nil when mount state is not
// observable.
func NewServer(config ServerConfig, source StatusSource, checker MountChecker, mountPath string, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		source:    source,
		checker:   checker,
		mountPath: mountPath,
		config:    config,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.HandleFunc("/status", s.handleStatus)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting monitoring server", "address", s.config.Address)
	return s.httpServer.ListenAndServe()
}

// StartBackground starts the server in a background goroutine.
func (s *Server) StartBackground() {
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("monitoring server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down monitoring server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"alive":     true,
		"timestamp": time.Now().UTC(),
	})
}

// handleReadiness reports ready unless the last startup attempt failed
// terminally. A worker running degraded without persistent storage still
// accepts traffic.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if failure := s.source.CurrentStartupFailure(); failure != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready":           false,
			"startup_failure": failure,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	response := map[string]any{
		"timestamp": time.Now().UTC(),
	}
	if s.checker != nil {
		response["mounted"] = s.checker.IsMounted(r.Context(), s.mountPath, "status")
		response["mount_path"] = s.mountPath
	}
	if failure := s.source.CurrentStartupFailure(); failure != nil {
		response["startup_failure"] = failure
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{"error": message})
}
