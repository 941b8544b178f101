package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speedrun-hq/zora-runner/pkg/batch"
	"github.com/speedrun-hq/zora-runner/pkg/chainclient"
	"github.com/speedrun-hq/zora-runner/pkg/circuitbreaker"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
)

// ProgressFunc reports the progress of the running batch
type ProgressFunc func() batch.Progress

// Server represents a health check HTTP server
type Server struct {
	port          string
	clients       []*chainclient.Client
	breaker       *circuitbreaker.CircuitBreaker
	progress      ProgressFunc
	metricsAPIKey string
	logger        logger.Logger

	server *http.Server
}

// NewServer creates a new health check server. clients are the monitoring
// connections whose last sampled gas price is reported by /status.
func NewServer(port, metricsAPIKey string, clients []*chainclient.Client, breaker *circuitbreaker.CircuitBreaker, progress ProgressFunc, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	s := &Server{
		port:          port,
		clients:       clients,
		breaker:       breaker,
		progress:      progress,
		metricsAPIKey: metricsAPIKey,
		logger:        log,
	}
	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Ready while the batch is running and not paused by the breaker
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.progress != nil && !s.progress().Running {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Batch not running"))
			return
		}
		if s.breaker != nil && s.breaker.IsOpen() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Batch paused"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/circuit/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if s.breaker == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("No circuit breaker"))
			return
		}
		s.breaker.Reset()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Circuit breaker reset"))
	})

	// Expose Prometheus metrics with API key authentication
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]interface{})

	chains := make(map[string]interface{}, len(s.clients))
	for _, client := range s.clients {
		cfg := client.Config()
		chainStatus := map[string]interface{}{
			"chain_id": client.ChainID().String(),
			"explorer": cfg.ExplorerURL,
			"eip1559":  cfg.EIP1559,
		}
		if price := client.LastGasPrice(); price != nil {
			chainStatus["gas_price"] = price.String()
		}
		chains[client.Name()] = chainStatus
	}
	status["chains"] = chains

	if s.breaker != nil {
		circuit := "closed"
		if s.breaker.IsOpen() {
			circuit = "open"
		}
		failures, _, window, threshold := s.breaker.GetState()
		status["circuit"] = map[string]interface{}{
			"enabled":   s.breaker.IsEnabled(),
			"state":     circuit,
			"failures":  failures,
			"threshold": threshold,
			"window":    window.String(),
		}
	}

	if s.progress != nil {
		p := s.progress()
		counts := make(map[string]int, len(p.Counts))
		for st, n := range p.Counts {
			counts[st.String()] = n
		}
		status["batch"] = map[string]interface{}{
			"total":   p.Total,
			"done":    p.Done,
			"skipped": p.Skipped,
			"current": p.Current,
			"running": p.Running,
			"counts":  counts,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

// Start serves the routes until Shutdown is called
func (s *Server) Start() {
	s.logger.Info("Starting health and metrics server on port %s", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Health server error: %v", err)
	}
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown health server: %w", err)
	}
	return nil
}
