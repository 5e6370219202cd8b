package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"watchface-scraper/extractor"
	"watchface-scraper/internal/types"
)

// runTimeout bounds a single scrape triggered over HTTP
const runTimeout = 15 * time.Minute

// APIResponse represents the response from the API
type APIResponse struct {
	Success bool                   `json:"success"`
	Data    *types.ReconcileResult `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Server holds the API server configuration
type Server struct {
	logger  *logrus.Logger
	config  *types.Config
	running atomic.Bool

	// run performs one scrape; replaced in tests
	run func(ctx context.Context) (types.ReconcileResult, error)
}

// NewServer creates a new API server
func NewServer() (*Server, error) {
	// Load .env file if present
	_ = godotenv.Load()

	logger := types.NewLogger(false)

	config, err := types.LoadConfig(os.Getenv("SCRAPER_CONFIG"))
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()

	s := &Server{
		logger: logger,
		config: config,
	}
	s.run = func(ctx context.Context) (types.ReconcileResult, error) {
		return extractor.NewWatchfaceExtractor(s.config, s.logger).Run(ctx)
	}
	return s, nil
}

// handleRun starts one scrape and reports its counts. Only one scrape runs
// at a time; concurrent requests get 409.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Only allow POST requests
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.running.CompareAndSwap(false, true) {
		s.sendError(w, "A scrape is already running", http.StatusConflict)
		return
	}
	defer s.running.Store(false)

	s.logger.Info("API request received for a scrape run")

	// The scrape outlives a dropped client connection
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
	defer cancel()

	result, err := s.run(ctx)
	if err != nil {
		status := http.StatusBadGateway
		var initErr *types.InitializationError
		if errors.As(err, &initErr) {
			status = http.StatusServiceUnavailable
		}
		s.sendError(w, err.Error(), status)
		return
	}

	response := APIResponse{
		Success: true,
		Data:    &result,
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode error response: %v", err)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"running": s.running.Load(),
	})
}

// Handler returns the server routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the API server
func (s *Server) Start(port string) error {
	s.logger.Infof("Starting API server on port %s", port)
	s.logger.Info("Available endpoints:")
	s.logger.Info("  POST /run    - Scrape the listing and reconcile into the store")
	s.logger.Info("  GET  /health - Health check")

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func main() {
	// Get port from environment variable, default to 8080
	serverPort := "8080"
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		serverPort = envPort
	}

	server, err := NewServer()
	if err != nil {
		types.NewLogger(false).Fatalf("Failed to create server: %v", err)
	}

	if err := server.Start(serverPort); err != nil {
		server.logger.Fatalf("API server stopped: %v", err)
	}
}
