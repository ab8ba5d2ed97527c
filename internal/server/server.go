package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/job-hunter/internal/ingestion"
	"github.com/jonathan/job-hunter/internal/pipeline"
	"github.com/jonathan/job-hunter/internal/server/ratelimit"
	"github.com/jonathan/job-hunter/internal/tasks"
	"github.com/jonathan/job-hunter/internal/types"
)

// Pipeline runs the job-search stages, either all at once or one at a time
type Pipeline interface {
	Run(ctx context.Context, inputs types.RunInputs) (*types.CrewResult, error)
	RunWithProgress(ctx context.Context, inputs types.RunInputs, onProgress pipeline.ProgressCallback) (*types.CrewResult, error)
	Search(ctx context.Context, params types.SearchParams) (types.JobList, error)
	Match(ctx context.Context, jobs types.JobList, resume string) (types.RankedJobList, types.ChosenJob, error)
	Resume(ctx context.Context, chosen types.ChosenJob, resume string) (types.ResumeDraft, error)
	Research(ctx context.Context, chosen types.ChosenJob, resume string) (types.CompanyResearch, error)
	Interview(ctx context.Context, chosen types.ChosenJob, draft types.ResumeDraft, research types.CompanyResearch, resume string) (types.InterviewPrep, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	pipeline    Pipeline
	dispatcher  *tasks.Dispatcher
	extractor   ingestion.TextExtractor
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port       int
	Pipeline   Pipeline
	Dispatcher *tasks.Dispatcher       // Defaults to a dispatcher running Pipeline over a fresh store
	Extractor  ingestion.TextExtractor // Defaults to ingestion.PDFExtractor
	RateLimit  *ratelimit.Config       // Defaults to ratelimit.LoadConfig()
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	s := &Server{
		pipeline:   cfg.Pipeline,
		dispatcher: cfg.Dispatcher,
		extractor:  cfg.Extractor,
	}
	if s.dispatcher == nil {
		s.dispatcher = tasks.NewDispatcher(tasks.NewStore(), cfg.Pipeline)
	}
	if s.extractor == nil {
		s.extractor = ingestion.PDFExtractor{}
	}

	rateCfg := cfg.RateLimit
	if rateCfg == nil {
		rateCfg = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rateCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Full pipeline runs
	mux.HandleFunc("POST /crew/kickoff", s.handleKickoff)
	mux.HandleFunc("POST /crew/kickoff/sync", s.handleKickoffSync)
	mux.HandleFunc("POST /crew/kickoff/stream", s.handleKickoffStream)
	mux.HandleFunc("GET /crew/status/{task_id}", s.handleStatus)
	mux.HandleFunc("GET /crew/tasks", s.handleListTasks)

	// Step-by-step pipeline endpoints
	mux.HandleFunc("POST /crew/step/search", s.handleStepSearch)
	mux.HandleFunc("POST /crew/step/match", s.handleStepMatch)
	mux.HandleFunc("POST /crew/step/resume", s.handleStepResume)
	mux.HandleFunc("POST /crew/step/research", s.handleStepResearch)
	mux.HandleFunc("POST /crew/step/interview", s.handleStepInterview)

	port := cfg.Port
	if port == 0 {
		port = 8000
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for synchronous pipeline runs
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Dispatcher returns the dispatcher backing /crew/kickoff
func (s *Server) Dispatcher() *tasks.Dispatcher {
	return s.dispatcher
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	slog.Info("server stopped")
	return err
}

// Shutdown stops accepting requests, then waits for dispatched runs to finish
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.dispatcher.Wait()
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"detail": message})
}

// fail writes err with the status HTTPStatus assigns it
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	s.errorResponse(w, status, detail(err))
}

// extractClientID extracts the client identifier from the request.
// X-Forwarded-For is ignored since it cannot be trusted without a known proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"detail":    "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
