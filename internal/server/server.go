// Package server provides the HTTP server for the lipread system.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/app"
	"github.com/ayusman/lipread/internal/server/api"
	"github.com/ayusman/lipread/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	Logger    zerolog.Logger
}

// Server represents the HTTP server for the lipread application.
type Server struct {
	config   Config
	mux      *http.ServeMux
	start    time.Time
	logger   zerolog.Logger
	eventsWS *EventsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger.With().Str("component", "server").Logger(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	var vocab store.Vocabulary

	if a := s.config.App; a != nil {
		vocab = a.Patterns().Vocabulary()

		// A deleted word must not stay debounced when it is trained again.
		patterns := api.NewPatternHandler(a.Patterns(), func(string) { a.Classifier().Reset() }, s.logger)
		s.mux.Handle("/api/patterns", patterns)
		s.mux.Handle("/api/patterns/", patterns)

		s.mux.Handle("/api/vocabulary", api.NewVocabularyHandler(a))
		s.mux.Handle("/api/training", api.NewTrainingHandler(a))

		s.eventsWS = NewEventsHandler(a, s.logger)
		s.mux.Handle("/api/events", s.eventsWS)
		s.mux.Handle("/api/stream", NewStreamHandler(a))
	}

	if s.config.Store != nil {
		actions := api.NewActionHandler(s.config.Store, vocab)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["enabled"] = a.IsEnabled()
		response["running"] = a.Running()
		response["last_word"] = a.LastWord()
		response["classifier"] = a.Classifier().State()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
