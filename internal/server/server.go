package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nao1215/immoscan/internal/database"
	"github.com/nao1215/immoscan/internal/model"
)

// DefaultAddr is the listen address used when none is given.
const DefaultAddr = "127.0.0.1:8080"

// shutdownTimeout bounds how long in-flight requests may take after the
// serving context is cancelled.
const shutdownTimeout = 5 * time.Second

// Store is the read side of the crawl history.
// *database.CrawlDB implements it.
type Store interface {
	ListCrawls(ctx context.Context) ([]database.CrawlMetadata, error)
	GetCrawl(ctx context.Context, id string) (*model.CrawlResult, error)
	GetLatestCrawls(ctx context.Context, baseURL string, n int) ([]*model.CrawlResult, error)
	ListingHistory(ctx context.Context, url string) ([]database.ListingObservation, error)
}

// Server serves the history API.
type Server struct {
	store  Store
	logger *slog.Logger
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server reading from store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/crawls", s.handleListCrawls).Methods(http.MethodGet)
	api.HandleFunc("/crawls/{id}", s.handleGetCrawl).Methods(http.MethodGet)
	api.HandleFunc("/crawls/{id}/summary", s.handleCrawlSummary).Methods(http.MethodGet)
	api.HandleFunc("/listings/history", s.handleListingHistory).Methods(http.MethodGet)
	api.HandleFunc("/compare", s.handleCompare).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router = r

	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving history API", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
