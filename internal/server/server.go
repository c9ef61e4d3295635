// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/KaramelBytes/autostat/internal/pipeline"
	"github.com/KaramelBytes/autostat/internal/store"
	"github.com/KaramelBytes/autostat/internal/table"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options wires the server's collaborators and request defaults.
type Options struct {
	Runner *pipeline.Runner
	Store  *store.Store
	Logger *zap.Logger

	// DefaultObjective applies when research_objective is blank.
	DefaultObjective string
	// WithReport applies when the report field is absent.
	WithReport     bool
	MaxUploadBytes int64
	// FormMemoryBytes caps the upload bytes held in memory; the rest spills
	// to temporary files removed when the request ends.
	FormMemoryBytes int64
	CORSOrigins     []string
	TableOptions    table.Options
	RequestTimeout  time.Duration
}

// Server is the HTTP front end for analysis runs.
type Server struct {
	opts   Options
	log    *zap.Logger
	router *chi.Mux

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// New returns a Server with routes and middleware configured.
func New(o Options) (*Server, error) {
	if o.Runner == nil || o.Store == nil {
		return nil, errors.New("server: runner and store are required")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 32 << 20
	}
	if o.FormMemoryBytes <= 0 || o.FormMemoryBytes > o.MaxUploadBytes {
		o.FormMemoryBytes = min(o.MaxUploadBytes, 8<<20)
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 2 * time.Minute
	}
	if o.TableOptions.MaxRows == 0 {
		o.TableOptions = table.DefaultOptions()
	}
	s := &Server{opts: o, log: o.Logger, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/analyze", s.handleAnalyze)
	s.router.Get("/chart/{filename}", s.handleArtifact(store.Chart, "image/png"))
	s.router.Get("/report/{filename}", s.handleArtifact(store.Report, "application/pdf"))
}

// Start begins listening for HTTP requests and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server = hs
	s.mu.Unlock()

	s.log.Info("starting server", zap.String("addr", addr))
	err := hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	hs := s.server
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one structured line per request with the chi request id.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
