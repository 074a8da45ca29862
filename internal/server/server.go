// Package server exposes project intake over HTTP. Creating a project always
// answers 201 once the record is saved; folder provisioning problems come
// back as warnings in the body.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/tonimelisma/projectfolders/internal/project"
)

const (
	maxBodyBytes      = 64 << 10
	readHeaderTimeout = 10 * time.Second
)

// Projects is the project lifecycle the server drives.
type Projects interface {
	Create(ctx context.Context, name, comment string) (*project.Result, error)
	Reprovision(ctx context.Context, id int64) (*project.Result, error)
	Get(ctx context.Context, id int64) (*project.Project, error)
	List(ctx context.Context) ([]*project.Project, error)
}

// Options configures a Server.
type Options struct {
	Logger    *slog.Logger
	RateLimit float64 // requests per second across all clients, 0 disables
	RateBurst int
}

// Server routes HTTP requests to the project service.
type Server struct {
	projects Projects
	logger   *slog.Logger
	validate *validator.Validate
	router   chi.Router
}

// New builds a Server and its routes.
func New(projects Projects, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		projects: projects,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(newRateLimiter(opts.RateLimit, opts.RateBurst).middleware)
		}

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Post("/{id}/folder", s.handleReprovision)
		})
	})

	s.router = r

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down", slog.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

// requestLogger logs one line per request at debug level, and failures at
// warn.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
