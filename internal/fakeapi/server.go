package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

// Config tunes the fake server.
type Config struct {
	// Secret signs issued tokens.
	Secret []byte
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
	// BcryptCost is the password hashing cost. Zero means bcrypt.DefaultCost.
	BcryptCost int
}

// Server serves the task API from memory.
type Server struct {
	cfg    Config
	logger logging.Logger
	router chi.Router
	now    func() time.Time

	mu   sync.Mutex
	data store
}

func New(cfg Config, logger logging.Logger) (*Server, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("fakeapi: secret must be at least 16 bytes")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "fakeapi"),
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Post("/auth/login", s.handleLogin)
	s.router.Post("/auth/register", s.handleRegister)

	s.router.Route("/tasks", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)
		r.Put("/{id}", s.handleUpdateTask)
		r.Delete("/{id}", s.handleDeleteTask)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/users", s.handleAdminUsers)
			r.Get("/all-tasks", s.handleAdminTasks)
		})
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SeedUser adds an account directly, bypassing registration. It is how the
// admin account comes to exist.
func (s *Server) SeedUser(name, email, password string, admin bool) (int64, error) {
	u, err := s.createUser(name, email, password, admin)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", email, err)
	}
	return u.ID, nil
}

// RevokeSessions invalidates every token issued to userID so far.
func (s *Server) RevokeSessions(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.data.userByID(userID); u != nil {
		u.TokenVersion++
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info(ctx, "stopped")
		return nil
	}
}
