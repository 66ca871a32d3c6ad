// Package health serves the keep-alive endpoint used by uptime monitors.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liuran001/LFGBot-Go/bot"
)

// AliveText is the body of GET /.
const AliveText = "LFG Bot is Alive!"

// StoreReporter exposes the store breaker state and a connection check.
type StoreReporter interface {
	BreakerState() string
	Ping(ctx context.Context) error
}

// Status is the body of GET /healthz.
type Status struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime"`
}

const pingTimeout = 2 * time.Second

type Server struct {
	addr    string
	store   StoreReporter
	version string
	started time.Time
	logger  bot.Logger
	srv     *http.Server
}

func New(addr string, store StoreReporter, version string, logger bot.Logger) *Server {
	s := &Server{
		addr:    addr,
		store:   store,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.serveAlive)
	r.Get("/healthz", s.serveStatus)
	return r
}

func (s *Server) serveAlive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(AliveText))
}

// serveStatus answers 503 while the store breaker is open or the database
// does not answer a ping.
func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:   "ok",
		Store:    "unknown",
		Database: "unknown",
		Version:  s.version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	}
	code := http.StatusOK
	if s.store != nil {
		status.Store = s.store.BreakerState()
		status.Database = "ok"

		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := s.store.Ping(ctx)
		cancel()
		if err != nil {
			status.Database = "unreachable"
			if s.logger != nil {
				s.logger.Warn("health ping failed", "error", err)
			}
		}
		if status.Store == "open" || err != nil {
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("health endpoint listening", "addr", ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
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
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
