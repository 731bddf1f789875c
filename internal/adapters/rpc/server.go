// Package rpc exposes the daemon over a local JSON-RPC 2.0 endpoint.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tessera-ledger/go-client/internal/platform/ratelimiter"
	"tessera-ledger/go-client/pkg/models"
)

const DefaultAddr = "127.0.0.1:9917"

// DaemonService is what the RPC surface needs from the application layer.
type DaemonService interface {
	Allocate(ctx context.Context, address string) (models.Allocation, error)
	Synchronize(ctx context.Context, address string) (models.SyncResult, error)
	Status(address string) (models.AccountStatus, error)
	DeriveAddress(mnemonic string) (models.DerivedAccount, error)
}

type Options struct {
	Addr string
	// Token guards /rpc when non-empty; requests present it as a bearer
	// token or via X-Seqd-RPC-Token.
	Token          string
	RateLimitRPS   float64
	RateLimitBurst int
	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

type Server struct {
	httpServer *http.Server
	service    DaemonService
	token      string
	limiter    *ratelimiter.Keyed
	logger     *slog.Logger
}

func NewServer(svc DaemonService, opts Options) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		service: svc,
		token:   opts.Token,
		limiter: ratelimiter.New(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute),
		logger:  logger,
	}
	if s.token == "" {
		logger.Warn("rpc token is not set; RPC auth disabled", "component", "rpc")
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) authorize(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	if auth := r.Header.Get("Authorization"); auth == "Bearer "+s.token {
		return true
	}
	return r.Header.Get("X-Seqd-RPC-Token") == s.token
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
