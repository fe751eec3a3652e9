package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/interfaces/http/middleware"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const limiterIdle = 10 * time.Minute

// Server runs the API until its context ends, then drains in-flight
// requests for at most ShutdownTimeout.
type Server struct {
	srv     *http.Server
	cfg     config.ServerConfig
	limiter *middleware.TokenBucket
	logger  logging.Logger
}

// NewServer builds the router from rc. A token bucket is created when the
// server config enables rate limiting.
func NewServer(cfg config.ServerConfig, rc RouterConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{cfg: cfg, logger: logger.Named("server")}
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewTokenBucket(cfg.RateLimit, cfg.RateLimitBurst)
		rc.Limiter = s.limiter
	}
	rc.Server = cfg
	if rc.Logger == nil {
		rc.Logger = logger
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(rc),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run listens on the configured port.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeServiceUnavailable, "listen on %s", s.srv.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	if s.limiter != nil {
		go s.sweep(ctx)
	}

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "http server failed")
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("shutting down http server", logging.Duration("timeout", timeout))
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, "http server shutdown failed")
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	t := time.NewTicker(limiterIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.limiter.Sweep(limiterIdle); n > 0 {
				s.logger.Debug("dropped idle rate limit buckets", logging.Int("count", n))
			}
		}
	}
}
