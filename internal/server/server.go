package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/communitylink/communitylink/internal/bootstrap"
	"github.com/communitylink/communitylink/internal/config"
)

const (
	shutdownTimeout = 10 * time.Second
	idleTimeout     = 2 * time.Minute
)

// Server runs the HTTP listener together with the live feed hub and the token
// janitor, and owns the storage they share.
type Server struct {
	cfg     *config.Config
	storage *bootstrap.Storage
	deps    *bootstrap.Dependencies
	http    *http.Server
	logger  zerolog.Logger
}

// NewServer opens and migrates storage and wires every handler
func NewServer(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Server, error) {
	storage, err := bootstrap.OpenStorage(ctx, cfg, lgr, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	s := &Server{cfg: cfg, storage: storage, logger: lgr}

	if s.deps, err = bootstrap.BuildDependencies(ctx, cfg, storage.Store, lgr); err != nil {
		s.release()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}
	router, err := bootstrap.SetupRouter(cfg, s.deps, lgr)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	s.http = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 10*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 10*time.Second),
		IdleTimeout:  idleTimeout,
	}
	return s, nil
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the listener
// fails, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go s.deps.Hub.Run(ctx)
	go runTokenJanitor(ctx, s.deps.Store.Tokens(), tokenSweepInterval, s.logger)

	listenErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Str("baseURL", s.cfg.Server.BaseURL).Msg("HTTP server listening")
		listenErr <- s.http.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		stop()
		s.release()
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested")
	}
	stop()
	return s.Shutdown(context.Background())
}

// Shutdown drains in-flight requests for up to shutdownTimeout and releases
// dependencies and storage.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var err error
	if s.http != nil {
		if err = s.http.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
		} else {
			err = nil
			s.logger.Info().Msg("HTTP server stopped")
		}
	}
	s.release()
	return err
}

func (s *Server) release() {
	if s.deps != nil {
		s.deps.Close()
		s.deps = nil
	}
	if s.storage != nil {
		s.logger.Info().Msg("Closing database connections")
		s.storage.Close()
		s.storage = nil
	}
}
