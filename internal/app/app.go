package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
	"chatrelay/internal/pubsub"
	"chatrelay/internal/store"
	"chatrelay/internal/store/sqlite"
	transporthttp "chatrelay/internal/transport/http"
)

// App wires together store, core, and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	publisher       *pubsub.Publisher
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	hub := core.NewHub(logger)

	// In-process fan-out by default; with redis configured, the publisher
	// becomes the broadcaster and its relay feeds the local hub, so
	// multiple relay instances share one topic space.
	var broadcaster core.Broadcaster = hub
	var publisher *pubsub.Publisher
	if cfg.RedisAddr != "" {
		publisher = pubsub.New(cfg.RedisAddr, logger)
		broadcaster = publisher
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("redis fan-out enabled")
	}

	service := core.NewService(st, broadcaster, logger)
	server := transporthttp.NewServer(service, hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		publisher:       publisher,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	if a.publisher != nil {
		go func() {
			if err := a.publisher.Run(ctx, a.hub); err != nil && ctx.Err() == nil {
				a.log.Error().Err(err).Msg("pubsub relay stopped")
			}
		}()
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close pubsub client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
