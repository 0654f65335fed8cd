package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hatchpoint/clienthub/internal/api"
	"github.com/hatchpoint/clienthub/internal/config"
	"github.com/hatchpoint/clienthub/internal/event"
	"github.com/hatchpoint/clienthub/internal/health"
	"github.com/hatchpoint/clienthub/internal/metrics"
	"github.com/hatchpoint/clienthub/internal/notify"
	"github.com/hatchpoint/clienthub/internal/refresh"
	"github.com/hatchpoint/clienthub/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting clienthub server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Storage
	ds, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer ds.Close()

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("sqlite", func(ctx context.Context) health.Status {
		if err := ds.DB().PingContext(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	// Metrics
	m := metrics.New()

	// Slack notifier (optional)
	var notifier refresh.ReadyNotifier
	if cfg.SlackEnabled() {
		notifier = notify.New(cfg.SlackBotToken, cfg.SlackChannel, logger)
		logger.Info().Str("channel", cfg.SlackChannel).Msg("Slack notifications enabled")
	} else {
		logger.Info().Msg("Slack not configured, readiness transitions are log-only")
	}

	// Workflow event pipeline: one dispatcher fans ingested events out to
	// every refresh coordinator. Each dashboard scope owns its cooldown
	// state and its own reloader.
	dispatcher := event.NewDispatcher(cfg.EventBuffer, logger)

	scopes := []config.DashboardScope{{
		Name:     "admin",
		Entities: cfg.EventEntityList(),
		Cooldown: cfg.EventCooldown,
	}}
	if cfg.DashboardsFile != "" {
		extra, err := config.LoadDashboards(cfg.DashboardsFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DashboardsFile).Msg("failed to load dashboard scopes")
		}
		scopes = append(scopes, extra...)
	}

	for _, scope := range scopes {
		scope := scope
		reloader := refresh.NewReloader(scope.Name, ds, notifier, m, logger)
		coord := refresh.New(refresh.Config{
			Name:      scope.Name,
			Entities:  scope.Entities,
			ProjectID: scope.Project,
			Cooldown:  scope.Cooldown,
		}, func() {
			go reloader.Run(ctx)
		}, logger)
		dispatcher.Subscribe(func(env event.Envelope) {
			action := coord.HandleEvent(env)
			if env.Event != nil {
				m.RecordEvent(env.Event.Entity, action.String())
			}
		})
		logger.Info().
			Str("scope", scope.Name).
			Strs("entities", scope.Entities).
			Msg("refresh coordinator registered")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	// API server
	handlers := api.NewHandlers(ds, dispatcher, checker, m, api.Options{
		UpcomingHorizonDays: cfg.UpcomingHorizonDays,
		UpcomingLimit:       cfg.UpcomingLimit,
		WebhookSecret:       cfg.WebhookSecret,
	}, logger)
	server := api.NewServer(api.ServerConfig{
		ListenAddr: cfg.ListenAddr,
		Auth: api.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
	}, handlers, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", cfg.ListenAddr).Msg("API server starting")
		if err := server.Listen(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("clienthub server stopped")
}
