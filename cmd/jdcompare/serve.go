package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spetersoncode/jdcompare/client"
	"github.com/spetersoncode/jdcompare/internal/logging"
	"github.com/spetersoncode/jdcompare/internal/retry"
	"github.com/spetersoncode/jdcompare/relay"
	"github.com/spetersoncode/jdcompare/server"
)

const (
	shutdownTimeout = 30 * time.Second
	eventBuffer     = 64
)

func newServeCmd() *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides JDCOMPARE_HOST)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides JDCOMPARE_PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *Config) error {
	logger, err := logging.Init(cfg.Log)
	if err != nil {
		logger.Warn("log file unavailable, writing to stderr", "file", cfg.Log.File, "error", err)
	}

	st, backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan client.Event, eventBuffer)
	go client.LogEvents(ctx, events, logger)

	retryConfig := retry.DefaultConfig().WithAttempts(cfg.RetryAttempts)
	registry := client.New(client.Config{
		OpenAI:      cfg.OpenAI,
		Anthropic:   cfg.Anthropic,
		Google:      cfg.Google,
		RetryConfig: &retryConfig,
		Events:      events,
		Logger:      logger,
	})

	srv := server.New(server.Config{
		Relay:          relay.New(registry, st, relay.WithLogger(logger)),
		Providers:      registry,
		Workspaces:     st,
		ProviderNames:  registry.Names(),
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("server starting",
		"addr", httpServer.Addr,
		"store", backend,
		"providers", registry.Names(),
		"configured", cfg.ConfiguredProviders(),
		"cors_origins", cfg.CORSOrigins,
	)
	if len(cfg.ConfiguredProviders()) == 0 {
		logger.Warn("no provider API keys configured; chat and label requests will be rejected")
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-stopped
		return err
	}

	<-stopped
	logger.Info("server stopped")
	return nil
}
