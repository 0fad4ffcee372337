package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escape-trail/internal/app"
	"escape-trail/internal/config"
	"escape-trail/internal/infra/memory"
	infraredis "escape-trail/internal/infra/redis"
	transport "escape-trail/internal/transport/http"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trail server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := connectBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	catalogs, err := buildCatalogRepository(cfg, b)
	if err != nil {
		return err
	}
	// A malformed catalog must stop startup, not a player mid-trail.
	if _, err := catalogs.GetCatalog(ctx, cfg.Catalog.ID); err != nil {
		return err
	}

	hints, err := buildHintService(ctx, cfg, b)
	if err != nil {
		return err
	}

	var store app.SessionRepository
	if b.redis != nil {
		store = infraredis.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}
	service := buildGameService(store, catalogs, hints, cfg)
	wsHandler := transport.NewWSHandler(service, cfg.Catalog.ID)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(wsHandler, catalogs),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Str("catalog", cfg.Catalog.ID).Msg("starting trail service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
