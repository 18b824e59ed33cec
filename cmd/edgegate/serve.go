package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/oddslab/edgegate/internal/application"
	"github.com/oddslab/edgegate/internal/artifacts"
	"github.com/oddslab/edgegate/internal/cache"
	httpiface "github.com/oddslab/edgegate/internal/interfaces/http"
	"github.com/oddslab/edgegate/internal/metrics"
	"github.com/oddslab/edgegate/internal/persistence/postgres"
	"github.com/oddslab/edgegate/internal/quotes"
	"github.com/oddslab/edgegate/internal/swarm"

	goredis "github.com/go-redis/redis/v8"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the EdgeGate HTTP API",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := application.LoadServerConfig(configPath)
	if err != nil {
		return err
	}

	deps := httpiface.Deps{
		Settings: application.NewSettingsStore(cfg.DataDir),
		Sink:     artifacts.NewFSSink(cfg.DataDir),
		Metrics:  metrics.NewRegistry(),
		DataDir:  cfg.DataDir,
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("opportunity feed cache enabled")
	}
	deps.Feed = cache.NewFeed(cfg.DataDir, rdb, cfg.RedisTTL())

	if cfg.Postgres.DSN != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		deps.Repo = postgres.NewPositionsRepo(db, cfg.PostgresTimeout())
		log.Info().Msg("position repository enabled")
	}

	if cfg.Quotes.URL != "" {
		deps.Quotes = quotes.NewProvider(quotes.Config{
			BaseURL:           cfg.Quotes.URL,
			RequestsPerSecond: cfg.Quotes.RequestsPerSecond,
			Timeout:           time.Duration(cfg.Quotes.TimeoutSeconds) * time.Second,
		})
		log.Info().Str("url", cfg.Quotes.URL).Msg("quote refresher enabled")
	}

	serverCfg := httpiface.DefaultServerConfig()
	serverCfg.Host = cfg.Listen.Host
	serverCfg.Port = cfg.Listen.Port

	server, err := httpiface.NewServer(serverCfg, deps)
	if err != nil {
		return err
	}

	settings, err := deps.Settings.Get()
	if err != nil {
		return err
	}
	limits := swarm.Clamp(settings.RequestedSwarmAgents, settings.AccountType, swarm.MachineCap())
	log.Info().
		Str("addr", server.Address()).
		Int("machine_cap", limits.MachineCap).
		Int("tier_cap", limits.TierCap).
		Int("effective", limits.Effective).
		Msg("edgegate ready")

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
