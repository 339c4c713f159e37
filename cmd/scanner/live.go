package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/strangle-signals/internal/config"
	"github.com/eddiefleurent/strangle-signals/internal/dashboard"
	"github.com/eddiefleurent/strangle-signals/internal/events"
	"github.com/eddiefleurent/strangle-signals/internal/feed"
	"github.com/eddiefleurent/strangle-signals/internal/storage"
	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Poll a market data provider and publish signals as they appear",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd.Context(), cfg, log.StandardLogger())
	},
}

func buildSource(cfg *config.Config) (feed.Source, error) {
	switch cfg.Data.Provider {
	case "tradier":
		client := feed.NewTradierClient(cfg.Data.APIKey, cfg.Data.Sandbox)
		if cfg.Data.WindowDays > 0 {
			client.WithWindow(cfg.Data.WindowDays)
		}
		return feed.NewCircuitBreakerSource(client), nil
	case "synthetic":
		return feed.NewSyntheticSource(nil), nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
	}
}

func runLive(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	params, err := cfg.StrategyParams()
	if err != nil {
		return err
	}
	strategyCfg, err := strategy.NewConfig(params)
	if err != nil {
		return err
	}

	store, err := storage.NewStorage(cfg.Data.StoragePath)
	if err != nil {
		return fmt.Errorf("opening signal store: %w", err)
	}

	bus := events.NewBus(logger)
	if err := events.NewStoreWorker(store, logger).Start(bus); err != nil {
		return fmt.Errorf("starting store worker: %w", err)
	}

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}
	selector := strategy.NewStrangleSelector(strategyCfg, bus)

	pollCfg := feed.DefaultPollerConfig
	pollCfg.Interval = cfg.PollInterval()
	feedLogger := stdlog.New(logger.WriterLevel(log.InfoLevel), "", 0)
	poller := feed.NewPoller(source, selector, cfg.Strategy.Underlying, feedLogger, pollCfg)

	var srv *dashboard.Server
	if cfg.Dashboard.Enabled {
		srv = dashboard.NewServer(dashboard.Config{
			Addr:      cfg.Dashboard.Listen,
			AuthToken: cfg.Dashboard.AuthToken,
		}, store, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("dashboard server failed")
			}
		}()
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, stopping scanner...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Infof("Starting live scan for %s via %s provider", cfg.Strategy.Underlying, cfg.Data.Provider)
	runErr := poller.Run(ctx)

	// Flush in-flight signal deliveries before tearing anything down.
	bus.Wait()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("dashboard shutdown failed")
		}
	}

	logger.Info("Scanner stopped")
	return runErr
}
