package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/strangle-signals/internal/backtest"
	"github.com/eddiefleurent/strangle-signals/internal/config"
	"github.com/eddiefleurent/strangle-signals/internal/events"
	"github.com/eddiefleurent/strangle-signals/internal/storage"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay recorded chain snapshots and report would-be signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			log.Fatalf("error getting out: %v", err)
		}
		return runBacktest(cmd.Context(), cfg, log.StandardLogger(), out, os.Stdout)
	},
}

func runBacktest(ctx context.Context, cfg *config.Config, logger *log.Logger, outPath string, w io.Writer) error {
	files, err := filepath.Glob(filepath.Join(cfg.Data.CSVDir, "*.csv"))
	if err != nil {
		return fmt.Errorf("listing snapshot files: %w", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no snapshot files found in %s", cfg.Data.CSVDir)
	}

	params, err := cfg.StrategyParams()
	if err != nil {
		return err
	}
	runner, err := backtest.NewRunner(params, logger)
	if err != nil {
		return err
	}
	runner.WithWorkers(cfg.Report.Workers)

	// With --out, emitted signals also flow through the bus into a
	// JSON store, same as a live run would persist them.
	var bus *events.Bus
	if outPath != "" {
		store, err := storage.NewStorage(outPath)
		if err != nil {
			return fmt.Errorf("opening signal store: %w", err)
		}
		bus = events.NewBus(logger)
		if err := events.NewStoreWorker(store, logger).Start(bus); err != nil {
			return fmt.Errorf("starting store worker: %w", err)
		}
		runner.WithSink(bus)
	}

	results, err := runner.Run(ctx, files)
	if err != nil {
		return err
	}
	if bus != nil {
		bus.Wait()
	}

	return backtest.WriteReport(w, results)
}
