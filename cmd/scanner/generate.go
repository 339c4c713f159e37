package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
	"github.com/eddiefleurent/strangle-signals/internal/config"
	"github.com/eddiefleurent/strangle-signals/internal/feed"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthetic chain CSV fixtures for backtests",
	RunE: func(cmd *cobra.Command, args []string) error {
		underlying, err := cmd.Flags().GetString("underlying")
		if err != nil {
			log.Fatalf("error getting underlying: %v", err)
		}
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			log.Fatalf("error getting out: %v", err)
		}
		snapshots, err := cmd.Flags().GetInt("snapshots")
		if err != nil {
			log.Fatalf("error getting snapshots: %v", err)
		}
		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			log.Fatalf("error getting interval: %v", err)
		}
		cycles, err := cmd.Flags().GetInt("cycles")
		if err != nil {
			log.Fatalf("error getting cycles: %v", err)
		}

		return runGenerate(cfg, log.StandardLogger(), generateArgs{
			Underlying: underlying,
			OutDir:     out,
			Snapshots:  snapshots,
			Interval:   interval,
			Cycles:     cycles,
		})
	},
}

type generateArgs struct {
	Underlying string
	OutDir     string
	Snapshots  int
	Interval   time.Duration
	Cycles     int
}

func runGenerate(cfg *config.Config, logger *log.Logger, args generateArgs) error {
	if args.Underlying == "" {
		args.Underlying = cfg.Strategy.Underlying
	}
	if args.OutDir == "" {
		args.OutDir = cfg.Data.CSVDir
	}
	if args.OutDir == "" {
		return fmt.Errorf("no output directory: set --out or data.csv_dir")
	}
	if args.Snapshots <= 0 {
		args.Snapshots = 1
	}
	if args.Cycles <= 0 {
		args.Cycles = 1
	}
	if args.Interval <= 0 {
		args.Interval = time.Hour
	}

	if err := os.MkdirAll(args.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	gen := chain.NewGenerator()
	start := time.Now().UTC().Truncate(time.Minute)
	expirations := feed.NextMonthlyExpirations(start, args.Cycles)

	var contracts []chain.Contract
	for i := 0; i < args.Snapshots; i++ {
		quote := start.Add(time.Duration(i) * args.Interval)
		for _, exp := range expirations {
			contracts = append(contracts, gen.Chain(args.Underlying, quote, exp)...)
		}
	}

	path := filepath.Join(args.OutDir, strings.ToLower(args.Underlying)+".csv")
	if err := chain.WriteCSV(path, contracts); err != nil {
		return err
	}

	logger.Infof("Wrote %d contracts across %d snapshots to %s", len(contracts), args.Snapshots, path)
	return nil
}
