// Command scanner generates short strangle entry signals from option
// chain snapshots, either replayed from CSV recordings or polled from a
// live market data provider.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/strangle-signals/internal/config"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Scan option chains for short strangle entry signals",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}

		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level, err := log.ParseLevel(cfg.Environment.LogLevel)
		if err != nil {
			level = log.InfoLevel
		}
		log.SetLevel(level)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to configuration file")

	backtestCmd.Flags().String("out", "", "JSON file to persist emitted signals (optional)")
	generateCmd.Flags().String("underlying", "", "Underlying symbol (defaults to strategy.underlying)")
	generateCmd.Flags().String("out", "", "Output directory (defaults to data.csv_dir)")
	generateCmd.Flags().Int("snapshots", 3, "Number of snapshot times to generate")
	generateCmd.Flags().Duration("interval", time.Hour, "Spacing between snapshot times")
	generateCmd.Flags().Int("cycles", 2, "Number of monthly expirations to cover")

	rootCmd.AddCommand(backtestCmd, liveCmd, generateCmd)

	cobra.CheckErr(rootCmd.Execute())
}
