// audit_signals - A utility to audit a signal store for consistency
// This script helps identify malformed or suspicious entries before the
// history is fed into analysis or replays.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
	"github.com/eddiefleurent/strangle-signals/internal/config"
	"github.com/eddiefleurent/strangle-signals/internal/storage"
	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

// maskToken masks all but the last 4 characters of an API token to prevent credential exposure
func maskToken(token string) string {
	if len(token) > 4 {
		return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
	}
	return token
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		storePath  = flag.String("store", "", "Signal store to audit (defaults to data.storage_path)")
		jsonOutput = flag.Bool("json", false, "Output results as JSON")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	path := *storePath
	if path == "" {
		path = cfg.Data.StoragePath
	}
	if path == "" {
		log.Fatalf("No store to audit: set data.storage_path or pass -store")
	}

	if *verbose {
		fmt.Printf("Using config: %s\n", *configPath)
		fmt.Printf("Provider: %s (sandbox: %t)\n", cfg.Data.Provider, cfg.Data.Sandbox)
		if cfg.Data.APIKey != "" {
			fmt.Printf("API key: %s\n", maskToken(cfg.Data.APIKey))
		}
		fmt.Printf("Store: %s\n", path)
		fmt.Printf("\n")
	}

	// A store that fails to parse is itself an audit finding.
	store, err := storage.NewStorage(path)
	if err != nil {
		log.Fatalf("Failed to open signal store: %v", err)
	}

	minDTE := -1
	if cfg.Strategy.MinimumDTE != nil {
		minDTE = *cfg.Strategy.MinimumDTE
	}

	fmt.Printf("Auditing signal store...\n")
	report := buildReport(path, store, minDTE)

	// Output results
	if *jsonOutput {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal JSON: %v", err)
		}
		fmt.Println(string(output))
		return
	}

	printReport(report)

	fmt.Printf("=== ANALYSIS ===\n")
	if len(report.Issues) > 0 {
		fmt.Printf("POTENTIAL ISSUES FOUND:\n")
		for i, issue := range report.Issues {
			fmt.Printf("  %d. %s\n", i+1, issue)
		}
	} else {
		fmt.Printf("No obvious issues detected.\n")
	}

	fmt.Printf("\n")
	fmt.Printf("Next steps:\n")
	fmt.Printf("  1. Spot-check flagged signals against the source chain CSVs\n")
	fmt.Printf("  2. Re-run the backtest if entries look stale or duplicated\n")
	fmt.Printf("  3. Remove corrupt entries before feeding the store to analysis\n")
}

// auditReport is the audit output in both modes.
type auditReport struct {
	Store        string         `json:"store"`
	Total        int            `json:"total"`
	ByUnderlying map[string]int `json:"by_underlying"`
	AvgCredit    float64        `json:"avg_credit"`
	Issues       []string       `json:"issues"`
}

func buildReport(path string, store storage.Interface, minDTE int) *auditReport {
	stats := store.Stats()
	return &auditReport{
		Store:        path,
		Total:        stats.Total,
		ByUnderlying: stats.ByUnderlying,
		AvgCredit:    stats.AvgCredit,
		Issues:       analyzeSignals(store.All(), minDTE),
	}
}

func printReport(report *auditReport) {
	fmt.Printf("\n")
	fmt.Printf("=== SIGNAL STORE AUDIT ===\n")
	fmt.Printf("Store:        %s\n", report.Store)
	fmt.Printf("Signals:      %d\n", report.Total)
	for underlying, n := range report.ByUnderlying {
		fmt.Printf("  %-10s %d\n", underlying, n)
	}
	fmt.Printf("Avg credit:   $%.2f\n", report.AvgCredit)
	fmt.Printf("\n")
}

// analyzeSignals flags entries that violate the invariants a selector
// emitted signal always satisfies. minDTE below zero skips the DTE
// floor check.
func analyzeSignals(signals []strategy.Signal, minDTE int) []string {
	var issues []string

	seen := make(map[string]bool)
	for i := range signals {
		sig := &signals[i]
		label := sig.ID
		if label == "" {
			label = fmt.Sprintf("entry %d", i)
			issues = append(issues, fmt.Sprintf("%s has no ID", label))
		}

		if seen[sig.ID] && sig.ID != "" {
			issues = append(issues, fmt.Sprintf("duplicate signal ID %s", sig.ID))
		}
		seen[sig.ID] = true

		if sig.Put.OptionType != chain.OptionTypePut || sig.Call.OptionType != chain.OptionTypeCall {
			issues = append(issues, fmt.Sprintf("%s has mislabeled legs", label))
			continue
		}
		if sig.Put.Strike >= sig.Call.Strike {
			issues = append(issues, fmt.Sprintf("%s has inverted strikes: put %.2f >= call %.2f",
				label, sig.Put.Strike, sig.Call.Strike))
		}
		if !sig.Put.Expiration.Equal(sig.Call.Expiration) {
			issues = append(issues, fmt.Sprintf("%s legs expire on different dates", label))
		}
		if sig.Credit() <= 0 {
			issues = append(issues, fmt.Sprintf("%s has non-positive credit", label))
		}
		if minDTE >= 0 && sig.DTE < minDTE {
			issues = append(issues, fmt.Sprintf("%s entered at %d DTE, below the %d floor",
				label, sig.DTE, minDTE))
		}
	}

	return issues
}
