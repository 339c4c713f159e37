package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
	"github.com/eddiefleurent/strangle-signals/internal/retry"
	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

// PollerConfig contains configuration for the scan loop.
type PollerConfig struct {
	Interval    time.Duration // time between scans
	CallTimeout time.Duration // budget for one snapshot fetch
}

// DefaultPollerConfig is the default configuration for the scan loop.
var DefaultPollerConfig = PollerConfig{
	Interval:    5 * time.Minute,
	CallTimeout: 30 * time.Second,
}

// Poller drives the selector on a fixed cadence: fetch a snapshot,
// evaluate it, let the selector's sink fan the signal out.
type Poller struct {
	source     Source
	selector   *strategy.StrangleSelector
	retry      *retry.Client
	logger     *log.Logger
	underlying string
	config     PollerConfig
}

// NewPoller creates a scan loop over source for one underlying.
func NewPoller(
	source Source,
	selector *strategy.StrangleSelector,
	underlying string,
	logger *log.Logger,
	config ...PollerConfig,
) *Poller {
	cfg := DefaultPollerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	// Guard against nil logger
	if logger == nil {
		logger = log.New(os.Stderr, "feed: ", log.LstdFlags)
	}

	// Validate and clamp config values
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollerConfig.Interval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultPollerConfig.CallTimeout
	}

	// Validate required dependencies (fail fast to avoid later panics)
	if source == nil {
		panic("feed.NewPoller: source must not be nil")
	}
	if selector == nil {
		panic("feed.NewPoller: selector must not be nil")
	}

	return &Poller{
		source:     source,
		selector:   selector,
		retry:      retry.NewClient(logger),
		logger:     logger,
		underlying: underlying,
		config:     cfg,
	}
}

// WithRetry overrides the retry client (tests, custom pacing).
func (p *Poller) WithRetry(c *retry.Client) *Poller {
	if c != nil {
		p.retry = c
	}
	return p
}

// Run scans on every tick until ctx is canceled. Cancellation is a
// clean shutdown, not an error.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Printf("Starting scan loop for %s every %v", p.underlying, p.config.Interval)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Scan immediately instead of waiting out the first interval.
	if err := p.ScanOnce(ctx); err != nil && !isContextErr(err) {
		p.logger.Printf("Scan failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("Scan loop for %s stopped", p.underlying)
			return nil
		case <-ticker.C:
			if err := p.ScanOnce(ctx); err != nil {
				if isContextErr(err) {
					continue
				}
				p.logger.Printf("Scan failed: %v", err)
			}
		}
	}
}

// ScanOnce runs a single fetch-and-evaluate pass.
func (p *Poller) ScanOnce(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	defer cancel()

	snap, err := retry.DoValue(callCtx, p.retry, "snapshot fetch", func(ctx context.Context) (chain.Snapshot, error) {
		return p.source.Snapshot(ctx, p.underlying)
	})
	if err != nil {
		return err
	}

	sig, err := p.selector.Evaluate(snap)
	if err != nil {
		return fmt.Errorf("evaluating %s snapshot: %w", p.underlying, err)
	}
	if sig == nil {
		p.logger.Printf("No candidate among %d contracts for %s", len(snap.Contracts), p.underlying)
		return nil
	}

	p.logger.Printf("Signal %s: %s %dx %s strangle put %.2f / call %.2f, credit %.2f, DTE %d",
		sig.ID, sig.Side, sig.Quantity, sig.Underlying, sig.Put.Strike, sig.Call.Strike, sig.Credit(), sig.DTE)
	return nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
