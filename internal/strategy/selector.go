package strategy

import (
	"math"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
)

// SignalSink receives each emitted signal. The sink owns the value once
// handed over; the selector keeps no reference to it or the snapshot.
type SignalSink interface {
	Emit(Signal)
}

// StrangleSelector scans chain snapshots for an actionable strangle.
// All scan state is local to each Evaluate call, so one selector is
// safe to share across goroutines.
type StrangleSelector struct {
	config *Config
	sink   SignalSink
}

// NewStrangleSelector builds a selector around a frozen config. sink
// may be nil; matches are then only returned, not published.
func NewStrangleSelector(config *Config, sink SignalSink) *StrangleSelector {
	return &StrangleSelector{config: config, sink: sink}
}

// Evaluate scans one snapshot in a single pass. It returns the matched
// signal, or nil when the snapshot holds no acceptable pair; finding
// nothing is a normal outcome, not an error. A snapshot that violates
// its structural contract fails with *chain.MalformedSnapshotError.
func (s *StrangleSelector) Evaluate(snapshot chain.Snapshot) (*Signal, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	var bestPut, bestCall *chain.Contract
	for i := range snapshot.Contracts {
		c := &snapshot.Contracts[i]

		if s.config.ExpirationCycle() == CycleMonthly && !isMonthlyExpiration(c.Expiration) {
			continue
		}
		if minDays, ok := s.config.MinimumDTE(); ok && !hasMinimumDTE(c.QuoteTime, c.Expiration, minDays) {
			continue
		}

		switch c.OptionType {
		case chain.OptionTypeCall:
			// Signed compare against the cap, not magnitude.
			if c.Delta <= s.config.MaxCallDelta() {
				if bestCall == nil || closer(c.Delta, bestCall.Delta, s.config.OptCallDelta()) {
					bestCall = c
				}
			}
		case chain.OptionTypePut:
			// Puts sit at or above the cap: -0.10 clears -0.30.
			if c.Delta >= s.config.MaxPutDelta() {
				if bestPut == nil || closer(c.Delta, bestPut.Delta, s.config.OptPutDelta()) {
					bestPut = c
				}
			}
		}
	}

	if bestPut == nil || bestCall == nil {
		return nil, nil
	}
	if bestPut.DTE() != bestCall.DTE() {
		return nil, nil
	}

	signal := newSignal(s.config, *bestPut, *bestCall)
	if s.sink != nil {
		s.sink.Emit(*signal)
	}
	return signal, nil
}

// closer reports whether candidate sits strictly nearer the optimal
// delta than best. Ties keep the earlier contract.
func closer(candidate, best, optimal float64) bool {
	return math.Abs(candidate-optimal) < math.Abs(best-optimal)
}

// isMonthlyExpiration reports whether an expiration belongs to the
// standard monthly cycle. Feed expirations land on Saturday, so the
// check steps back one day and looks for a third Friday (day 15..21).
// Months where a holiday pulls expiration to a Thursday come back
// false.
func isMonthlyExpiration(expiration time.Time) bool {
	adjusted := expiration.AddDate(0, 0, -1)
	return adjusted.Weekday() == time.Friday && adjusted.Day() >= 15 && adjusted.Day() <= 21
}

// hasMinimumDTE reports whether the quote-to-expiration distance meets
// the floor. Zero and negative distances compare normally.
func hasMinimumDTE(quoteTime, expiration time.Time, minimum int) bool {
	return chain.DaysBetween(quoteTime, expiration) >= minimum
}
