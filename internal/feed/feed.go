// Package feed delivers option chain snapshots from market data
// providers. The live Tradier client, the synthetic generator, and the
// circuit breaker wrapper all satisfy Source, so the scanner does not
// care where a snapshot came from.
package feed

import (
	"context"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
)

// Source delivers chain snapshots for an underlying.
type Source interface {
	// Snapshot returns the current chain across tracked expirations.
	// Every contract in the result carries the same quote time.
	Snapshot(ctx context.Context, underlying string) (chain.Snapshot, error)

	// Expirations lists upcoming option expirations for the underlying.
	Expirations(ctx context.Context, underlying string) ([]time.Time, error)
}

// SyntheticSource serves generated chains for dry runs without a
// provider key.
type SyntheticSource struct {
	gen    *chain.Generator
	cycles int
}

// NewSyntheticSource builds a synthetic source over gen. A nil gen gets
// randomized defaults. Each snapshot covers the next two monthly
// cycles.
func NewSyntheticSource(gen *chain.Generator) *SyntheticSource {
	if gen == nil {
		gen = chain.NewGenerator()
	}
	return &SyntheticSource{gen: gen, cycles: 2}
}

// Snapshot generates ladders for the upcoming monthly expirations,
// quoted now.
func (s *SyntheticSource) Snapshot(ctx context.Context, underlying string) (chain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return chain.Snapshot{}, err
	}

	now := time.Now().UTC()
	snap := chain.Snapshot{Underlying: underlying}
	for _, exp := range NextMonthlyExpirations(now, s.cycles) {
		snap.Contracts = append(snap.Contracts, s.gen.Chain(underlying, now, exp)...)
	}
	return snap, nil
}

// Expirations lists the upcoming monthly expirations.
func (s *SyntheticSource) Expirations(ctx context.Context, underlying string) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NextMonthlyExpirations(time.Now().UTC(), s.cycles), nil
}

// NextMonthlyExpirations returns the next n monthly expirations strictly
// after from.
func NextMonthlyExpirations(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	year, month := from.Year(), from.Month()
	for len(out) < n {
		exp := chain.MonthlyExpiration(year, month)
		if exp.After(from) {
			out = append(out, exp)
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return out
}

// Ensure implementations satisfy Source at compile time.
var (
	_ Source = (*SyntheticSource)(nil)
	_ Source = (*TradierClient)(nil)
	_ Source = (*CircuitBreakerSource)(nil)
)
