package strategy

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
)

// Monthly expirations are the Saturdays after third Fridays; Sep 13
// follows a second Friday and stays weekly.
var (
	testQuote	= time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC)
	monthlyOctExp	= time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC)
	monthlySepExp	= time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	weeklySepExp	= time.Date(2025, 9, 13, 0, 0, 0, 0, time.UTC)
	monthlyNovExp	= time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC)
)

// recordingSink collects emitted signals.
type recordingSink struct {
	signals []Signal
}

func (r *recordingSink) Emit(sig Signal) {
	r.signals = append(r.signals, sig)
}

func testConfig(t *testing.T, mutate func(*Params)) *Config {
	t.Helper()
	p := baseParams()
	if mutate != nil {
		mutate(&p)
	}
	cfg, err := NewConfig(p)
	if err != nil {
		t.Fatalf("NewConfig() error: %v", err)
	}
	return cfg
}

func leg(typ chain.OptionType, delta float64, expiration time.Time) chain.Contract {
	return chain.Contract{
		Symbol:     fmt.Sprintf("%s/%s/%+.2f", typ, expiration.Format("060102"), delta),
		Underlying: "SPY",
		OptionType: typ,
		Strike:     450,
		Expiration: expiration,
		QuoteTime:  testQuote,
		Delta:      delta,
		Bid:        1.20,
		Ask:        1.30,
	}
}

func snapshotOf(contracts ...chain.Contract) chain.Snapshot {
	return chain.Snapshot{Underlying: "SPY", Contracts: contracts}
}

func TestEvaluatePicksClosestDeltaPair(t *testing.T) {
	sink := &recordingSink{}
	selector := NewStrangleSelector(testConfig(t, nil), sink)

	snap := snapshotOf(
		leg(chain.OptionTypeCall, 0.28, monthlyOctExp),
		leg(chain.OptionTypeCall, 0.16, monthlyOctExp),
		leg(chain.OptionTypeCall, 0.35, monthlyOctExp), // above cap, out
		leg(chain.OptionTypePut, -0.12, monthlyOctExp),
		leg(chain.OptionTypePut, -0.19, monthlyOctExp),
		leg(chain.OptionTypePut, -0.45, monthlyOctExp), // below cap, out
	)

	sig, err := selector.Evaluate(snap)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if sig == nil {
		t.Fatal("Evaluate() = nil, expected a signal")
	}

	if sig.Call.Delta != 0.16 {
		t.Errorf("call delta = %v, expected 0.16", sig.Call.Delta)
	}
	if sig.Put.Delta != -0.19 {
		t.Errorf("put delta = %v, expected -0.19", sig.Put.Delta)
	}
	if sig.DTE != 33 {
		t.Errorf("DTE = %d, expected 33", sig.DTE)
	}
	if !sig.QuoteTime.Equal(testQuote) {
		t.Errorf("QuoteTime = %v, expected %v", sig.QuoteTime, testQuote)
	}
	if sig.Underlying != "SPY" || sig.Side != Sell || sig.Quantity != 2 {
		t.Errorf("strategy context lost: %+v", sig)
	}
	if sig.Strategy != "strangle" {
		t.Errorf("Strategy = %q, expected strangle", sig.Strategy)
	}

	legs := sig.Legs()
	if legs[0].OptionType != chain.OptionTypePut || legs[1].OptionType != chain.OptionTypeCall {
		t.Errorf("Legs() ordering = %s then %s, expected put then call", legs[0].OptionType, legs[1].OptionType)
	}

	if len(sink.signals) != 1 {
		t.Fatalf("sink received %d signals, expected 1", len(sink.signals))
	}
	if sink.signals[0].ID != sig.ID {
		t.Error("sink saw a different signal than the caller")
	}
}

func TestEvaluateDeterministicAcrossCalls(t *testing.T) {
	selector := NewStrangleSelector(testConfig(t, nil), nil)
	snap := snapshotOf(
		leg(chain.OptionTypeCall, 0.22, monthlyOctExp),
		leg(chain.OptionTypeCall, 0.11, monthlyOctExp),
		leg(chain.OptionTypePut, -0.14, monthlyOctExp),
		leg(chain.OptionTypePut, -0.26, monthlyOctExp),
	)

	first, err := selector.Evaluate(snap)
	if err != nil || first == nil {
		t.Fatalf("first Evaluate() = %v, %v", first, err)
	}
	second, err := selector.Evaluate(snap)
	if err != nil || second == nil {
		t.Fatalf("second Evaluate() = %v, %v", second, err)
	}

	if first.Put.Symbol != second.Put.Symbol || first.Call.Symbol != second.Call.Symbol {
		t.Errorf("selection changed between identical calls: %s/%s vs %s/%s",
			first.Put.Symbol, first.Call.Symbol, second.Put.Symbol, second.Call.Symbol)
	}
	if first.ID == second.ID {
		t.Error("distinct evaluations shared a signal ID")
	}
}

func TestEvaluateTieKeepsFirstSeen(t *testing.T) {
	// 0.14 and 0.18 sit exactly 0.02 from the 0.16 target.
	early := leg(chain.OptionTypeCall, 0.14, monthlyOctExp)
	late := leg(chain.OptionTypeCall, 0.18, monthlyOctExp)
	put := leg(chain.OptionTypePut, -0.16, monthlyOctExp)

	selector := NewStrangleSelector(testConfig(t, nil), nil)

	sig, err := selector.Evaluate(snapshotOf(early, late, put))
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if sig.Call.Symbol != early.Symbol {
		t.Errorf("tie went to %s, expected first-seen %s", sig.Call.Symbol, early.Symbol)
	}

	// Reversed input order flips the winner.
	sig, err = selector.Evaluate(snapshotOf(late, early, put))
	if err != nil || sig == nil {
		t.Fatalf("reversed Evaluate() = %v, %v", sig, err)
	}
	if sig.Call.Symbol != late.Symbol {
		t.Errorf("reversed tie went to %s, expected first-seen %s", sig.Call.Symbol, late.Symbol)
	}
}

func TestEvaluateDeltaCapBoundaries(t *testing.T) {
	selector := NewStrangleSelector(testConfig(t, nil), nil)

	// Exactly at the caps is still eligible on both sides.
	sig, err := selector.Evaluate(snapshotOf(
		leg(chain.OptionTypeCall, 0.30, monthlyOctExp),
		leg(chain.OptionTypePut, -0.30, monthlyOctExp),
	))
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if sig.Call.Delta != 0.30 || sig.Put.Delta != -0.30 {
		t.Errorf("boundary contracts not selected: %+v", sig)
	}

	// Deep in-the-money call fails the signed compare outright.
	sig, err = selector.Evaluate(snapshotOf(
		leg(chain.OptionTypeCall, 0.92, monthlyOctExp),
		leg(chain.OptionTypePut, -0.16, monthlyOctExp),
	))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if sig != nil {
		t.Errorf("ITM call slipped the cap: %+v", sig.Call)
	}

	// A barely-negative put clears a -0.30 cap.
	sig, err = selector.Evaluate(snapshotOf(
		leg(chain.OptionTypeCall, 0.16, monthlyOctExp),
		leg(chain.OptionTypePut, -0.05, monthlyOctExp),
	))
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if sig.Put.Delta != -0.05 {
		t.Errorf("put delta = %v, expected -0.05", sig.Put.Delta)
	}
}

func TestEvaluateDegeneratePositivePutCap(t *testing.T) {
	// A positive put cap excludes every real put; the comparison is
	// taken literally rather than repaired.
	cfg := testConfig(t, func(p *Params) {
		p.Strangle.MaxPutDelta = 0.10
	})
	selector := NewStrangleSelector(cfg, nil)

	sig, err := selector.Evaluate(snapshotOf(
		leg(chain.OptionTypeCall, 0.16, monthlyOctExp),
		leg(chain.OptionTypePut, -0.16, monthlyOctExp),
		leg(chain.OptionTypePut, -0.02, monthlyOctExp),
	))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if sig != nil {
		t.Errorf("expected no signal under a positive put cap, got %+v", sig)
	}
}

func TestEvaluateRequiresBothLegs(t *testing.T) {
	selector := NewStrangleSelector(testConfig(t, nil), nil)

	tests := []struct {
		name string
		snap chain.Snapshot
	}{
		{name: "empty snapshot", snap: snapshotOf()},
		{name: "calls only", snap: snapshotOf(leg(chain.OptionTypeCall, 0.16, monthlyOctExp))},
		{name: "puts only", snap: snapshotOf(leg(chain.OptionTypePut, -0.16, monthlyOctExp))},
		{
			name: "all candidates filtered out",
			snap: snapshotOf(
				leg(chain.OptionTypeCall, 0.55, monthlyOctExp),
				leg(chain.OptionTypePut, -0.55, monthlyOctExp),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := selector.Evaluate(tt.snap)
			if err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			if sig != nil {
				t.Errorf("Evaluate() = %+v, expected nil", sig)
			}
		})
	}
}

func TestEvaluateRejectsSplitExpirations(t *testing.T) {
	sink := &recordingSink{}
	selector := NewStrangleSelector(testConfig(t, nil), sink)

	// The best put lands on November while the only call is October.
	// An October put exists, but the selector does not fall back to it.
	snap := snapshotOf(
		leg(chain.OptionTypePut, -0.16, monthlyNovExp),
		leg(chain.OptionTypePut, -0.25, monthlyOctExp),
		leg(chain.OptionTypeCall, 0.16, monthlyOctExp),
	)

	sig, err := selector.Evaluate(snap)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if sig != nil {
		t.Errorf("split expirations produced a signal: put %s call %s", sig.Put.Symbol, sig.Call.Symbol)
	}
	if len(sink.signals) != 0 {
		t.Errorf("sink received %d signals, expected none", len(sink.signals))
	}
}

func TestEvaluateMonthlyCycleFilter(t *testing.T) {
	monthly := testConfig(t, func(p *Params) {
		p.ExpirationCycle = CycleMonthly
	})

	// The weekly pair is a perfect delta match but the cycle filter
	// removes it before scoring.
	snap := snapshotOf(
		leg(chain.OptionTypeCall, 0.16, weeklySepExp),
		leg(chain.OptionTypePut, -0.16, weeklySepExp),
		leg(chain.OptionTypeCall, 0.20, monthlySepExp),
		leg(chain.OptionTypePut, -0.20, monthlySepExp),
	)

	sig, err := NewStrangleSelector(monthly, nil).Evaluate(snap)
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if !sig.Call.Expiration.Equal(monthlySepExp) || !sig.Put.Expiration.Equal(monthlySepExp) {
		t.Errorf("selection left the monthly cycle: %+v", sig)
	}

	// Without the restriction the weekly pair wins on delta distance.
	unrestricted := NewStrangleSelector(testConfig(t, nil), nil)
	sig, err = unrestricted.Evaluate(snap)
	if err != nil || sig == nil {
		t.Fatalf("unrestricted Evaluate() = %v, %v", sig, err)
	}
	if !sig.Call.Expiration.Equal(weeklySepExp) {
		t.Errorf("unrestricted selection = %v, expected weekly expiration", sig.Call.Expiration)
	}
}

func TestEvaluateMinimumDTEFilter(t *testing.T) {
	nearExp := time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC) // 25 days from the quote

	cfg := testConfig(t, func(p *Params) {
		p.MinimumDTE = intPtr(30)
	})
	selector := NewStrangleSelector(cfg, nil)

	snap := snapshotOf(
		leg(chain.OptionTypeCall, 0.16, nearExp),
		leg(chain.OptionTypePut, -0.16, nearExp),
		leg(chain.OptionTypeCall, 0.21, monthlyOctExp), // 33 days out
		leg(chain.OptionTypePut, -0.21, monthlyOctExp),
	)

	sig, err := selector.Evaluate(snap)
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if !sig.Call.Expiration.Equal(monthlyOctExp) {
		t.Errorf("short-dated contracts passed a 30 day floor: %+v", sig.Call)
	}

	// A floor equal to the distance keeps the contract.
	atFloor := testConfig(t, func(p *Params) { p.MinimumDTE = intPtr(33) })
	sig, err = NewStrangleSelector(atFloor, nil).Evaluate(snap)
	if err != nil || sig == nil {
		t.Fatalf("at-floor Evaluate() = %v, %v", sig, err)
	}

	// One day beyond the longest expiration empties the field.
	beyond := testConfig(t, func(p *Params) { p.MinimumDTE = intPtr(34) })
	sig, err = NewStrangleSelector(beyond, nil).Evaluate(snap)
	if err != nil {
		t.Fatalf("beyond-floor Evaluate() error: %v", err)
	}
	if sig != nil {
		t.Errorf("contracts passed an unreachable floor: %+v", sig)
	}
}

func TestEvaluateExpiredContractsStillPair(t *testing.T) {
	// With no floor configured, a chain quoted after expiration is
	// still a legal pairing with a negative DTE.
	lateQuote := time.Date(2025, 10, 20, 14, 30, 0, 0, time.UTC)
	put := leg(chain.OptionTypePut, -0.16, monthlyOctExp)
	call := leg(chain.OptionTypeCall, 0.16, monthlyOctExp)
	put.QuoteTime = lateQuote
	call.QuoteTime = lateQuote

	selector := NewStrangleSelector(testConfig(t, nil), nil)
	sig, err := selector.Evaluate(snapshotOf(put, call))
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if sig.DTE != -2 {
		t.Errorf("DTE = %d, expected -2", sig.DTE)
	}
}

func TestEvaluateMalformedSnapshot(t *testing.T) {
	sink := &recordingSink{}
	selector := NewStrangleSelector(testConfig(t, nil), sink)

	put := leg(chain.OptionTypePut, -0.16, monthlyOctExp)
	call := leg(chain.OptionTypeCall, 0.16, monthlyOctExp)
	call.QuoteTime = testQuote.Add(10 * time.Minute)

	sig, err := selector.Evaluate(snapshotOf(put, call))
	if err == nil {
		t.Fatal("Evaluate() = nil error for a mixed-quote-time snapshot")
	}
	var malformed *chain.MalformedSnapshotError
	if !errors.As(err, &malformed) {
		t.Fatalf("error type = %T, expected *chain.MalformedSnapshotError", err)
	}
	if sig != nil {
		t.Errorf("Evaluate() returned a signal alongside the error: %+v", sig)
	}
	if len(sink.signals) != 0 {
		t.Errorf("sink received %d signals from a malformed snapshot", len(sink.signals))
	}
}

func TestEvaluateDoesNotMutateSnapshot(t *testing.T) {
	selector := NewStrangleSelector(testConfig(t, nil), nil)
	snap := snapshotOf(
		leg(chain.OptionTypeCall, 0.16, monthlyOctExp),
		leg(chain.OptionTypePut, -0.16, monthlyOctExp),
	)
	before := make([]chain.Contract, len(snap.Contracts))
	copy(before, snap.Contracts)

	if _, err := selector.Evaluate(snap); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	for i := range before {
		if snap.Contracts[i] != before[i] {
			t.Errorf("contract %d mutated during evaluation", i)
		}
	}
}

func TestEvaluateConcurrentUse(t *testing.T) {
	selector := NewStrangleSelector(testConfig(t, nil), nil)
	snap := snapshotOf(
		leg(chain.OptionTypeCall, 0.22, monthlyOctExp),
		leg(chain.OptionTypeCall, 0.15, monthlyOctExp),
		leg(chain.OptionTypePut, -0.18, monthlyOctExp),
	)

	var wg sync.WaitGroup
	results := make([]*Signal, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sig, err := selector.Evaluate(snap)
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			results[i] = sig
		}(i)
	}
	wg.Wait()

	for i, sig := range results {
		if sig == nil {
			t.Fatalf("goroutine %d got no signal", i)
		}
		if sig.Call.Delta != 0.15 || sig.Put.Delta != -0.18 {
			t.Errorf("goroutine %d selected %v/%v", i, sig.Put.Delta, sig.Call.Delta)
		}
	}
}

func TestIsMonthlyExpiration(t *testing.T) {
	tests := []struct {
		name       string
		expiration time.Time
		expected   bool
	}{
		{
			name:       "saturday after third friday",
			expiration: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
			expected:   true,
		},
		{
			name:       "saturday after second friday",
			expiration: time.Date(2025, 9, 13, 0, 0, 0, 0, time.UTC),
			expected:   false,
		},
		{
			name:       "saturday after fourth friday",
			expiration: time.Date(2025, 9, 27, 0, 0, 0, 0, time.UTC),
			expected:   false,
		},
		{
			name:       "friday itself is not the feed convention",
			expiration: time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC),
			expected:   false,
		},
		{
			name:       "lower boundary day 15",
			expiration: time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC),
			expected:   true,
		},
		{
			name:       "upper boundary day 21",
			expiration: time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC),
			expected:   true,
		},
		{
			name:       "day 14 friday misses the window",
			expiration: time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
			expected:   false,
		},
		{
			name:       "day 22 friday misses the window",
			expiration: time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC),
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMonthlyExpiration(tt.expiration); got != tt.expected {
				t.Errorf("isMonthlyExpiration(%v) = %v, expected %v", tt.expiration.Format("2006-01-02"), got, tt.expected)
			}
		})
	}
}

func TestHasMinimumDTE(t *testing.T) {
	quote := time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration time.Time
		minimum    int
		expected   bool
	}{
		{"comfortably above", time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC), 25, true},
		{"exactly at floor", time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC), 33, true},
		{"one short", time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC), 34, false},
		{"same day against zero floor", time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), 0, true},
		{"expired against zero floor", time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC), 0, false},
		{"expired against negative floor", time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC), -5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasMinimumDTE(quote, tt.expiration, tt.minimum); got != tt.expected {
				t.Errorf("hasMinimumDTE(%v, %d) = %v, expected %v", tt.expiration.Format("2006-01-02"), tt.minimum, got, tt.expected)
			}
		})
	}
}

func TestSignalCredit(t *testing.T) {
	put := leg(chain.OptionTypePut, -0.16, monthlyOctExp)
	put.Bid, put.Ask = 1.20, 1.30
	call := leg(chain.OptionTypeCall, 0.16, monthlyOctExp)
	call.Bid, call.Ask = 0.90, 1.00

	selector := NewStrangleSelector(testConfig(t, nil), nil)
	sig, err := selector.Evaluate(snapshotOf(put, call))
	if err != nil || sig == nil {
		t.Fatalf("Evaluate() = %v, %v", sig, err)
	}
	if math.Abs(sig.Credit()-2.20) > 1e-9 {
		t.Errorf("Credit() = %v, expected 2.20", sig.Credit())
	}
}
