package chain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCSVRoundTrip(t *testing.T) {
	quote1 := time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC)
	quote2 := time.Date(2025, 9, 16, 14, 30, 0, 0, time.UTC)
	exp := time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC)

	// Interleave quote times so grouping has to reorder.
	contracts := []Contract{
		{Symbol: "A", Underlying: "SPY", OptionType: OptionTypePut, Strike: 440, Expiration: exp, QuoteTime: quote2, Delta: -0.18, Bid: 1.00, Ask: 1.10, Last: 1.05, Volume: 10, OpenInterest: 100},
		{Symbol: "B", Underlying: "SPY", OptionType: OptionTypeCall, Strike: 460, Expiration: exp, QuoteTime: quote1, Delta: 0.17, Bid: 0.90, Ask: 1.00, Last: 0.95, Volume: 20, OpenInterest: 200},
		{Symbol: "C", Underlying: "SPY", OptionType: OptionTypePut, Strike: 445, Expiration: exp, QuoteTime: quote1, Delta: -0.21, Bid: 1.20, Ask: 1.30, Last: 1.25, Volume: 30, OpenInterest: 300},
		{Symbol: "D", Underlying: "SPY", OptionType: OptionTypeCall, Strike: 465, Expiration: exp, QuoteTime: quote2, Delta: 0.14, Bid: 0.70, Ask: 0.80, Last: 0.75, Volume: 40, OpenInterest: 400},
	}

	path := filepath.Join(t.TempDir(), "chain.csv")
	if err := WriteCSV(path, contracts); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	snaps, err := LoadSnapshots(path)
	if err != nil {
		t.Fatalf("LoadSnapshots() error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, expected 2", len(snaps))
	}
	if !snaps[0].QuoteTime().Equal(quote1) || !snaps[1].QuoteTime().Equal(quote2) {
		t.Fatalf("snapshots out of order: %v, %v", snaps[0].QuoteTime(), snaps[1].QuoteTime())
	}

	// File order within a quote time is preserved.
	first := snaps[0].Contracts
	if len(first) != 2 || first[0].Symbol != "B" || first[1].Symbol != "C" {
		t.Fatalf("first snapshot contracts = %+v, expected B then C", first)
	}

	got := first[1]
	if got.OptionType != OptionTypePut || got.Strike != 445 || got.Delta != -0.21 {
		t.Errorf("contract fields lost in round trip: %+v", got)
	}
	if !got.Expiration.Equal(exp) {
		t.Errorf("expiration = %v, expected %v", got.Expiration, exp)
	}
	if got.Volume != 30 || got.OpenInterest != 300 {
		t.Errorf("volume/open interest lost: %+v", got)
	}
	for _, snap := range snaps {
		if err := snap.Validate(); err != nil {
			t.Errorf("round-tripped snapshot invalid: %v", err)
		}
	}
}

func TestLoadSnapshotsNormalizesOptionType(t *testing.T) {
	csv := "underlying,symbol,option_type,strike,expiration,quote_time,delta,bid,ask,last,volume,open_interest\n" +
		"SPY,X,CALL,450,2025-10-18,2025-09-15T14:30:00Z,0.25,1,1.1,1.05,5,50\n"
	path := filepath.Join(t.TempDir(), "chain.csv")
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	snaps, err := LoadSnapshots(path)
	if err != nil {
		t.Fatalf("LoadSnapshots() error: %v", err)
	}
	if len(snaps) != 1 || len(snaps[0].Contracts) != 1 {
		t.Fatalf("unexpected shape: %+v", snaps)
	}
	if got := snaps[0].Contracts[0].OptionType; got != OptionTypeCall {
		t.Errorf("option type = %q, expected %q", got, OptionTypeCall)
	}
}

func TestLoadSnapshotsBadExpiration(t *testing.T) {
	csv := "underlying,symbol,option_type,strike,expiration,quote_time,delta,bid,ask,last,volume,open_interest\n" +
		"SPY,X,call,450,10/18/2025,2025-09-15T14:30:00Z,0.25,1,1.1,1.05,5,50\n"
	path := filepath.Join(t.TempDir(), "chain.csv")
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := LoadSnapshots(path)
	if err == nil {
		t.Fatal("LoadSnapshots() = nil error, expected parse failure")
	}
	if !strings.Contains(err.Error(), "bad expiration") {
		t.Errorf("error %q does not mention bad expiration", err.Error())
	}
}

func TestLoadSnapshotsMissingFile(t *testing.T) {
	if _, err := LoadSnapshots(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("LoadSnapshots() = nil error for missing file")
	}
}
