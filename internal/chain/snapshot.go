package chain

import (
	"fmt"
	"time"
)

// MalformedSnapshotError reports a snapshot whose contracts break the
// single-quote-time contract or carry incomplete fields. Evaluation of
// such a snapshot stops at the first violation; there is no partial
// recovery.
type MalformedSnapshotError struct {
	Reason string
}

func (e *MalformedSnapshotError) Error() string {
	return "malformed snapshot: " + e.Reason
}

// Snapshot is one point-in-time view of an option chain: every contract
// quoted at the same instant.
type Snapshot struct {
	Underlying string
	Contracts  []Contract
}

// QuoteTime returns the shared quote timestamp, or the zero time for an
// empty snapshot.
func (s Snapshot) QuoteTime() time.Time {
	if len(s.Contracts) == 0 {
		return time.Time{}
	}
	return s.Contracts[0].QuoteTime
}

// Validate enforces the structural contract suppliers must honor: known
// option types, non-zero timestamps, deltas within [-1, 1], and a single
// quote time across all contracts. An empty snapshot is valid.
func (s Snapshot) Validate() error {
	for i := range s.Contracts {
		c := &s.Contracts[i]
		if err := c.OptionType.Validate(); err != nil {
			return &MalformedSnapshotError{Reason: fmt.Sprintf("contract %d (%s): %v", i, c.Symbol, err)}
		}
		if c.Expiration.IsZero() {
			return &MalformedSnapshotError{Reason: fmt.Sprintf("contract %d (%s): missing expiration", i, c.Symbol)}
		}
		if c.QuoteTime.IsZero() {
			return &MalformedSnapshotError{Reason: fmt.Sprintf("contract %d (%s): missing quote time", i, c.Symbol)}
		}
		if !(c.Delta >= -1 && c.Delta <= 1) {
			return &MalformedSnapshotError{Reason: fmt.Sprintf("contract %d (%s): delta %v out of range", i, c.Symbol, c.Delta)}
		}
		if !c.QuoteTime.Equal(s.Contracts[0].QuoteTime) {
			return &MalformedSnapshotError{Reason: fmt.Sprintf(
				"contract %d (%s): quote time %s differs from %s",
				i, c.Symbol,
				c.QuoteTime.UTC().Format(time.RFC3339),
				s.Contracts[0].QuoteTime.UTC().Format(time.RFC3339))}
		}
	}
	return nil
}
