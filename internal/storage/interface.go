package storage

import (
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

// Interface defines the contract for signal persistence.
//
// Implementations must be safe for concurrent use - callers can assume all methods
// are goroutine-safe. The live scanner appends from the event bus while the
// dashboard reads, so reads and writes overlap in practice.
//
// The provided JSONStorage implementation uses sync.RWMutex to serialize access,
// ensuring all Interface methods are protected for concurrent readers and writers.
type Interface interface {
	// Signal history
	Append(sig strategy.Signal) error
	All() []strategy.Signal
	Get(id string) (strategy.Signal, error)
	Latest() (strategy.Signal, bool)
	Count() int

	// Analytics
	Stats() *Stats

	// Data persistence
	Save() error
	Load() error
}

// Stats summarizes a stored signal history.
type Stats struct {
	Total        int            `json:"total"`
	ByUnderlying map[string]int `json:"by_underlying"`
	AvgCredit    float64        `json:"avg_credit"`
	FirstQuote   time.Time      `json:"first_quote"`
	LastQuote    time.Time      `json:"last_quote"`
}

// NewStorage creates a new storage implementation (currently JSON-based).
// In the future, this can be extended to support different storage backends.
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)
