// Package chain models option chain market data: single option quotes
// and point-in-time snapshots of a whole chain.
package chain

import (
	"fmt"
	"time"
)

// OptionType represents the type of option contract
type OptionType string

const (
	// OptionTypePut represents a put option contract
	OptionTypePut OptionType = "put"
	// OptionTypeCall represents a call option contract
	OptionTypeCall OptionType = "call"
)

// Validate returns an error unless the option type is one of the known values.
func (t OptionType) Validate() error {
	switch t {
	case OptionTypePut, OptionTypeCall:
		return nil
	default:
		return fmt.Errorf("invalid option type: %q", string(t))
	}
}

// Contract is a single option quote line out of a chain snapshot. Fields
// mirror what the market data feed reports; consumers read but never
// mutate them.
type Contract struct {
	Symbol       string     `json:"symbol"`
	Underlying   string     `json:"underlying"`
	OptionType   OptionType `json:"option_type"`
	Strike       float64    `json:"strike"`
	Expiration   time.Time  `json:"expiration"`
	QuoteTime    time.Time  `json:"quote_time"`
	Delta        float64    `json:"delta"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Last         float64    `json:"last"`
	Volume       int64      `json:"volume"`
	OpenInterest int64      `json:"open_interest"`
}

// DTE returns the whole days between the contract's quote date and its
// expiration date. Same-day expiration yields 0; contracts quoted past
// expiration go negative.
func (c *Contract) DTE() int {
	return DaysBetween(c.QuoteTime, c.Expiration)
}

// DaysBetween counts calendar days from one timestamp to another after
// truncating both to UTC day boundaries. The count is signed.
func DaysBetween(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(f).Hours() / 24)
}
