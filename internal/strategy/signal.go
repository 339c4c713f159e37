package strategy

import (
	"time"

	"github.com/google/uuid"

	"github.com/eddiefleurent/strangle-signals/internal/chain"
	"github.com/eddiefleurent/strangle-signals/internal/util"
)

// Signal is one actionable strangle: the chosen put and call plus the
// strategy context they were chosen under. Both legs come out of the
// same snapshot and share a DTE. The legs are copies; nothing in a
// Signal references the scanned chain.
type Signal struct {
	ID         string         `json:"id"`
	Strategy   string         `json:"strategy"`
	Underlying string         `json:"underlying"`
	Side       OrderAction    `json:"side"`
	Quantity   int            `json:"quantity"`
	Put        chain.Contract `json:"put"`
	Call       chain.Contract `json:"call"`
	DTE        int            `json:"dte"`
	QuoteTime  time.Time      `json:"quote_time"`
}

// Legs returns the pair in its contractual order: put first, then call.
func (s *Signal) Legs() [2]chain.Contract {
	return [2]chain.Contract{s.Put, s.Call}
}

// Credit returns the combined mid-price of both legs, the natural
// one-lot credit estimate.
func (s *Signal) Credit() float64 {
	return util.MidPrice(s.Put.Bid, s.Put.Ask) + util.MidPrice(s.Call.Bid, s.Call.Ask)
}

func newSignal(config *Config, put, call chain.Contract) *Signal {
	return &Signal{
		ID:         uuid.New().String(),
		Strategy:   config.StrategyName(),
		Underlying: config.Underlying(),
		Side:       config.BuyOrSell(),
		Quantity:   config.OrderQuantity(),
		Put:        put,
		Call:       call,
		DTE:        put.DTE(),
		QuoteTime:  put.QuoteTime,
	}
}
