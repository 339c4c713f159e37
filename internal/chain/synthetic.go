package chain

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/util"
)

// Generator produces synthetic option chains for fixtures and tests.
// Deltas decay exponentially with distance from spot, which is crude but
// enough to exercise delta-targeted selection.
type Generator struct {
	Spot   float64 // underlying price
	IV     float64 // implied volatility level, e.g. 0.18
	Radius float64 // half-width of the strike ladder around spot
	Step   float64 // strike interval
}

// NewGenerator returns a generator with SPY-like defaults and a
// randomized spot so successive fixtures differ.
func NewGenerator() *Generator {
	return &Generator{
		Spot:   450.0 + secureFloat64()*10,
		IV:     0.12 + secureFloat64()*0.18,
		Radius: 75,
		Step:   5,
	}
}

// Snapshot builds a full put/call ladder quoted at quoteTime for a
// single expiration.
func (g *Generator) Snapshot(underlying string, quoteTime, expiration time.Time) Snapshot {
	return Snapshot{
		Underlying: underlying,
		Contracts:  g.Chain(underlying, quoteTime, expiration),
	}
}

// Chain generates the contract ladder itself.
func (g *Generator) Chain(underlying string, quoteTime, expiration time.Time) []Contract {
	dte := DaysBetween(quoteTime, expiration)
	if dte < 0 {
		dte = 0
	}

	var contracts []Contract
	start := math.Floor(g.Spot/g.Step)*g.Step - g.Radius
	end := start + 2*g.Radius
	for strike := start; strike <= end; strike += g.Step {
		distance := math.Abs(strike - g.Spot)
		decay := math.Exp(-distance * 0.02)

		putDelta := -0.5 * decay
		if strike > g.Spot {
			putDelta = -0.5 * (1 - decay)
		}
		callDelta := 0.5 * decay
		if strike < g.Spot {
			callDelta = 0.5 * (1 - decay)
		}

		timeValue := math.Max(0, float64(dte)/365.0)
		putPrice := util.RoundToTick(math.Max(0.5, g.IV*math.Sqrt(timeValue)*g.Spot*0.01*math.Abs(putDelta)), 0.01)
		callPrice := util.RoundToTick(math.Max(0.5, g.IV*math.Sqrt(timeValue)*g.Spot*0.01*math.Abs(callDelta)), 0.01)

		contracts = append(contracts,
			g.contract(underlying, OptionTypePut, strike, quoteTime, expiration, putDelta, putPrice),
			g.contract(underlying, OptionTypeCall, strike, quoteTime, expiration, callDelta, callPrice),
		)
	}
	return contracts
}

func (g *Generator) contract(underlying string, typ OptionType, strike float64,
	quoteTime, expiration time.Time, delta, price float64) Contract {
	side := "P"
	if typ == OptionTypeCall {
		side = "C"
	}
	return Contract{
		Symbol:       fmt.Sprintf("%s%s%s%08d", underlying, expiration.Format("060102"), side, int(strike*1000)),
		Underlying:   underlying,
		OptionType:   typ,
		Strike:       strike,
		Expiration:   expiration,
		QuoteTime:    quoteTime,
		Delta:        delta,
		Bid:          util.FloorToTick(math.Max(0.01, price-0.05), 0.01),
		Ask:          util.CeilToTick(price+0.05, 0.01),
		Last:         price,
		Volume:       secureInt63n(10000),
		OpenInterest: secureInt63n(50000),
	}
}

// MonthlyExpiration returns the standard monthly expiration for a month
// as the historical feed reports it: the Saturday after the third
// Friday.
func MonthlyExpiration(year int, month time.Month) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	d = d.AddDate(0, 0, 14)
	return d.AddDate(0, 0, 1)
}

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// secureInt63n generates a cryptographically secure random int64 between 0 and n-1
func secureInt63n(n int64) int64 {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return n / 2
	}
	return r.Int64()
}
