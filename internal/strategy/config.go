// Package strategy implements the strangle signal engine: a frozen
// strategy configuration plus a stateless selector that scans chain
// snapshots for the put/call pair closest to the configured deltas.
package strategy

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags the strategy variant a configuration carries.
type Kind string

// KindStrangle is the only variant currently implemented.
const KindStrangle Kind = "strangle"

// OrderAction is the side of the generated order.
type OrderAction int

const (
	// Buy opens long legs.
	Buy OrderAction = iota
	// Sell opens short legs.
	Sell
)

func (a OrderAction) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return fmt.Sprintf("OrderAction(%d)", int(a))
}

// ParseOrderAction maps the string forms back to the enum.
func ParseOrderAction(s string) (OrderAction, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("invalid order action: %q", s)
}

// MarshalJSON encodes the action as its string form.
func (a OrderAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the forms MarshalJSON produces.
func (a *OrderAction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseOrderAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ExpirationCycle narrows candidate contracts to one expiration cycle.
type ExpirationCycle string

const (
	// CycleAny places no restriction on expirations.
	CycleAny ExpirationCycle = ""
	// CycleMonthly keeps only standard monthly expirations.
	CycleMonthly ExpirationCycle = "monthly"
)

// StrangleParams is the variant payload for KindStrangle. Deltas are
// signed the way the feed signs contract deltas: calls positive, puts
// negative.
type StrangleParams struct {
	OptCallDelta float64
	MaxCallDelta float64
	OptPutDelta  float64
	MaxPutDelta  float64
}

// Params carries every knob NewConfig accepts. Optional knobs are
// pointers; nil means unset.
type Params struct {
	Kind            Kind
	StartTime       time.Time
	Underlying      string
	BuyOrSell       OrderAction
	OrderQuantity   int
	DaysBeforeClose int

	ExpirationCycle ExpirationCycle
	MinimumDTE      *int
	OptimalDTE      *int
	MaxBidAsk       *float64
	ProfitTargetPct *float64
	MinCredit       *float64

	Strangle StrangleParams

	// Reserved knobs. The surface accepts them so configurations stay
	// portable, but setting any fails construction.
	ROC                  *float64
	MinDaysToEarnings    *int
	MinDaysSinceEarnings *int
	AvoidAssignment      *bool
	MinIVR               *float64
	MaxBuyingPower       *float64
}

// UnsupportedOptionError reports a reserved configuration knob that was
// set. Callers match it with errors.As.
type UnsupportedOptionError struct {
	Option string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("strategy option %q is not supported", e.Option)
}

// reservedOptions lists the reserved knobs in the order they are
// checked. The first one set wins; construction reports exactly one.
var reservedOptions = []struct {
	name string
	set  func(*Params) bool
}{
	{"roc", func(p *Params) bool { return p.ROC != nil }},
	{"minDaysToEarnings", func(p *Params) bool { return p.MinDaysToEarnings != nil }},
	{"minDaysSinceEarnings", func(p *Params) bool { return p.MinDaysSinceEarnings != nil }},
	{"avoidAssignment", func(p *Params) bool { return p.AvoidAssignment != nil }},
	{"minIVR", func(p *Params) bool { return p.MinIVR != nil }},
	{"maxBuyingPower", func(p *Params) bool { return p.MaxBuyingPower != nil }},
}

type optInt struct {
	value int
	ok    bool
}

type optFloat struct {
	value float64
	ok    bool
}

func optIntFrom(p *int) optInt {
	if p == nil {
		return optInt{}
	}
	return optInt{value: *p, ok: true}
}

func optFloatFrom(p *float64) optFloat {
	if p == nil {
		return optFloat{}
	}
	return optFloat{value: *p, ok: true}
}

// Config is a frozen strategy configuration. Every field is fixed at
// construction and reachable only through accessors, so a selector can
// be shared across goroutines without locking.
type Config struct {
	kind            Kind
	startTime       time.Time
	underlying      string
	buyOrSell       OrderAction
	orderQuantity   int
	daysBeforeClose int
	expirationCycle ExpirationCycle

	minimumDTE      optInt
	optimalDTE      optInt
	maxBidAsk       optFloat
	profitTargetPct optFloat
	minCredit       optFloat

	strangle StrangleParams
}

// NewConfig freezes p into a Config. Construction performs exactly two
// checks: the variant kind must be implemented, and no reserved knob
// may be set. Range validation of ordinary fields belongs to the
// calling configuration layer.
func NewConfig(p Params) (*Config, error) {
	if p.Kind == "" {
		p.Kind = KindStrangle
	}
	if p.Kind != KindStrangle {
		return nil, fmt.Errorf("unsupported strategy kind: %q", p.Kind)
	}
	for _, r := range reservedOptions {
		if r.set(&p) {
			return nil, &UnsupportedOptionError{Option: r.name}
		}
	}
	return &Config{
		kind:            p.Kind,
		startTime:       p.StartTime,
		underlying:      p.Underlying,
		buyOrSell:       p.BuyOrSell,
		orderQuantity:   p.OrderQuantity,
		daysBeforeClose: p.DaysBeforeClose,
		expirationCycle: p.ExpirationCycle,
		minimumDTE:      optIntFrom(p.MinimumDTE),
		optimalDTE:      optIntFrom(p.OptimalDTE),
		maxBidAsk:       optFloatFrom(p.MaxBidAsk),
		profitTargetPct: optFloatFrom(p.ProfitTargetPct),
		minCredit:       optFloatFrom(p.MinCredit),
		strangle:        p.Strangle,
	}, nil
}

// Kind returns the variant tag.
func (c *Config) Kind() Kind { return c.kind }

// StrategyName returns the canonical name of the variant.
func (c *Config) StrategyName() string { return string(c.kind) }

// StartTime returns the beginning of the scan window.
func (c *Config) StartTime() time.Time { return c.startTime }

// Underlying returns the symbol the strategy trades.
func (c *Config) Underlying() string { return c.underlying }

// BuyOrSell returns the order side.
func (c *Config) BuyOrSell() OrderAction { return c.buyOrSell }

// OrderQuantity returns the number of strangles per signal.
func (c *Config) OrderQuantity() int { return c.orderQuantity }

// DaysBeforeClose returns how many days before expiration positions
// should be managed off.
func (c *Config) DaysBeforeClose() int { return c.daysBeforeClose }

// ExpirationCycle returns the configured cycle restriction.
func (c *Config) ExpirationCycle() ExpirationCycle { return c.expirationCycle }

// MinimumDTE returns the days-to-expiration floor and whether it is set.
func (c *Config) MinimumDTE() (int, bool) { return c.minimumDTE.value, c.minimumDTE.ok }

// OptimalDTE returns the preferred days-to-expiration and whether it is
// set. Selection does not consult it yet.
func (c *Config) OptimalDTE() (int, bool) { return c.optimalDTE.value, c.optimalDTE.ok }

// MaxBidAsk returns the widest acceptable spread and whether it is set.
// Selection does not consult it yet.
func (c *Config) MaxBidAsk() (float64, bool) { return c.maxBidAsk.value, c.maxBidAsk.ok }

// ProfitTargetPct returns the profit target ratio and whether it is set.
func (c *Config) ProfitTargetPct() (float64, bool) {
	return c.profitTargetPct.value, c.profitTargetPct.ok
}

// MinCredit returns the minimum acceptable credit and whether it is set.
func (c *Config) MinCredit() (float64, bool) { return c.minCredit.value, c.minCredit.ok }

// OptCallDelta returns the call leg's target delta.
func (c *Config) OptCallDelta() float64 { return c.strangle.OptCallDelta }

// MaxCallDelta returns the call leg's delta cap.
func (c *Config) MaxCallDelta() float64 { return c.strangle.MaxCallDelta }

// OptPutDelta returns the put leg's target delta.
func (c *Config) OptPutDelta() float64 { return c.strangle.OptPutDelta }

// MaxPutDelta returns the put leg's delta cap.
func (c *Config) MaxPutDelta() float64 { return c.strangle.MaxPutDelta }
