// Package events wires signal producers to consumers over an
// in-process bus.
package events

import (
	"io"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

// TopicSignal carries strategy.Signal values.
const TopicSignal = "signal.generated"

// Bus is a thin wrapper over the process-wide event bus. It doubles as
// the selector's signal sink, so publishing a match is just wiring the
// bus into the selector.
type Bus struct {
	bus    EventBus.Bus
	logger *log.Logger
}

// Compile-time check that the bus satisfies the selector's sink.
var _ strategy.SignalSink = (*Bus)(nil)

// NewBus creates an empty bus. logger may be nil to silence bookkeeping.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}
	return &Bus{bus: EventBus.New(), logger: logger}
}

// Emit publishes a signal to TopicSignal.
func (b *Bus) Emit(sig strategy.Signal) {
	b.logger.WithFields(log.Fields{
		"id":         sig.ID,
		"underlying": sig.Underlying,
		"dte":        sig.DTE,
	}).Info("signal published")
	b.bus.Publish(TopicSignal, sig)
}

// OnSignal registers an asynchronous consumer for TopicSignal.
func (b *Bus) OnSignal(fn func(strategy.Signal)) error {
	if err := b.bus.SubscribeAsync(TopicSignal, fn, false); err != nil {
		return err
	}
	b.logger.Infof("subscribed to topic %s", TopicSignal)
	return nil
}

// Wait blocks until every in-flight asynchronous callback has returned.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}
