package events

import (
	log "github.com/sirupsen/logrus"

	"github.com/eddiefleurent/strangle-signals/internal/storage"
	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

// StoreWorker persists every published signal so the dashboard and later
// runs can see what the scanner produced.
type StoreWorker struct {
	store  storage.Interface
	logger *log.Logger
}

// NewStoreWorker creates a worker that appends signals to store.
func NewStoreWorker(store storage.Interface, logger *log.Logger) *StoreWorker {
	if store == nil {
		panic("events.NewStoreWorker: store must not be nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &StoreWorker{store: store, logger: logger}
}

// Start subscribes the worker to the signal topic. Delivery is
// asynchronous; call bus.Wait before shutdown to flush appends.
func (w *StoreWorker) Start(bus *Bus) error {
	if err := bus.OnSignal(w.handleSignal); err != nil {
		return err
	}
	w.logger.Info("store worker started")
	return nil
}

func (w *StoreWorker) handleSignal(sig strategy.Signal) {
	if err := w.store.Append(sig); err != nil {
		w.logger.Errorf("StoreWorker: failed to persist signal %s: %v", sig.ID, err)
		return
	}
	w.logger.Debugf("StoreWorker: persisted signal %s for %s", sig.ID, sig.Underlying)
}
