package events

import (
	"sync"
	"testing"

	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

func TestBusDeliversSignals(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	var received []strategy.Signal
	err := bus.OnSignal(func(sig strategy.Signal) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, sig)
	})
	if err != nil {
		t.Fatalf("OnSignal() error: %v", err)
	}

	bus.Emit(strategy.Signal{ID: "sig-1", Underlying: "SPY"})
	bus.Emit(strategy.Signal{ID: "sig-2", Underlying: "SPY"})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d signals, expected 2", len(received))
	}
	ids := map[string]bool{received[0].ID: true, received[1].ID: true}
	if !ids["sig-1"] || !ids["sig-2"] {
		t.Errorf("received wrong signals: %+v", received)
	}
}

func TestBusMultipleConsumers(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	counts := map[string]int{}
	for _, name := range []string{"store", "report"} {
		name := name
		if err := bus.OnSignal(func(strategy.Signal) {
			mu.Lock()
			defer mu.Unlock()
			counts[name]++
		}); err != nil {
			t.Fatalf("OnSignal(%s) error: %v", name, err)
		}
	}

	bus.Emit(strategy.Signal{ID: "sig-1"})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if counts["store"] != 1 || counts["report"] != 1 {
		t.Errorf("consumer counts = %v, expected 1 each", counts)
	}
}

func TestBusWithoutConsumersDropsQuietly(t *testing.T) {
	bus := NewBus(nil)
	bus.Emit(strategy.Signal{ID: "sig-1"})
	bus.Wait()
}
