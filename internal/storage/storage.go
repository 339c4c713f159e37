// Package storage persists generated signals between runs.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

type storeData struct {
	Signals     []strategy.Signal `json:"signals"`
	LastUpdated time.Time         `json:"last_updated"`
}

// JSONStorage keeps the signal history in a single JSON file. A
// sync.RWMutex serializes access, so every method is safe for
// concurrent callers.
type JSONStorage struct {
	mu   sync.RWMutex
	path string
	data *storeData
}

// NewJSONStorage opens or creates a store at path. An existing file is
// loaded eagerly so a bad file fails construction instead of the first
// read.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{path: path, data: &storeData{}}
	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}
	return s, nil
}

// Load replaces the in-memory state with the file contents.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var data storeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	s.data = &data
	return nil
}

// Save persists the current state.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes to a temp file first, then renames it into place so
// readers never observe a torn file.
func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now().UTC()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.path)
}

// Append stores one signal and persists immediately.
func (s *JSONStorage) Append(sig strategy.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Signals = append(s.data.Signals, sig)
	return s.saveLocked()
}

// All returns a copy of the history in insertion order.
func (s *JSONStorage) All() []strategy.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]strategy.Signal, len(s.data.Signals))
	copy(out, s.data.Signals)
	return out
}

// Get looks a signal up by ID.
func (s *JSONStorage) Get(id string) (strategy.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Signals {
		if s.data.Signals[i].ID == id {
			return s.data.Signals[i], nil
		}
	}
	return strategy.Signal{}, ErrNotFound
}

// Latest returns the most recently appended signal, if any.
func (s *JSONStorage) Latest() (strategy.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data.Signals) == 0 {
		return strategy.Signal{}, false
	}
	return s.data.Signals[len(s.data.Signals)-1], true
}

// Count returns the number of stored signals.
func (s *JSONStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Signals)
}

// Stats summarizes the stored history.
func (s *JSONStorage) Stats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarize(s.data.Signals)
}

func summarize(signals []strategy.Signal) *Stats {
	stats := &Stats{ByUnderlying: make(map[string]int)}
	var creditSum float64
	for i := range signals {
		sig := &signals[i]
		stats.Total++
		stats.ByUnderlying[sig.Underlying]++
		creditSum += sig.Credit()
		if stats.FirstQuote.IsZero() || sig.QuoteTime.Before(stats.FirstQuote) {
			stats.FirstQuote = sig.QuoteTime
		}
		if sig.QuoteTime.After(stats.LastQuote) {
			stats.LastQuote = sig.QuoteTime
		}
	}
	if stats.Total > 0 {
		stats.AvgCredit = creditSum / float64(stats.Total)
	}
	return stats
}
