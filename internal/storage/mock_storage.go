package storage

import (
	"github.com/eddiefleurent/strangle-signals/internal/strategy"
)

// MockStorage implements Interface for testing
type MockStorage struct {
	saveError     error
	loadError     error
	appendError   error
	signals       []strategy.Signal
	saveCallCount int
	loadCallCount int
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// Signal history methods
func (m *MockStorage) Append(sig strategy.Signal) error {
	if m.appendError != nil {
		return m.appendError
	}
	m.signals = append(m.signals, sig)
	return nil
}

func (m *MockStorage) All() []strategy.Signal {
	out := make([]strategy.Signal, len(m.signals))
	copy(out, m.signals)
	return out
}

func (m *MockStorage) Get(id string) (strategy.Signal, error) {
	for i := range m.signals {
		if m.signals[i].ID == id {
			return m.signals[i], nil
		}
	}
	return strategy.Signal{}, ErrNotFound
}

func (m *MockStorage) Latest() (strategy.Signal, bool) {
	if len(m.signals) == 0 {
		return strategy.Signal{}, false
	}
	return m.signals[len(m.signals)-1], true
}

func (m *MockStorage) Count() int {
	return len(m.signals)
}

// Analytics
func (m *MockStorage) Stats() *Stats {
	return summarize(m.signals)
}

// Data persistence methods (mocked)
func (m *MockStorage) Save() error {
	m.saveCallCount++
	return m.saveError
}

func (m *MockStorage) Load() error {
	m.loadCallCount++
	return m.loadError
}

// Mock control methods for testing
func (m *MockStorage) SetSaveError(err error) {
	m.saveError = err
}

func (m *MockStorage) SetLoadError(err error) {
	m.loadError = err
}

func (m *MockStorage) SetAppendError(err error) {
	m.appendError = err
}

func (m *MockStorage) GetSaveCallCount() int {
	return m.saveCallCount
}

func (m *MockStorage) GetLoadCallCount() int {
	return m.loadCallCount
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
