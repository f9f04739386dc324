package mqtt

import (
	"sync"

	"github.com/petbuddy/dispenser/core/model"
)

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	mu       sync.Mutex
	Power    []model.PowerReading
	Weight   []model.WeightReading
	Statuses []string
	Closed   bool
	Err      error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishPower records the reading or returns the configured error.
func (m *MockPublisher) PublishPower(r model.PowerReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Power = append(m.Power, r)
	return nil
}

// PublishWeight records the reading.
func (m *MockPublisher) PublishWeight(r model.WeightReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Weight = append(m.Weight, r)
	return nil
}

// PublishStatus records the status string.
func (m *MockPublisher) PublishStatus(status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Statuses = append(m.Statuses, status)
	return nil
}

// Close marks the publisher closed and returns the configured error.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.Err
}

// StatusCount returns the number of recorded status publications.
func (m *MockPublisher) StatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Statuses)
}

// PowerCount returns the number of recorded power publications.
func (m *MockPublisher) PowerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Power)
}
