package sensor

import (
	"sync"

	"github.com/petbuddy/dispenser/core/model"
)

// MockPower is a deterministic power sensor for tests.
type MockPower struct {
	mu      sync.Mutex
	reading model.PowerReading
	err     error
}

// NewMockPower returns a mock reporting a plausible idle reading.
func NewMockPower() *MockPower {
	return &MockPower{reading: model.PowerReading{BusVoltageVolts: 12.0, CurrentAmps: 0.6, PowerWatts: 7.2}}
}

func (m *MockPower) Name() string { return "SensorMock" }

// SetReading replaces the value returned by Read.
func (m *MockPower) SetReading(r model.PowerReading) {
	m.mu.Lock()
	m.reading = r
	m.mu.Unlock()
}

// SetError makes Read fail until cleared with a nil error.
func (m *MockPower) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockPower) Read() (model.PowerReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.PowerReading{}, m.err
	}
	return m.reading, nil
}

// MockWeight is a deterministic weight sensor for tests.
type MockWeight struct {
	mu  sync.Mutex
	raw int32
	err error
}

// NewMockWeight returns a mock reporting the given raw value.
func NewMockWeight(raw int32) *MockWeight { return &MockWeight{raw: raw} }

func (m *MockWeight) Name() string { return "SensorMock" }

// SetRaw replaces the raw value returned by ReadRaw.
func (m *MockWeight) SetRaw(raw int32) {
	m.mu.Lock()
	m.raw = raw
	m.mu.Unlock()
}

// SetError makes reads fail until cleared with a nil error.
func (m *MockWeight) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockWeight) ReadRaw() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.raw, nil
}

func (m *MockWeight) ReadWeight(cal model.WeightCalibration) (model.WeightReading, error) {
	raw, err := m.ReadRaw()
	if err != nil {
		return model.WeightReading{}, err
	}
	return Convert(raw, cal), nil
}
