package hardware

import (
	"sync"
	"time"
)

type PowerMeter interface {
	// CurrentPower returns the instantaneous draw in W.
	CurrentPower() (float64, error)
	// Energy returns the energy accumulated since the last Reset in Wh.
	Energy() (float64, error)
	Reset() error
}

// SimulatedMeter draws a fixed power whenever its relay is on.
type SimulatedMeter struct {
	mu      sync.Mutex
	relay   Relay
	power   float64
	energy  float64
	updated time.Time
}

func NewSimulatedMeter(relay Relay, power float64) *SimulatedMeter {
	return &SimulatedMeter{relay: relay, power: power, updated: time.Now()}
}

func (m *SimulatedMeter) CurrentPower() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accumulate()
	if m.relay.IsOn() {
		return m.power, nil
	}
	return 0, nil
}

func (m *SimulatedMeter) Energy() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accumulate()
	return m.energy, nil
}

func (m *SimulatedMeter) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.energy = 0
	m.updated = time.Now()
	return nil
}

func (m *SimulatedMeter) accumulate() {
	now := time.Now()
	if m.relay.IsOn() {
		m.energy += m.power * now.Sub(m.updated).Hours()
	}
	m.updated = now
}
