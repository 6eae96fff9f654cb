// Package hardware declares the device interfaces the charge point drives and offers software
// stand-ins for them.
package hardware

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Relay interface {
	On() error
	Off() error
	IsOn() bool
}

// SoftRelay keeps the relay state in memory. Pin and inverse logic are reported in logs only.
type SoftRelay struct {
	mu           sync.Mutex
	pin          int
	inverseLogic bool
	on           bool
	log          *logrus.Entry
}

func NewSoftRelay(pin int, inverseLogic bool, log *logrus.Entry) *SoftRelay {
	return &SoftRelay{pin: pin, inverseLogic: inverseLogic, log: log.WithField("pin", pin)}
}

func (r *SoftRelay) On() error {
	r.set(true)
	return nil
}

func (r *SoftRelay) Off() error {
	r.set(false)
	return nil
}

func (r *SoftRelay) set(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on = on
	r.log.Debugf("relay level %v", on != r.inverseLogic)
}

func (r *SoftRelay) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}
