// Package session keeps track of a single charging transaction on a connector.
package session

import (
	"errors"
	"time"
)

// maxPowerWindow bounds the moving average. Past it the window collapses to its mean.
const maxPowerWindow = 30

var (
	ErrAlreadyActive   = errors.New("session already active")
	ErrMissingIdentity = errors.New("tag id and transaction id are required")
)

type MeterSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Snapshot is the persisted form of a ChargingSession.
type Snapshot struct {
	IsActive      bool          `json:"is_active"`
	TransactionID string        `json:"transaction_id"`
	TagID         string        `json:"tag_id"`
	Started       time.Time     `json:"started"`
	Consumption   []MeterSample `json:"consumption"`
}

// ChargingSession is owned by a single connector and is not safe for concurrent use.
type ChargingSession struct {
	active        bool
	transactionID string
	tagID         string
	startedAt     time.Time
	meterSamples  []MeterSample
	powerWindow   []float64
	avgPower      float64
	now           func() time.Time
}

func New() *ChargingSession {
	return &ChargingSession{now: time.Now}
}

func (s *ChargingSession) Start(tagID, transactionID string) error {
	if s.active {
		return ErrAlreadyActive
	}
	if tagID == "" || transactionID == "" {
		return ErrMissingIdentity
	}
	s.reset()
	s.tagID = tagID
	s.transactionID = transactionID
	s.startedAt = s.now()
	s.active = true
	return nil
}

// Resume restores a session that was active before a restart.
func (s *ChargingSession) Resume(snapshot Snapshot) error {
	if s.active {
		return ErrAlreadyActive
	}
	if snapshot.TagID == "" || snapshot.TransactionID == "" {
		return ErrMissingIdentity
	}
	s.reset()
	s.tagID = snapshot.TagID
	s.transactionID = snapshot.TransactionID
	s.startedAt = snapshot.Started
	s.meterSamples = append([]MeterSample(nil), snapshot.Consumption...)
	s.active = true
	return nil
}

// Stop deactivates the session. The samples stay available until the next Start.
func (s *ChargingSession) Stop() {
	s.active = false
	s.tagID = ""
	s.transactionID = ""
}

func (s *ChargingSession) reset() {
	s.meterSamples = nil
	s.powerWindow = nil
	s.avgPower = 0
}

func (s *ChargingSession) AddPowerSample(power float64) {
	s.powerWindow = append(s.powerWindow, power)
	var sum float64
	for _, p := range s.powerWindow {
		sum += p
	}
	s.avgPower = sum / float64(len(s.powerWindow))
	if len(s.powerWindow) > maxPowerWindow {
		s.powerWindow = []float64{s.avgPower}
	}
}

func (s *ChargingSession) AddMeterSample(value float64) {
	s.meterSamples = append(s.meterSamples, MeterSample{Timestamp: s.now(), Value: value})
}

func (s *ChargingSession) IsActive() bool         { return s.active }
func (s *ChargingSession) TagID() string          { return s.tagID }
func (s *ChargingSession) TransactionID() string  { return s.transactionID }
func (s *ChargingSession) StartedAt() time.Time   { return s.startedAt }
func (s *ChargingSession) AveragePower() float64  { return s.avgPower }
func (s *ChargingSession) PowerWindow() []float64 { return append([]float64(nil), s.powerWindow...) }

func (s *ChargingSession) MeterSamples() []MeterSample {
	return append([]MeterSample(nil), s.meterSamples...)
}

// MaxMeterSample returns the sample with the highest value recorded so far.
func (s *ChargingSession) MaxMeterSample() (MeterSample, bool) {
	if len(s.meterSamples) == 0 {
		return MeterSample{}, false
	}
	best := s.meterSamples[0]
	for _, sample := range s.meterSamples[1:] {
		if sample.Value > best.Value {
			best = sample
		}
	}
	return best, true
}

// Elapsed is the time since the session started, zero when inactive.
func (s *ChargingSession) Elapsed() time.Duration {
	if !s.active {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

// EnergyEstimate is the average power times the elapsed time, in Wh. It is not an integral of
// the samples.
func (s *ChargingSession) EnergyEstimate() float64 {
	return s.avgPower * s.Elapsed().Hours()
}

func (s *ChargingSession) Snapshot() Snapshot {
	snapshot := Snapshot{
		IsActive:      s.active,
		TransactionID: s.transactionID,
		TagID:         s.tagID,
		Consumption:   s.MeterSamples(),
	}
	if s.active {
		snapshot.Started = s.startedAt
	}
	return snapshot
}
