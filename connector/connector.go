// Package connector implements the state machine of a single charging connector.
package connector

import (
	"sync"
	"time"

	"charge_point/common"
	"charge_point/hardware"
	"charge_point/scheduler"
	"charge_point/session"
	"charge_point/store"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxChargingTime = 180 * time.Minute
	DefaultSamplingPeriod  = time.Second
)

type StartResult string

const (
	SessionStartSuccess StartResult = "SessionStartSuccess"
	SessionStartFailure StartResult = "SessionStartFailure"
)

type ResumeResult string

const (
	SessionResumeSuccess ResumeResult = "SessionResumeSuccess"
	SessionResumeFailure ResumeResult = "SessionResumeFailure"
)

type ReservationResult string

const (
	ReservationSuccess ReservationResult = "ReservationSuccess"
	AlreadyReserved    ReservationResult = "AlreadyReserved"
	ReservationFailed  ReservationResult = "ReservationFailed"
)

type Config struct {
	EvseID            int
	ConnectorID       int
	Type              string
	MaxChargingTime   time.Duration
	MinPowerThreshold float64
	SamplingPeriod    time.Duration
}

// Hooks are called from timer goroutines without any connector lock held.
type Hooks struct {
	StopTransaction    func(c *Connector, reason common.StopReason)
	SendMeterValues    func(c *Connector, sample session.MeterSample)
	ReservationExpired func(c *Connector)
}

type Connector struct {
	cfg       Config
	relay     hardware.Relay
	meter     hardware.PowerMeter
	scheduler *scheduler.Scheduler
	store     store.Store
	log       *logrus.Entry

	// transition serializes start and stop sequences driven by the charge point.
	transition sync.Mutex

	mu            sync.RWMutex
	hooks         Hooks
	status        common.ConnectorStatus
	session       *session.ChargingSession
	reservation   *session.Reservation
	pendingStatus common.ConnectorStatus
	timers        map[timerRole]*scheduler.Job
}

// New creates a connector in the Available state. meter and st may be nil.
func New(cfg Config, relay hardware.Relay, meter hardware.PowerMeter, sched *scheduler.Scheduler, st store.Store, log *logrus.Entry) *Connector {
	if cfg.MaxChargingTime <= 0 {
		cfg.MaxChargingTime = DefaultMaxChargingTime
	}
	if cfg.SamplingPeriod <= 0 {
		cfg.SamplingPeriod = DefaultSamplingPeriod
	}
	return &Connector{
		cfg:       cfg,
		relay:     relay,
		meter:     meter,
		scheduler: sched,
		store:     st,
		log:       log.WithFields(logrus.Fields{"evse": cfg.EvseID, "connector": cfg.ConnectorID}),
		status:    common.ConnectorStatusAvailable,
		session:   session.New(),
		timers:    make(map[timerRole]*scheduler.Job),
	}
}

func (c *Connector) SetHooks(hooks Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = hooks
}

func (c *Connector) EvseID() int                    { return c.cfg.EvseID }
func (c *Connector) ID() int                        { return c.cfg.ConnectorID }
func (c *Connector) Type() string                   { return c.cfg.Type }
func (c *Connector) MaxChargingTime() time.Duration { return c.cfg.MaxChargingTime }
func (c *Connector) HasPowerMeter() bool            { return c.meter != nil }

// Lock acquires the transition lock. Start and stop sequences run under it.
func (c *Connector) Lock()         { c.transition.Lock() }
func (c *Connector) Unlock()       { c.transition.Unlock() }
func (c *Connector) TryLock() bool { return c.transition.TryLock() }

func (c *Connector) Status() common.ConnectorStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetStatus overwrites the status directly.
func (c *Connector) SetStatus(status common.ConnectorStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// SetPendingStatus stores a status to apply once the running session ends.
func (c *Connector) SetPendingStatus(status common.ConnectorStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingStatus = status
}

// TakePendingStatus returns and clears the pending status.
func (c *Connector) TakePendingStatus() (common.ConnectorStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.pendingStatus
	c.pendingStatus = ""
	return status, status != ""
}

func (c *Connector) IsAvailable() bool   { return c.Status() == common.ConnectorStatusAvailable }
func (c *Connector) IsPreparing() bool   { return c.Status() == common.ConnectorStatusPreparing }
func (c *Connector) IsFaulted() bool     { return c.Status() == common.ConnectorStatusFaulted }
func (c *Connector) IsUnavailable() bool { return c.Status() == common.ConnectorStatusUnavailable }

// IsOccupied is true when the connector is neither free nor out of service.
func (c *Connector) IsOccupied() bool {
	switch c.Status() {
	case common.ConnectorStatusAvailable, common.ConnectorStatusUnavailable, common.ConnectorStatusFaulted:
		return false
	}
	return true
}

func (c *Connector) IsCharging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isChargingLocked()
}

func (c *Connector) isChargingLocked() bool {
	return c.session.IsActive() && c.status == common.ConnectorStatusCharging
}

// HasSession reports whether a session is active, whatever the status.
func (c *Connector) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.IsActive()
}

func (c *Connector) TagID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.TagID()
}

func (c *Connector) TransactionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.TransactionID()
}

func (c *Connector) AveragePower() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.AveragePower()
}

func (c *Connector) EnergyEstimate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.EnergyEstimate()
}

func (c *Connector) Snapshot() session.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Snapshot()
}

// LatestMeterSample returns the highest sample recorded in the current session.
func (c *Connector) LatestMeterSample() (session.MeterSample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.MaxMeterSample()
}

// StartCharging starts a session for tagID under the transaction the server accepted.
func (c *Connector) StartCharging(tagID, transactionID string, meterSampleTime, connectorTimeout time.Duration) StartResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isReservedLocked(tagID) {
		c.log.Warnf("connector reserved for another tag, refusing %s", tagID)
		return SessionStartFailure
	}
	if err := c.session.Start(tagID, transactionID); err != nil {
		c.log.Warnf("cannot start session: %v", err)
		return SessionStartFailure
	}

	c.cancelTimerLocked(roleReservation)
	c.reservation = nil

	if err := c.relay.On(); err != nil {
		c.log.Errorf("relay on: %v", err)
	}
	if c.meter != nil {
		if err := c.meter.Reset(); err != nil {
			c.log.Errorf("power meter reset: %v", err)
		}
	}
	c.armWatchdogsLocked(c.cfg.MaxChargingTime, meterSampleTime, connectorTimeout)
	c.persistSessionLocked()

	c.log.Infof("started charging for %s, transaction %s", tagID, transactionID)
	return SessionStartSuccess
}

// StopCharging is the single teardown point of a session. It only handles local state: the
// transaction must already be closed with the server and the caller sets the status afterwards.
func (c *Connector) StopCharging() {
	c.mu.Lock()
	defer c.mu.Unlock()

	transactionID := c.session.TransactionID()
	c.session.Stop()
	if err := c.relay.Off(); err != nil {
		c.log.Errorf("relay off: %v", err)
	}
	c.cancelAllTimersLocked()
	c.reservation = nil

	if c.store != nil {
		if err := c.store.ClearSession(c.cfg.EvseID, c.cfg.ConnectorID); err != nil {
			c.log.Errorf("clear persisted session: %v", err)
		}
	}
	c.log.Infof("stopped charging, transaction %s", transactionID)
}

// ResumeCharging restores a session found active at boot with the charging time it has left.
func (c *Connector) ResumeCharging(snapshot session.Snapshot, meterSampleTime, connectorTimeout time.Duration) ResumeResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.IsActive() {
		return SessionResumeFailure
	}
	elapsed := time.Since(snapshot.Started).Truncate(time.Minute)
	remaining := c.cfg.MaxChargingTime - elapsed
	if remaining <= 0 {
		c.log.Infof("session %s exceeded the maximum charging time", snapshot.TransactionID)
		return SessionResumeFailure
	}
	if err := c.session.Resume(snapshot); err != nil {
		c.log.Warnf("cannot resume session: %v", err)
		return SessionResumeFailure
	}

	if err := c.relay.On(); err != nil {
		c.log.Errorf("relay on: %v", err)
	}
	c.armWatchdogsLocked(remaining, meterSampleTime, connectorTimeout)
	c.persistSessionLocked()

	c.log.Infof("resumed transaction %s with %v left", snapshot.TransactionID, remaining)
	return SessionResumeSuccess
}

func (c *Connector) persistSessionLocked() {
	if c.store == nil {
		return
	}
	snapshot := c.session.Snapshot()
	err := c.store.UpdateSession(c.cfg.EvseID, c.cfg.ConnectorID, func(s *session.Snapshot) {
		*s = snapshot
	})
	if err != nil {
		c.log.Errorf("persist session: %v", err)
	}
}
