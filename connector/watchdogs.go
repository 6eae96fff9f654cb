package connector

import (
	"fmt"
	"time"

	"charge_point/common"
	"charge_point/session"
)

type timerRole string

const (
	roleChargingWatchdog timerRole = "charging_watchdog"
	roleMeterSampling    timerRole = "meter_sampling"
	roleMeterReport      timerRole = "update_meter_values"
	roleConnectorTimeout timerRole = "connector_timeout"
	roleReservation      timerRole = "cancel_reservation"
)

func (c *Connector) jobID(role timerRole) string {
	return fmt.Sprintf("%s_%d_%d", role, c.cfg.EvseID, c.cfg.ConnectorID)
}

func (c *Connector) armWatchdogsLocked(remaining, meterSampleTime, connectorTimeout time.Duration) {
	c.cancelTimerLocked(roleChargingWatchdog)
	c.timers[roleChargingWatchdog] = c.scheduler.Timer(c.jobID(roleChargingWatchdog), remaining, c.chargingTimeElapsed)

	if c.meter == nil {
		return
	}
	c.cancelTimerLocked(roleMeterSampling)
	c.timers[roleMeterSampling] = c.scheduler.Every(c.jobID(roleMeterSampling), c.cfg.SamplingPeriod, c.sampleMeter)
	if meterSampleTime > 0 {
		c.cancelTimerLocked(roleMeterReport)
		c.timers[roleMeterReport] = c.scheduler.Every(c.jobID(roleMeterReport), meterSampleTime, c.reportMeterValues)
	}
	if connectorTimeout > 0 {
		c.cancelTimerLocked(roleConnectorTimeout)
		c.timers[roleConnectorTimeout] = c.scheduler.Every(c.jobID(roleConnectorTimeout), connectorTimeout, c.checkConnectorPlugged)
	}
}

func (c *Connector) cancelTimerLocked(role timerRole) {
	c.timers[role].Cancel()
	delete(c.timers, role)
}

func (c *Connector) cancelAllTimersLocked() {
	for _, role := range []timerRole{roleChargingWatchdog, roleMeterSampling, roleMeterReport, roleConnectorTimeout, roleReservation} {
		c.cancelTimerLocked(role)
	}
}

// ArmedTimers lists the roles of the timers currently registered for this connector.
func (c *Connector) ArmedTimers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var roles []string
	for role, job := range c.timers {
		if _, ok := job.NextRun(); ok {
			roles = append(roles, string(role))
		}
	}
	return roles
}

func (c *Connector) chargingTimeElapsed() {
	c.mu.RLock()
	hook := c.hooks.StopTransaction
	charging := c.session.IsActive()
	c.mu.RUnlock()

	if charging && hook != nil {
		c.log.Info("maximum charging time reached")
		hook(c, common.StopReasonTimeLimitReached)
	}
}

// sampleMeter reads the power meter into the session. A power read error skips the cycle, an
// energy read error only skips the meter sample.
func (c *Connector) sampleMeter() {
	power, err := c.meter.CurrentPower()
	if err != nil {
		c.log.Warnf("power meter read: %v", err)
		return
	}
	var energy float64
	energyRead := false
	if power > 0 {
		if energy, err = c.meter.Energy(); err != nil {
			c.log.Warnf("energy read: %v", err)
		} else {
			energyRead = true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.IsActive() {
		return
	}
	c.session.AddPowerSample(power)
	if energyRead {
		c.session.AddMeterSample(energy)
	}
}

func (c *Connector) reportMeterValues() {
	c.mu.RLock()
	_, watchdogArmed := c.timers[roleChargingWatchdog].NextRun()
	if !watchdogArmed || !c.isChargingLocked() {
		c.mu.RUnlock()
		return
	}
	sample, ok := c.session.MaxMeterSample()
	consumption := c.session.MeterSamples()
	hook := c.hooks.SendMeterValues
	c.mu.RUnlock()

	if ok && hook != nil {
		hook(c, sample)
	}
	if c.store != nil {
		err := c.store.UpdateSession(c.cfg.EvseID, c.cfg.ConnectorID, func(s *session.Snapshot) {
			s.Consumption = consumption
		})
		if err != nil {
			c.log.Errorf("persist consumption: %v", err)
		}
	}
}

func (c *Connector) checkConnectorPlugged() {
	c.mu.RLock()
	charging := c.isChargingLocked()
	average := c.session.AveragePower()
	hook := c.hooks.StopTransaction
	c.mu.RUnlock()

	if charging && average < c.cfg.MinPowerThreshold && hook != nil {
		c.log.Infof("average power %.1f W below %.1f W, EV disconnected", average, c.cfg.MinPowerThreshold)
		hook(c, common.StopReasonEVDisconnected)
	}
}
