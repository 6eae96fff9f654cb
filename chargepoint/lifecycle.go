package chargepoint

import (
	"context"
	"time"

	"charge_point/common"
	"charge_point/connector"
	"charge_point/notifier"
	"charge_point/session"
)

const defaultBootRetry = 10 * time.Second

// Boot sends BootNotification until the server accepts it, starts the heartbeat and restores the
// connectors.
func (cp *ChargePoint) Boot(ctx context.Context) error {
	log := cp.logDefault("BootNotification")
	var result BootResult
	for {
		var err error
		result, err = cp.protocol.BootNotification(cp.model, cp.vendor)
		if err == nil && result.Accepted {
			break
		}
		retry := result.Interval
		if retry <= 0 {
			retry = defaultBootRetry
		}
		if err != nil {
			log.Errorf("error on request: %v", err)
		} else {
			log.Warnf("boot notification not accepted, retrying in %v", retry)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
	log.Infof("boot accepted, heartbeat interval %v", result.Interval)

	cp.notify(notifier.TopicBootNotification, BootEvent{
		ChargePointID: cp.id,
		Protocol:      cp.protocol.Version(),
		Interval:      result.Interval,
		Timestamp:     time.Now(),
	})
	cp.startHeartbeat(result.Interval)
	cp.RestoreState()
	return nil
}

// startHeartbeat (re)arms the heartbeat job. A zero interval falls back to the configuration.
func (cp *ChargePoint) startHeartbeat(interval time.Duration) {
	if interval <= 0 {
		interval = cp.config.Seconds(cp.keys.HeartbeatInterval, defaultInterval)
	}
	cp.scheduler.Every(heartbeatJob, interval, cp.sendHeartbeat)
}

func (cp *ChargePoint) sendHeartbeat() {
	if err := cp.protocol.Heartbeat(); err != nil {
		cp.logDefault("Heartbeat").Errorf("error on request: %v", err)
	}
}

// RestoreState re-announces the persisted status of every connector and picks up the sessions that
// were running when the process stopped.
func (cp *ChargePoint) RestoreState() {
	for _, c := range cp.Connectors() {
		cp.restoreConnector(c)
	}
}

func (cp *ChargePoint) restoreConnector(c *connector.Connector) {
	log := cp.logDefault("RestoreState")
	status, snapshot, err := cp.store.GetStatusAndSession(c.EvseID(), c.ID())
	if err != nil {
		log.Errorf("read state of connector %d/%d: %v", c.EvseID(), c.ID(), err)
		status = common.ConnectorStatusAvailable
	}

	switch status {
	case common.ConnectorStatusCharging:
		if snapshot.IsActive && c.ResumeCharging(snapshot, cp.meterSampleTime(), cp.connectionTimeout()) == connector.SessionResumeSuccess {
			cp.changeStatus(c, common.ConnectorStatusCharging)
			return
		}
		cp.changeStatus(c, common.ConnectorStatusAvailable)
		if err := cp.store.ClearSession(c.EvseID(), c.ID()); err != nil {
			log.Errorf("clear stale session: %v", err)
		}
		if snapshot.TransactionID != "" {
			log.Infof("closing stale transaction %s", snapshot.TransactionID)
			cp.scheduler.Once("", cp.commandDelay, func() {
				cp.closeStaleTransaction(c, snapshot)
			})
		}

	case common.ConnectorStatusPreparing:
		cp.changeStatus(c, common.ConnectorStatusAvailable)
		if err := cp.store.ClearSession(c.EvseID(), c.ID()); err != nil {
			log.Errorf("clear pending session: %v", err)
		}
		if snapshot.TagID != "" {
			log.Infof("retrying interrupted start for %s", snapshot.TagID)
			cp.scheduler.Once("", cp.commandDelay, func() {
				cp.StartCharging(c, snapshot.TagID, false)
			})
		}

	case common.ConnectorStatusUnavailable, common.ConnectorStatusFaulted:
		cp.changeStatus(c, status)

	default:
		cp.changeStatus(c, common.ConnectorStatusAvailable)
	}
}

// closeStaleTransaction ends on the server a transaction that could not be resumed.
func (cp *ChargePoint) closeStaleTransaction(c *connector.Connector, snapshot session.Snapshot) {
	var meterStop float64
	for _, sample := range snapshot.Consumption {
		if sample.Value > meterStop {
			meterStop = sample.Value
		}
	}
	err := cp.protocol.StopTransaction(StopRequest{
		Address:       cp.address(c),
		TransactionID: snapshot.TransactionID,
		TagID:         snapshot.TagID,
		MeterStop:     int(meterStop),
		Timestamp:     time.Now(),
		Reason:        common.StopReasonPowerLoss,
	})
	if err != nil {
		cp.logDefault("StopTransaction").Errorf("error on request: %v", err)
	}
}

// Cleanup stops every running session with reason, waits for pending jobs and persists the final
// state. The scheduler is shut down and the indicators cleared whatever happens.
func (cp *ChargePoint) Cleanup(ctx context.Context, reason common.StopReason) error {
	log := cp.logDefault("Cleanup")
	defer func() {
		cp.scheduler.Shutdown()
		cp.indicator.Clear()
	}()

	cp.scheduler.Cancel(heartbeatJob)
	for _, c := range cp.Connectors() {
		if !c.IsCharging() {
			continue
		}
		c := c
		cp.scheduler.Once("", 0, func() {
			cp.StopCharging(c, "", reason)
		})
	}

	err := cp.scheduler.Drain(ctx)
	if err != nil {
		log.Warnf("pending jobs left: %v", err)
	}

	for _, c := range cp.Connectors() {
		if err := cp.store.SetStatus(c.EvseID(), c.ID(), c.Status()); err != nil {
			log.Errorf("persist status of %d/%d: %v", c.EvseID(), c.ID(), err)
		}
		snapshot := c.Snapshot()
		err := cp.store.UpdateSession(c.EvseID(), c.ID(), func(s *session.Snapshot) {
			*s = snapshot
		})
		if err != nil {
			log.Errorf("persist session of %d/%d: %v", c.EvseID(), c.ID(), err)
		}
	}
	log.Info("charge point stopped")
	return err
}
