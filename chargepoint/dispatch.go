package chargepoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charge_point/common"
	"charge_point/configuration"
	"charge_point/connector"
	"charge_point/firmware"
	"charge_point/notifier"
)

const (
	firmwareJob  = "update_firmware"
	resetJob     = "reset"
	resetTimeout = 30 * time.Second
)

func result(status common.Status) common.Result {
	return common.Result{Status: status}
}

// Dispatch answers a command of the central system. Work that talks back to the server or changes
// a connector is scheduled to run after the answer.
func (cp *ChargePoint) Dispatch(cmd common.ServerCommand) common.Result {
	var res common.Result
	switch cmd := cmd.(type) {
	case common.RemoteStart:
		res = cp.remoteStart(cmd)
	case common.RemoteStop:
		res = cp.remoteStop(cmd)
	case common.ChangeAvailability:
		res = cp.changeAvailability(cmd)
	case common.UnlockConnector:
		res = cp.unlockConnector(cmd)
	case common.UpdateFirmware:
		res = cp.scheduleFirmwareUpdate(cmd)
	case common.ReserveNow:
		res = cp.reserveNow(cmd)
	case common.CancelReservation:
		res = cp.cancelReservation(cmd)
	case common.GetConfiguration:
		values, unknown := cp.config.Values(cmd.Keys)
		res = common.Result{Status: common.StatusAccepted, Configuration: values, UnknownKeys: unknown}
	case common.ChangeConfiguration:
		res = cp.changeConfiguration(cmd)
	case common.ClearCache:
		res = cp.clearCache()
	case common.SendLocalList:
		res = cp.sendLocalList(cmd)
	case common.GetLocalListVersion:
		res = cp.getLocalListVersion()
	case common.Reset:
		res = cp.reset(cmd)
	case common.TriggerMessage:
		res = cp.triggerMessage(cmd)
	case common.DataTransfer:
		res = result(common.StatusRejected)
	default:
		res = result(common.StatusNotImplemented)
	}
	cp.logDefault(cmd.Action()).Infof("%+v: %v", cmd, res.Status)
	return res
}

func (cp *ChargePoint) remoteStart(cmd common.RemoteStart) common.Result {
	var c *connector.Connector
	if cmd.ConnectorID > 0 {
		if c = cp.FindConnector(cmd.EvseID, cmd.ConnectorID); c != nil && !cp.canStart(c, cmd.TagID) {
			c = nil
		}
	} else {
		c = cp.selectConnector(cmd.TagID, cmd.EvseID)
	}
	if c == nil {
		return result(common.StatusRejected)
	}
	cp.scheduler.Once(fmt.Sprintf("StartRemoteTx_%d_%d", c.EvseID(), c.ID()), cp.commandDelay, func() {
		response := cp.StartCharging(c, cmd.TagID, true)
		cp.indicator.ShowResponse(c.ID(), response)
	})
	return result(common.StatusAccepted)
}

func (cp *ChargePoint) remoteStop(cmd common.RemoteStop) common.Result {
	c := cp.connectorWithTransaction(cmd.TransactionID)
	if c == nil {
		return result(common.StatusRejected)
	}
	cp.scheduler.Once(fmt.Sprintf("StopRemoteTx_%d_%d", c.EvseID(), c.ID()), cp.commandDelay, func() {
		cp.StopCharging(c, "", common.StopReasonRemote)
	})
	return result(common.StatusAccepted)
}

// changeAvailability applies to one connector, one EVSE (connector 0) or the whole charge point
// (EVSE and connector 0). Connectors in use change once their session ends.
func (cp *ChargePoint) changeAvailability(cmd common.ChangeAvailability) common.Result {
	var targets []*connector.Connector
	switch {
	case cmd.EvseID == 0 && cmd.ConnectorID == 0:
		cp.setAvailable(cmd.Operative)
		targets = cp.Connectors()
	case cmd.ConnectorID == 0:
		targets = cp.connectorsOf(cmd.EvseID)
	default:
		if c := cp.FindConnector(cmd.EvseID, cmd.ConnectorID); c != nil {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return result(common.StatusRejected)
	}

	target := common.ConnectorStatusUnavailable
	if cmd.Operative {
		target = common.ConnectorStatusAvailable
	}
	status := common.StatusAccepted
	for _, c := range targets {
		if !cp.applyAvailability(c, target, cmd.Operative) {
			status = common.StatusScheduled
		}
	}
	return result(status)
}

// applyAvailability changes c to target unless a start or stop sequence holds it or a session is
// running, in which case target is kept pending. It reports whether the change was applied.
func (cp *ChargePoint) applyAvailability(c *connector.Connector, target common.ConnectorStatus, operative bool) bool {
	if !c.TryLock() {
		c.SetPendingStatus(target)
		return false
	}
	defer c.Unlock()

	if c.HasSession() || c.IsPreparing() {
		c.SetPendingStatus(target)
		return false
	}
	if operative {
		if c.IsUnavailable() {
			cp.setStatusLater(c, target)
		}
		return true
	}
	c.CancelReservation("")
	cp.setStatusLater(c, target)
	return true
}

func (cp *ChargePoint) unlockConnector(cmd common.UnlockConnector) common.Result {
	c := cp.FindConnector(cmd.EvseID, cmd.ConnectorID)
	if c == nil {
		return result(common.StatusNotSupported)
	}
	if !c.IsCharging() {
		return result(common.StatusUnlockFailed)
	}
	cp.scheduler.Once(fmt.Sprintf("Unlock_%d_%d", c.EvseID(), c.ID()), cp.commandDelay, func() {
		cp.StopCharging(c, "", common.StopReasonUnlockCommand)
	})
	return result(common.StatusUnlocked)
}

func (cp *ChargePoint) reserveNow(cmd common.ReserveNow) common.Result {
	var c *connector.Connector
	if cmd.ConnectorID > 0 {
		c = cp.FindConnector(cmd.EvseID, cmd.ConnectorID)
	} else {
		for _, candidate := range cp.connectorsOf(cmd.EvseID) {
			if candidate.IsAvailable() && (cmd.ConnectorType == "" || candidate.Type() == cmd.ConnectorType) {
				c = candidate
				break
			}
		}
	}
	if c == nil {
		return result(common.StatusRejected)
	}

	switch c.AddReservation(cmd.TagID, cmd.Expiry, cmd.ReservationID) {
	case connector.ReservationSuccess:
		cp.announceLater(c)
		return result(common.StatusAccepted)
	case connector.AlreadyReserved:
		return result(common.StatusOccupied)
	}
	switch {
	case c.IsUnavailable():
		return result(common.StatusUnavailable)
	case c.IsFaulted():
		return result(common.StatusFaulted)
	case c.IsOccupied():
		return result(common.StatusOccupied)
	}
	return result(common.StatusRejected)
}

func (cp *ChargePoint) cancelReservation(cmd common.CancelReservation) common.Result {
	for _, c := range cp.Connectors() {
		if c.CancelReservation(cmd.ReservationID) {
			cp.announceLater(c)
			return result(common.StatusAccepted)
		}
	}
	return result(common.StatusRejected)
}

func (cp *ChargePoint) changeConfiguration(cmd common.ChangeConfiguration) common.Result {
	err := cp.config.Set(cmd.Key, cmd.Value)
	switch {
	case errors.Is(err, configuration.ErrUnknownKey):
		return result(common.StatusNotSupported)
	case err != nil:
		cp.logDefault(cmd.Action()).Warnf("cannot set %s: %v", cmd.Key, err)
		return result(common.StatusRejected)
	}

	if cmd.Key == cp.keys.HeartbeatInterval {
		cp.startHeartbeat(0)
	}
	if variable, _ := cp.config.Get(cmd.Key); variable.RebootRequired {
		return result(common.StatusRebootRequired)
	}
	return result(common.StatusAccepted)
}

func (cp *ChargePoint) clearCache() common.Result {
	if !cp.cacheEnabled() {
		return result(common.StatusRejected)
	}
	if err := cp.cache.Clear(); err != nil {
		cp.logDefault("ClearCache").Errorf("clear cache: %v", err)
		return result(common.StatusRejected)
	}
	return result(common.StatusAccepted)
}

func (cp *ChargePoint) localListEnabled() bool {
	return cp.cache != nil && cp.config.Bool(cp.keys.LocalAuthListEnabled)
}

func (cp *ChargePoint) sendLocalList(cmd common.SendLocalList) common.Result {
	if !cp.localListEnabled() {
		return result(common.StatusNotSupported)
	}
	return result(cp.cache.ApplyLocalList(cmd.Version, cmd.Full, cmd.Entries))
}

func (cp *ChargePoint) getLocalListVersion() common.Result {
	res := result(common.StatusAccepted)
	if !cp.localListEnabled() {
		res.ListVersion = -1
		return res
	}
	res.ListVersion = cp.cache.Version()
	return res
}

// reset stops every session, persists the state and restarts the process (soft) or the host (hard).
func (cp *ChargePoint) reset(cmd common.Reset) common.Result {
	if cp.restart == nil {
		return result(common.StatusRejected)
	}
	reason := common.StopReasonSoftReset
	if cmd.Hard {
		reason = common.StopReasonHardReset
	}
	cp.scheduler.Timer(resetJob, cp.resetDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()
		_ = cp.Cleanup(ctx, reason)
		if err := cp.restart(cmd.Hard); err != nil {
			cp.logDefault("Reset").Errorf("restart: %v", err)
		}
	})
	return result(common.StatusAccepted)
}

func (cp *ChargePoint) triggerMessage(cmd common.TriggerMessage) common.Result {
	var targets []*connector.Connector
	if cmd.ConnectorID > 0 {
		c := cp.FindConnector(cmd.EvseID, cmd.ConnectorID)
		if c == nil {
			return result(common.StatusRejected)
		}
		targets = append(targets, c)
	} else {
		targets = cp.connectorsOf(cmd.EvseID)
	}

	switch cmd.Message {
	case common.TriggerStatusNotification:
		for _, c := range targets {
			cp.announceLater(c)
		}
	case common.TriggerMeterValues:
		for _, c := range targets {
			if sample, ok := c.LatestMeterSample(); ok && c.IsCharging() {
				c := c
				cp.later(func() { cp.sendMeterValues(c, sample) })
			}
		}
	case common.TriggerHeartbeat:
		cp.later(cp.sendHeartbeat)
	case common.TriggerBootNotification:
		cp.later(func() {
			if _, err := cp.protocol.BootNotification(cp.model, cp.vendor); err != nil {
				cp.logDefault("BootNotification").Errorf("error on request: %v", err)
			}
		})
	case common.TriggerFirmwareStatusNotification:
		cp.later(func() { cp.reportFirmwareStatus(cp.FirmwareStatus()) })
	default:
		return result(common.StatusNotImplemented)
	}
	return result(common.StatusAccepted)
}

func (cp *ChargePoint) scheduleFirmwareUpdate(cmd common.UpdateFirmware) common.Result {
	if cp.updater == nil {
		return result(common.StatusRejected)
	}
	cp.scheduler.TimerAt(firmwareJob, cmd.RetrieveDate, func() {
		cp.updateFirmware(cmd)
	})
	return result(common.StatusAccepted)
}

func (cp *ChargePoint) updateFirmware(cmd common.UpdateFirmware) {
	log := cp.logDefault("UpdateFirmware")
	log.Infof("starting update firmware procedure from %s", cmd.Location)

	cp.reportFirmwareStatus(firmware.StatusDownloading)
	path, err := cp.updater.Download(context.Background(), cmd.Location, cmd.Retries, cmd.RetryInterval)
	if err != nil {
		log.Errorf("error while downloading file %v", err)
		cp.reportFirmwareStatus(firmware.StatusDownloadFailed)
		return
	}
	cp.reportFirmwareStatus(firmware.StatusDownloaded)

	cp.reportFirmwareStatus(firmware.StatusInstalling)
	if err := cp.updater.Install(path); err != nil {
		log.Errorf("error while installing %s: %v", path, err)
		cp.reportFirmwareStatus(firmware.StatusInstallationFailed)
		return
	}
	cp.reportFirmwareStatus(firmware.StatusInstalled)
}

func (cp *ChargePoint) reportFirmwareStatus(status firmware.Status) {
	cp.mu.Lock()
	cp.firmwareStatus = status
	cp.mu.Unlock()

	if err := cp.protocol.FirmwareStatusNotification(status); err != nil {
		cp.logDefault("FirmwareStatusNotification").Errorf("error on request: %v", err)
	}
	cp.notify(notifier.TopicFirmwareStatus, FirmwareEvent{ChargePointID: cp.id, Status: status, Timestamp: time.Now()})
}
