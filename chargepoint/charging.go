package chargepoint

import (
	"context"
	"time"

	"charge_point/common"
	"charge_point/connector"
	"charge_point/notifier"
	"charge_point/session"

	"github.com/sirupsen/logrus"
)

const recorderTimeout = 5 * time.Second

// HandleChargingRequest reacts to a card presented at the reader. A tag with a running session
// stops it, otherwise a session is started on the connector reserved for the tag or on the first
// free one.
func (cp *ChargePoint) HandleChargingRequest(tagID string) (Address, common.ChargingResponse) {
	cp.indicator.ShowCardRead(tagID)

	if c := cp.connectorWithTag(tagID); c != nil {
		response := cp.StopCharging(c, tagID, common.StopReasonLocal)
		cp.indicator.ShowResponse(c.ID(), response)
		return cp.address(c), response
	}

	c := cp.selectConnector(tagID, 0)
	if c == nil {
		cp.logDefault("ChargingRequest").Infof("no connector available for %s", tagID)
		cp.observer.ChargingResult(common.NoAvailableConnectors)
		cp.indicator.ShowResponse(0, common.NoAvailableConnectors)
		return Address{}, common.NoAvailableConnectors
	}
	response := cp.StartCharging(c, tagID, false)
	cp.indicator.ShowResponse(c.ID(), response)
	return cp.address(c), response
}

// selectConnector prefers a connector reserved for tagID, then the first one a session can start
// on. evseID 0 searches every EVSE.
func (cp *ChargePoint) selectConnector(tagID string, evseID int) *connector.Connector {
	candidates := cp.connectorsOf(evseID)
	for _, c := range candidates {
		if r, ok := c.Reservation(); ok && r.TagID == tagID && cp.canStart(c, tagID) {
			return c
		}
	}
	for _, c := range candidates {
		if cp.canStart(c, tagID) {
			return c
		}
	}
	return nil
}

// canStart checks that a session for tagID may begin on c right now.
func (cp *ChargePoint) canStart(c *connector.Connector, tagID string) bool {
	if !cp.IsAvailable() {
		return false
	}
	switch c.Status() {
	case common.ConnectorStatusAvailable, common.ConnectorStatusPreparing, common.ConnectorStatusReserved:
	default:
		return false
	}
	if c.HasSession() || c.IsReserved(tagID) {
		return false
	}
	if cp.protocol.ExclusiveEVSE() {
		for _, sibling := range cp.connectorsOf(c.EvseID()) {
			if sibling != c && sibling.HasSession() {
				return false
			}
		}
	}
	return true
}

// StartCharging runs the start sequence for tagID on c. remote marks starts requested by the
// central system.
func (cp *ChargePoint) StartCharging(c *connector.Connector, tagID string, remote bool) common.ChargingResponse {
	response := cp.startCharging(c, tagID, remote)
	cp.observer.ChargingResult(response)
	return response
}

func (cp *ChargePoint) startCharging(c *connector.Connector, tagID string, remote bool) common.ChargingResponse {
	log := cp.logDefault("StartTransaction").WithFields(logrus.Fields{"evse": c.EvseID(), "connector": c.ID()})

	if !cp.claimTag(tagID, c) {
		log.Infof("tag %s already has a session", tagID)
		return common.StartChargingFail
	}
	defer cp.releaseTag(tagID)

	c.Lock()
	defer c.Unlock()

	if !cp.canStart(c, tagID) {
		log.Infof("connector unavailable for %s (status %s)", tagID, c.Status())
		return common.ConnectorUnavailable
	}
	if !cp.isTagAuthorized(tagID, remote) {
		log.Infof("tag %s not authorized", tagID)
		return common.UnauthorizedCard
	}
	// Authorization went to the server: the connector may have changed meanwhile.
	if !cp.canStart(c, tagID) {
		log.Infof("connector taken while authorizing %s", tagID)
		return common.ConnectorUnavailable
	}

	cp.changeStatus(c, common.ConnectorStatusPreparing)
	err := cp.store.UpdateSession(c.EvseID(), c.ID(), func(s *session.Snapshot) {
		s.TagID = tagID
	})
	if err != nil {
		log.Errorf("persist pending session: %v", err)
	}

	addr := cp.address(c)
	now := time.Now()
	result, err := cp.protocol.StartTransaction(TransactionRequest{
		Address:    addr,
		TagID:      tagID,
		MeterStart: 0,
		Timestamp:  now,
		Remote:     remote,
	})
	if err != nil {
		log.Errorf("error on request: %v", err)
		cp.revertStart(c)
		return common.StartChargingFail
	}
	if status := result.TagInfo.Status; status != common.AuthorizationAccepted && status != common.AuthorizationConcurrentTx {
		log.Infof("transaction for %s rejected: %v", tagID, status)
		cp.revertStart(c)
		return common.StartChargingFail
	}

	if c.StartCharging(tagID, result.TransactionID, cp.meterSampleTime(), cp.connectionTimeout()) != connector.SessionStartSuccess {
		log.Warnf("cannot start session for transaction %s, closing it", result.TransactionID)
		err := cp.protocol.StopTransaction(StopRequest{
			Address:       addr,
			TransactionID: result.TransactionID,
			TagID:         tagID,
			Timestamp:     time.Now(),
			Reason:        common.StopReasonOther,
		})
		if err != nil {
			log.Errorf("error on request: %v", err)
		}
		cp.revertStart(c)
		return common.StartChargingFail
	}

	cp.changeStatus(c, common.ConnectorStatusCharging)
	log.Infof("transaction %s started for %s", result.TransactionID, tagID)

	record := common.SessionRecord{
		ChargePointID: cp.id,
		EvseID:        c.EvseID(),
		ConnectorID:   c.ID(),
		TransactionID: result.TransactionID,
		TagID:         tagID,
		StartedAt:     now,
	}
	cp.notify(notifier.TopicSessionStarted, SessionEvent{
		ChargePointID: cp.id,
		EvseID:        record.EvseID,
		ConnectorID:   record.ConnectorID,
		TransactionID: record.TransactionID,
		TagID:         tagID,
		Timestamp:     now,
	})
	cp.record(func(ctx context.Context) error { return cp.recorder.SessionStarted(ctx, record) })
	return common.StartChargingSuccess
}

// revertStart puts c back where it was before a failed start.
func (cp *ChargePoint) revertStart(c *connector.Connector) {
	status := common.ConnectorStatusAvailable
	if _, ok := c.Reservation(); ok {
		status = common.ConnectorStatusReserved
	}
	if pending, ok := c.TakePendingStatus(); ok {
		status = pending
	}
	if err := cp.store.ClearSession(c.EvseID(), c.ID()); err != nil {
		cp.logDefault("StartTransaction").Errorf("clear pending session: %v", err)
	}
	cp.changeStatus(c, status)
}

// StopCharging runs the stop sequence on c. An empty tagID marks a stop decided by the charge
// point itself.
func (cp *ChargePoint) StopCharging(c *connector.Connector, tagID string, reason common.StopReason) common.ChargingResponse {
	c.Lock()
	defer c.Unlock()
	response := cp.stopCharging(c, tagID, reason)
	cp.observer.ChargingResult(response)
	return response
}

func (cp *ChargePoint) stopCharging(c *connector.Connector, tagID string, reason common.StopReason) common.ChargingResponse {
	log := cp.logDefault("StopTransaction").WithFields(logrus.Fields{"evse": c.EvseID(), "connector": c.ID()})

	if !c.IsCharging() && !c.IsPreparing() {
		log.Infof("nothing to stop (status %s)", c.Status())
		return common.StopChargingFail
	}
	snapshot := c.Snapshot()
	energy := c.EnergyEstimate()

	if reason == common.StopReasonEVDisconnected && !cp.config.Bool(cp.keys.StopTransactionOnEVSideDisconnect) {
		log.Infof("EV disconnected, transaction %s stays open", snapshot.TransactionID)
		c.StopCharging()
		cp.changeStatus(c, common.ConnectorStatusAvailable)
		cp.applyPendingStatus(c)
		cp.sessionStopped(c, snapshot, energy, reason)
		return common.StopChargingSuccess
	}

	if tagID != "" && tagID != snapshot.TagID && !cp.isTagAuthorized(tagID, false) {
		log.Infof("tag %s may not stop the session of %s", tagID, snapshot.TagID)
		return common.UnauthorizedCard
	}

	if snapshot.TransactionID != "" {
		err := cp.protocol.StopTransaction(StopRequest{
			Address:       cp.address(c),
			TransactionID: snapshot.TransactionID,
			TagID:         snapshot.TagID,
			MeterStop:     int(energy),
			Timestamp:     time.Now(),
			Reason:        reason,
		})
		if err != nil {
			log.Errorf("error on request: %v", err)
		}
	}

	c.StopCharging()
	for _, status := range cp.protocol.StopSequence(reason) {
		cp.changeStatus(c, status)
	}
	cp.applyPendingStatus(c)
	log.Infof("transaction %s stopped: %s", snapshot.TransactionID, reason)

	cp.sessionStopped(c, snapshot, energy, reason)
	return common.StopChargingSuccess
}

// applyPendingStatus applies an availability change that waited for the session to end.
func (cp *ChargePoint) applyPendingStatus(c *connector.Connector) {
	if status, ok := c.TakePendingStatus(); ok {
		cp.changeStatus(c, status)
	}
}

func (cp *ChargePoint) sessionStopped(c *connector.Connector, snapshot session.Snapshot, energy float64, reason common.StopReason) {
	now := time.Now()
	record := common.SessionRecord{
		ChargePointID: cp.id,
		EvseID:        c.EvseID(),
		ConnectorID:   c.ID(),
		TransactionID: snapshot.TransactionID,
		TagID:         snapshot.TagID,
		StartedAt:     snapshot.Started,
		StoppedAt:     now,
		EnergyWh:      energy,
		Reason:        reason,
	}
	cp.notify(notifier.TopicSessionStopped, SessionEvent{
		ChargePointID: cp.id,
		EvseID:        record.EvseID,
		ConnectorID:   record.ConnectorID,
		TransactionID: record.TransactionID,
		TagID:         record.TagID,
		EnergyWh:      energy,
		Reason:        reason,
		Timestamp:     now,
	})
	cp.record(func(ctx context.Context) error { return cp.recorder.SessionStopped(ctx, record) })
}

func (cp *ChargePoint) record(fn func(ctx context.Context) error) {
	if cp.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		cp.logDefault("history").Errorf("record session: %v", err)
	}
}
