package chargepoint

import (
	"time"

	"charge_point/common"
	"charge_point/connector"
	"charge_point/notifier"
)

// changeStatus moves c to status and reports it.
func (cp *ChargePoint) changeStatus(c *connector.Connector, status common.ConnectorStatus) {
	c.SetStatus(status)
	cp.announce(c)
}

// announce reports the current status of c to the server, the store, the indicators and the bus.
func (cp *ChargePoint) announce(c *connector.Connector) {
	status := c.Status()
	addr := cp.address(c)
	log := cp.logDefault("StatusNotification")

	if err := cp.protocol.StatusNotification(addr, status); err != nil {
		log.Errorf("error on request: %v", err)
	} else {
		log.Infof("status for connector %d/%d updated to %v", addr.EvseID, addr.ConnectorID, status)
	}
	if err := cp.store.SetStatus(addr.EvseID, addr.ConnectorID, status); err != nil {
		log.Errorf("persist status: %v", err)
	}
	cp.indicator.ShowStatus(addr.EvseID, addr.ConnectorID, status)
	cp.notify(notifier.TopicStatusNotification, StatusEvent{
		ChargePointID: cp.id,
		EvseID:        addr.EvseID,
		ConnectorID:   addr.ConnectorID,
		Status:        status,
		Timestamp:     time.Now(),
	})
}

// later runs fn once the answer of the current command handler went out.
func (cp *ChargePoint) later(fn func()) {
	cp.scheduler.Once("", cp.replyDelay, fn)
}

func (cp *ChargePoint) announceLater(c *connector.Connector) {
	cp.later(func() { cp.announce(c) })
}

// setStatusLater changes the status now and reports it after the handler answered.
func (cp *ChargePoint) setStatusLater(c *connector.Connector, status common.ConnectorStatus) {
	c.SetStatus(status)
	cp.announceLater(c)
}
