package ocpp201

import (
	"github.com/sirupsen/logrus"

	"charge_point/chargepoint"
)

// handler receives the requests of the CSMS for every supported functional block and forwards them
// to the charge point as protocol-neutral commands.
type handler struct {
	id         string
	dispatcher chargepoint.Dispatcher
	adapter    *Adapter
	log        *logrus.Entry
}

func (h *handler) logDefault(feature string) *logrus.Entry {
	return h.log.WithFields(logrus.Fields{"client": h.id, "message": feature})
}
