package hardware

import (
	"charge_point/common"

	"github.com/sirupsen/logrus"
)

// Indicator is any visual feedback device: LED strip, display or a remote dashboard.
type Indicator interface {
	ShowStatus(evseID, connectorID int, status common.ConnectorStatus)
	ShowCardRead(tagID string)
	ShowResponse(connectorID int, response common.ChargingResponse)
	Clear()
}

// Colour returns the LED colour used for a connector status.
func Colour(status common.ConnectorStatus) string {
	switch status {
	case common.ConnectorStatusAvailable:
		return "green"
	case common.ConnectorStatusCharging:
		return "blue"
	case common.ConnectorStatusReserved:
		return "yellow"
	case common.ConnectorStatusUnavailable:
		return "orange"
	default:
		return "red"
	}
}

type LogIndicator struct {
	log *logrus.Entry
}

func NewLogIndicator(log *logrus.Entry) *LogIndicator {
	return &LogIndicator{log: log.WithField("message", "indicator")}
}

func (i *LogIndicator) ShowStatus(evseID, connectorID int, status common.ConnectorStatus) {
	i.log.WithFields(logrus.Fields{"evse": evseID, "connector": connectorID}).Infof("%s (%s)", status, Colour(status))
}

func (i *LogIndicator) ShowCardRead(tagID string) {
	i.log.Infof("card %s read", tagID)
}

func (i *LogIndicator) ShowResponse(connectorID int, response common.ChargingResponse) {
	entry := i.log.WithField("connector", connectorID)
	if response.Success() {
		entry.Info(response)
		return
	}
	entry.Warn(response)
}

func (i *LogIndicator) Clear() {
	i.log.Debug("indicators cleared")
}

// Indicators fans every call out to a list of indicators.
type Indicators []Indicator

func (list Indicators) ShowStatus(evseID, connectorID int, status common.ConnectorStatus) {
	for _, i := range list {
		i.ShowStatus(evseID, connectorID, status)
	}
}

func (list Indicators) ShowCardRead(tagID string) {
	for _, i := range list {
		i.ShowCardRead(tagID)
	}
}

func (list Indicators) ShowResponse(connectorID int, response common.ChargingResponse) {
	for _, i := range list {
		i.ShowResponse(connectorID, response)
	}
}

func (list Indicators) Clear() {
	for _, i := range list {
		i.Clear()
	}
}
