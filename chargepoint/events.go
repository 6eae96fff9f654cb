package chargepoint

import (
	"time"

	"charge_point/common"
	"charge_point/firmware"
)

type StatusEvent struct {
	ChargePointID string                 `json:"chargePointId"`
	EvseID        int                    `json:"evseId"`
	ConnectorID   int                    `json:"connectorId"`
	Status        common.ConnectorStatus `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
}

type SessionEvent struct {
	ChargePointID string            `json:"chargePointId"`
	EvseID        int               `json:"evseId"`
	ConnectorID   int               `json:"connectorId"`
	TransactionID string            `json:"transactionId"`
	TagID         string            `json:"tagId"`
	EnergyWh      float64           `json:"energyWh,omitempty"`
	Reason        common.StopReason `json:"reason,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

type MeterEvent struct {
	ChargePointID string    `json:"chargePointId"`
	EvseID        int       `json:"evseId"`
	ConnectorID   int       `json:"connectorId"`
	TransactionID string    `json:"transactionId"`
	Power         float64   `json:"power"`
	EnergyWh      float64   `json:"energyWh"`
	Timestamp     time.Time `json:"timestamp"`
}

type BootEvent struct {
	ChargePointID string        `json:"chargePointId"`
	Protocol      string        `json:"protocol"`
	Interval      time.Duration `json:"interval"`
	Timestamp     time.Time     `json:"timestamp"`
}

type FirmwareEvent struct {
	ChargePointID string          `json:"chargePointId"`
	Status        firmware.Status `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
}
