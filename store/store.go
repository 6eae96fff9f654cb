// Package store persists connector status and session snapshots across restarts.
package store

import (
	"errors"

	"charge_point/common"
	"charge_point/session"
)

var ErrConnectorNotFound = errors.New("connector not found")

type RelayConfig struct {
	Pin          int  `json:"pin"`
	InverseLogic bool `json:"inverse_logic"`
}

type PowerMeterConfig struct {
	Pin                  int     `json:"pin"`
	SpiBus               int     `json:"spi_bus"`
	ShuntOffset          float64 `json:"shunt_offset"`
	VoltageDividerOffset float64 `json:"voltage_divider_offset"`
	// NominalPower drives the simulated meter when no meter chip is wired.
	NominalPower float64 `json:"nominal_power"`
}

type ConnectorRecord struct {
	ID         int                    `json:"id"`
	Type       string                 `json:"type"`
	Status     common.ConnectorStatus `json:"status"`
	Session    session.Snapshot       `json:"session"`
	Relay      RelayConfig            `json:"relay"`
	PowerMeter *PowerMeterConfig      `json:"power_meter,omitempty"`
}

type EVSERecord struct {
	ID         int               `json:"id"`
	Connectors []ConnectorRecord `json:"connectors"`
}

// Document is the on-disk layout of the connectors file.
type Document struct {
	EVSEs []EVSERecord `json:"EVSEs"`
}

// Store is the durable mapping from (EVSE id, connector id) to status and session.
type Store interface {
	// Layout returns the configured EVSEs and connectors with their last persisted state.
	Layout() []EVSERecord
	GetStatusAndSession(evseID, connectorID int) (common.ConnectorStatus, session.Snapshot, error)
	SetStatus(evseID, connectorID int, status common.ConnectorStatus) error
	UpdateSession(evseID, connectorID int, update func(s *session.Snapshot)) error
	ClearSession(evseID, connectorID int) error
}

func (d *Document) find(evseID, connectorID int) (*ConnectorRecord, error) {
	for i := range d.EVSEs {
		if d.EVSEs[i].ID != evseID {
			continue
		}
		for j := range d.EVSEs[i].Connectors {
			if d.EVSEs[i].Connectors[j].ID == connectorID {
				return &d.EVSEs[i].Connectors[j], nil
			}
		}
	}
	return nil, ErrConnectorNotFound
}

func (d *Document) clone() []EVSERecord {
	evses := make([]EVSERecord, len(d.EVSEs))
	for i, evse := range d.EVSEs {
		evses[i] = EVSERecord{ID: evse.ID, Connectors: append([]ConnectorRecord(nil), evse.Connectors...)}
	}
	return evses
}
