package chargepoint

import (
	"context"
	"errors"
	"time"

	"charge_point/common"
	"charge_point/configuration"
	"charge_point/firmware"
	"charge_point/session"
)

var ErrNotConnected = errors.New("not connected to the central system")

// Address locates a connector for the wire. Number is the 1-based position of the connector across
// the whole charge point, which is the connector id of OCPP 1.6.
type Address struct {
	EvseID      int
	ConnectorID int
	Number      int
}

type BootResult struct {
	Accepted bool
	Interval time.Duration
}

type TransactionRequest struct {
	Address    Address
	TagID      string
	MeterStart int
	Timestamp  time.Time
	Remote     bool
}

type TransactionResult struct {
	TransactionID string
	TagInfo       common.AuthorizationInfo
}

type StopRequest struct {
	Address       Address
	TransactionID string
	TagID         string
	MeterStop     int
	Timestamp     time.Time
	Reason        common.StopReason
}

type MeterRequest struct {
	Address       Address
	TransactionID string
	Sample        session.MeterSample
	Power         float64
}

// Dispatcher handles commands sent by the central system. Dispatch must not block on connector
// transitions: the answer goes back on the wire before any deferred work runs.
type Dispatcher interface {
	Dispatch(cmd common.ServerCommand) common.Result
}

// Protocol adapts one OCPP version to the charge point.
type Protocol interface {
	Version() string
	Keys() configuration.Keys
	// ExclusiveEVSE is true when only one connector of an EVSE may charge at a time.
	ExclusiveEVSE() bool
	// StopSequence lists the statuses a connector goes through after a transaction ends.
	StopSequence(reason common.StopReason) []common.ConnectorStatus

	Start(url string, dispatcher Dispatcher) error
	Stop()
	IsConnected() bool

	BootNotification(model, vendor string) (BootResult, error)
	Heartbeat() error
	Authorize(tagID string) (common.AuthorizationInfo, error)
	StartTransaction(req TransactionRequest) (TransactionResult, error)
	StopTransaction(req StopRequest) error
	MeterValues(req MeterRequest) error
	StatusNotification(addr Address, status common.ConnectorStatus) error
	FirmwareStatusNotification(status firmware.Status) error
}

// Observer receives counters about charging requests and authorization decisions.
type Observer interface {
	ChargingResult(response common.ChargingResponse)
	AuthorizationChecked(source string, accepted bool)
}

// SessionRecorder keeps a ledger of charging sessions.
type SessionRecorder interface {
	SessionStarted(ctx context.Context, record common.SessionRecord) error
	SessionStopped(ctx context.Context, record common.SessionRecord) error
}

type noopObserver struct{}

func (noopObserver) ChargingResult(common.ChargingResponse) {}
func (noopObserver) AuthorizationChecked(string, bool)      {}
