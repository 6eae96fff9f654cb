package common

import "time"

// ServerCommand is a command initiated by the central system, already decoded from the wire format
// of the active protocol version. The concrete types below are the complete set.
type ServerCommand interface {
	Action() string
	serverCommand()
}

type RemoteStart struct {
	EvseID      int
	ConnectorID int
	TagID       string
}

type RemoteStop struct {
	TransactionID string
}

type ChangeAvailability struct {
	EvseID      int
	ConnectorID int
	Operative   bool
}

type UnlockConnector struct {
	EvseID      int
	ConnectorID int
}

type UpdateFirmware struct {
	Location      string
	RetrieveDate  time.Time
	Retries       int
	RetryInterval time.Duration
}

type ReserveNow struct {
	EvseID        int
	ConnectorID   int
	ConnectorType string
	TagID         string
	Expiry        time.Time
	ReservationID string
}

type CancelReservation struct {
	ReservationID string
}

type GetConfiguration struct {
	Keys []string
}

type ChangeConfiguration struct {
	Key   string
	Value string
}

type ClearCache struct{}

// AuthorizationEntry is one element of a local authorization list update. A nil Info removes the tag.
type AuthorizationEntry struct {
	TagID string
	Info  *AuthorizationInfo
}

type SendLocalList struct {
	Version int
	Full    bool
	Entries []AuthorizationEntry
}

type GetLocalListVersion struct{}

type Reset struct {
	Hard bool
}

type TriggerKind string

const (
	TriggerBootNotification           TriggerKind = "BootNotification"
	TriggerHeartbeat                  TriggerKind = "Heartbeat"
	TriggerStatusNotification         TriggerKind = "StatusNotification"
	TriggerMeterValues                TriggerKind = "MeterValues"
	TriggerFirmwareStatusNotification TriggerKind = "FirmwareStatusNotification"
	TriggerOther                      TriggerKind = "Other"
)

type TriggerMessage struct {
	Message     TriggerKind
	EvseID      int
	ConnectorID int
}

type DataTransfer struct {
	VendorID  string
	MessageID string
	Data      string
}

func (RemoteStart) Action() string         { return "RemoteStartTransaction" }
func (RemoteStop) Action() string          { return "RemoteStopTransaction" }
func (ChangeAvailability) Action() string  { return "ChangeAvailability" }
func (UnlockConnector) Action() string     { return "UnlockConnector" }
func (UpdateFirmware) Action() string      { return "UpdateFirmware" }
func (ReserveNow) Action() string          { return "ReserveNow" }
func (CancelReservation) Action() string   { return "CancelReservation" }
func (GetConfiguration) Action() string    { return "GetConfiguration" }
func (ChangeConfiguration) Action() string { return "ChangeConfiguration" }
func (ClearCache) Action() string          { return "ClearCache" }
func (SendLocalList) Action() string       { return "SendLocalList" }
func (GetLocalListVersion) Action() string { return "GetLocalListVersion" }
func (Reset) Action() string               { return "Reset" }
func (TriggerMessage) Action() string      { return "TriggerMessage" }
func (DataTransfer) Action() string        { return "DataTransfer" }

func (RemoteStart) serverCommand()         {}
func (RemoteStop) serverCommand()          {}
func (ChangeAvailability) serverCommand()  {}
func (UnlockConnector) serverCommand()     {}
func (UpdateFirmware) serverCommand()      {}
func (ReserveNow) serverCommand()          {}
func (CancelReservation) serverCommand()   {}
func (GetConfiguration) serverCommand()    {}
func (ChangeConfiguration) serverCommand() {}
func (ClearCache) serverCommand()          {}
func (SendLocalList) serverCommand()       {}
func (GetLocalListVersion) serverCommand() {}
func (Reset) serverCommand()               {}
func (TriggerMessage) serverCommand()      {}
func (DataTransfer) serverCommand()        {}

// Status is the protocol-neutral answer to a ServerCommand.
type Status string

const (
	StatusAccepted        Status = "Accepted"
	StatusRejected        Status = "Rejected"
	StatusScheduled       Status = "Scheduled"
	StatusOccupied        Status = "Occupied"
	StatusFaulted         Status = "Faulted"
	StatusUnavailable     Status = "Unavailable"
	StatusNotSupported    Status = "NotSupported"
	StatusNotImplemented  Status = "NotImplemented"
	StatusVersionMismatch Status = "VersionMismatch"
	StatusFailed          Status = "Failed"
	StatusUnlocked        Status = "Unlocked"
	StatusUnlockFailed    Status = "UnlockFailed"
	StatusRebootRequired  Status = "RebootRequired"
	StatusUnknownKey      Status = "UnknownKey"
)

type ConfigurationValue struct {
	Key      string
	Value    string
	ReadOnly bool
}

// Result carries the Status plus the data some commands answer with.
type Result struct {
	Status        Status
	Configuration []ConfigurationValue
	UnknownKeys   []string
	ListVersion   int
}
