package common

import "time"

// ConnectorStatus is the superset of connector states of both protocol versions.
type ConnectorStatus string

const (
	ConnectorStatusAvailable     ConnectorStatus = "Available"
	ConnectorStatusPreparing     ConnectorStatus = "Preparing"
	ConnectorStatusCharging      ConnectorStatus = "Charging"
	ConnectorStatusSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	ConnectorStatusSuspendedEV   ConnectorStatus = "SuspendedEV"
	ConnectorStatusFinishing     ConnectorStatus = "Finishing"
	ConnectorStatusReserved      ConnectorStatus = "Reserved"
	ConnectorStatusUnavailable   ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted       ConnectorStatus = "Faulted"
)

func (s ConnectorStatus) IsValid() bool {
	switch s {
	case ConnectorStatusAvailable, ConnectorStatusPreparing, ConnectorStatusCharging,
		ConnectorStatusSuspendedEVSE, ConnectorStatusSuspendedEV, ConnectorStatusFinishing,
		ConnectorStatusReserved, ConnectorStatusUnavailable, ConnectorStatusFaulted:
		return true
	}
	return false
}

// StopReason says why a transaction ended.
type StopReason string

const (
	StopReasonLocal            StopReason = "Local"
	StopReasonPowerLoss        StopReason = "PowerLoss"
	StopReasonRemote           StopReason = "Remote"
	StopReasonDeAuthorized     StopReason = "DeAuthorized"
	StopReasonEmergencyStop    StopReason = "EmergencyStop"
	StopReasonOther            StopReason = "Other"
	StopReasonEVDisconnected   StopReason = "EVDisconnected"
	StopReasonTimeLimitReached StopReason = "TimeLimitReached"
	StopReasonUnlockCommand    StopReason = "UnlockCommand"
	StopReasonSoftReset        StopReason = "SoftReset"
	StopReasonHardReset        StopReason = "HardReset"
)

type AuthorizationStatus string

const (
	AuthorizationAccepted     AuthorizationStatus = "Accepted"
	AuthorizationBlocked      AuthorizationStatus = "Blocked"
	AuthorizationExpired      AuthorizationStatus = "Expired"
	AuthorizationInvalid      AuthorizationStatus = "Invalid"
	AuthorizationConcurrentTx AuthorizationStatus = "ConcurrentTx"
	AuthorizationUnknown      AuthorizationStatus = "Unknown"
)

// AuthorizationInfo is the verdict of the central system for a tag.
type AuthorizationInfo struct {
	Status AuthorizationStatus
	Expiry *time.Time
}

func (a AuthorizationInfo) Accepted() bool {
	return a.Status == AuthorizationAccepted
}

// SessionRecord describes a charging session for the session ledger.
type SessionRecord struct {
	ChargePointID string
	EvseID        int
	ConnectorID   int
	TransactionID string
	TagID         string
	StartedAt     time.Time
	StoppedAt     time.Time
	EnergyWh      float64
	Reason        StopReason
}
