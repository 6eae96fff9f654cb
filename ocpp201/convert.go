package ocpp201

import (
	"strconv"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/availability"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/transactions"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/types"

	"charge_point/chargepoint"
	"charge_point/common"
)

// connectorStatus collapses the statuses of a connector in use into Occupied.
func connectorStatus(status common.ConnectorStatus) availability.ConnectorStatus {
	switch status {
	case common.ConnectorStatusAvailable:
		return availability.ConnectorStatusAvailable
	case common.ConnectorStatusReserved:
		return availability.ConnectorStatusReserved
	case common.ConnectorStatusUnavailable:
		return availability.ConnectorStatusUnavailable
	case common.ConnectorStatusFaulted:
		return availability.ConnectorStatusFaulted
	}
	return availability.ConnectorStatusOccupied
}

func authorizationInfo(info *types.IdTokenInfo) common.AuthorizationInfo {
	if info == nil {
		return common.AuthorizationInfo{Status: common.AuthorizationInvalid}
	}
	result := common.AuthorizationInfo{Status: authorizationStatus(info.Status)}
	if info.CacheExpiryDateTime != nil {
		expiry := info.CacheExpiryDateTime.Time
		result.Expiry = &expiry
	}
	return result
}

func authorizationStatus(status types.AuthorizationStatus) common.AuthorizationStatus {
	switch status {
	case types.AuthorizationStatusAccepted:
		return common.AuthorizationAccepted
	case types.AuthorizationStatusBlocked:
		return common.AuthorizationBlocked
	case types.AuthorizationStatusExpired:
		return common.AuthorizationExpired
	case types.AuthorizationStatusConcurrentTx:
		return common.AuthorizationConcurrentTx
	case types.AuthorizationStatusUnknown:
		return common.AuthorizationUnknown
	}
	return common.AuthorizationInvalid
}

func stoppedReason(reason common.StopReason) transactions.Reason {
	switch reason {
	case common.StopReasonLocal, common.StopReasonUnlockCommand:
		return transactions.ReasonLocal
	case common.StopReasonPowerLoss:
		return transactions.ReasonPowerLoss
	case common.StopReasonRemote:
		return transactions.ReasonRemote
	case common.StopReasonDeAuthorized:
		return transactions.ReasonDeAuthorized
	case common.StopReasonEmergencyStop:
		return transactions.ReasonEmergencyStop
	case common.StopReasonEVDisconnected:
		return transactions.ReasonEVDisconnected
	case common.StopReasonTimeLimitReached:
		return transactions.ReasonTimeLimitReached
	case common.StopReasonSoftReset, common.StopReasonHardReset:
		return transactions.ReasonImmediateReset
	}
	return transactions.ReasonOther
}

func triggerReason(reason common.StopReason) transactions.TriggerReason {
	switch reason {
	case common.StopReasonLocal:
		return transactions.TriggerReasonStopAuthorized
	case common.StopReasonRemote:
		return transactions.TriggerReasonRemoteStop
	case common.StopReasonDeAuthorized:
		return transactions.TriggerReasonDeAuthorized
	case common.StopReasonEVDisconnected:
		return transactions.TriggerReasonEVCommunicationLost
	case common.StopReasonTimeLimitReached:
		return transactions.TriggerReasonTimeLimitReached
	case common.StopReasonUnlockCommand:
		return transactions.TriggerReasonUnlockCommand
	case common.StopReasonSoftReset, common.StopReasonHardReset:
		return transactions.TriggerReasonResetCommand
	}
	return transactions.TriggerReasonAbnormalCondition
}

func evse(addr chargepoint.Address) *types.EVSE {
	connectorID := addr.ConnectorID
	return &types.EVSE{ID: addr.EvseID, ConnectorID: &connectorID}
}

func energyValue(at time.Time, energy float64, context types.ReadingContext) types.MeterValue {
	return types.MeterValue{
		Timestamp: *types.NewDateTime(at),
		SampledValue: []types.SampledValue{{
			Value:         energy,
			Context:       context,
			Measurand:     types.MeasurandEnergyActiveImportRegister,
			Location:      types.LocationOutlet,
			UnitOfMeasure: &types.UnitOfMeasure{Unit: "Wh"},
		}},
	}
}

func sampledValues(at time.Time, power, energy float64) types.MeterValue {
	return types.MeterValue{
		Timestamp: *types.NewDateTime(at),
		SampledValue: []types.SampledValue{
			{
				Value:         power,
				Context:       types.ReadingContextSamplePeriodic,
				Measurand:     types.MeasurandPowerActiveImport,
				Location:      types.LocationOutlet,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "W"},
			},
			{
				Value:         energy,
				Context:       types.ReadingContextSamplePeriodic,
				Measurand:     types.MeasurandEnergyActiveImportRegister,
				Location:      types.LocationOutlet,
				UnitOfMeasure: &types.UnitOfMeasure{Unit: "Wh"},
			},
		},
	}
}

// variableKey names a device model variable the way the configuration stores it.
func variableKey(component types.Component, variable types.Variable) string {
	return component.Name + "." + variable.Name
}

func optionalInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func optionalTime(t *types.DateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func reservationID(id int) string {
	return strconv.Itoa(id)
}
