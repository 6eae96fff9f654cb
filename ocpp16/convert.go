package ocpp16

import (
	"strconv"
	"time"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"

	"charge_point/common"
)

func authorizationInfo(info *types.IdTagInfo) common.AuthorizationInfo {
	if info == nil {
		return common.AuthorizationInfo{Status: common.AuthorizationInvalid}
	}
	result := common.AuthorizationInfo{Status: common.AuthorizationStatus(info.Status)}
	if info.ExpiryDate != nil {
		expiry := info.ExpiryDate.Time
		result.Expiry = &expiry
	}
	return result
}

// stopReason maps a stop reason on the closest 1.6 value. 1.6 has no time limit reason, a
// session ended by its watchdog is reported as a local stop.
func stopReason(reason common.StopReason) core.Reason {
	switch reason {
	case common.StopReasonLocal, common.StopReasonTimeLimitReached:
		return core.ReasonLocal
	case common.StopReasonPowerLoss:
		return core.ReasonPowerLoss
	case common.StopReasonRemote:
		return core.ReasonRemote
	case common.StopReasonDeAuthorized:
		return core.ReasonDeAuthorized
	case common.StopReasonEmergencyStop:
		return core.ReasonEmergencyStop
	case common.StopReasonEVDisconnected:
		return core.ReasonEVDisconnected
	case common.StopReasonUnlockCommand:
		return core.ReasonUnlockCommand
	case common.StopReasonSoftReset:
		return core.ReasonSoftReset
	case common.StopReasonHardReset:
		return core.ReasonHardReset
	}
	return core.ReasonOther
}

func sampledValues(power, energy float64) []types.SampledValue {
	return []types.SampledValue{
		{
			Value:     strconv.FormatFloat(power, 'f', 1, 64),
			Context:   types.ReadingContextSamplePeriodic,
			Format:    types.ValueFormatRaw,
			Measurand: types.MeasurandPowerActiveImport,
			Location:  types.LocationOutlet,
			Unit:      types.UnitOfMeasureW,
		},
		{
			Value:     strconv.FormatFloat(energy, 'f', 1, 64),
			Context:   types.ReadingContextSamplePeriodic,
			Format:    types.ValueFormatRaw,
			Measurand: types.MeasurandEnergyActiveImportRegister,
			Location:  types.LocationOutlet,
			Unit:      types.UnitOfMeasureWh,
		},
	}
}

func optionalTime(t *types.DateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func optionalInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func remoteStartStopStatus(status common.Status) types.RemoteStartStopStatus {
	if status == common.StatusAccepted {
		return types.RemoteStartStopStatusAccepted
	}
	return types.RemoteStartStopStatusRejected
}
