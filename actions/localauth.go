package actions

import (
	"charge_point/common"
)

type LocalAuthActions struct {
	chargePoint ChargePoint
}

func InitializeLocalAuthActions(chargePoint ChargePoint) LocalAuthActions {
	return LocalAuthActions{chargePoint: chargePoint}
}

func (a *LocalAuthActions) GetLocalListVersion(chargePointID string, payload []byte, responseChannel chan common.Response) {
	result := a.chargePoint.Dispatch(common.GetLocalListVersion{})
	responseChannel <- common.Response{Payload: result.ListVersion}
}

func (a *LocalAuthActions) ClearCache(chargePointID string, payload []byte, responseChannel chan common.Response) {
	result := a.chargePoint.Dispatch(common.ClearCache{})
	if result.Status != common.StatusAccepted {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "command.clear.cache.rejected",
			Message: "the authorization cache is disabled",
		}}
		return
	}
	responseChannel <- common.Response{Payload: statusPayload(result.Status, "authorization cache cleared")}
}
