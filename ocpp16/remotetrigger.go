package ocpp16

import (
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp1.6/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/remotetrigger"

	"charge_point/common"
)

// ------------- Remote trigger profile callbacks -------------

func (h *handler) OnTriggerMessage(request *remotetrigger.TriggerMessageRequest) (*remotetrigger.TriggerMessageConfirmation, error) {
	kind := common.TriggerOther
	switch request.RequestedMessage {
	case core.BootNotificationFeatureName:
		kind = common.TriggerBootNotification
	case core.HeartbeatFeatureName:
		kind = common.TriggerHeartbeat
	case core.StatusNotificationFeatureName:
		kind = common.TriggerStatusNotification
	case core.MeterValuesFeatureName:
		kind = common.TriggerMeterValues
	case ocppfirmware.FirmwareStatusNotificationFeatureName:
		kind = common.TriggerFirmwareStatusNotification
	}
	result := h.dispatcher.Dispatch(common.TriggerMessage{Message: kind, ConnectorID: optionalInt(request.ConnectorId)})
	status := remotetrigger.TriggerMessageStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = remotetrigger.TriggerMessageStatusAccepted
	case common.StatusNotImplemented:
		status = remotetrigger.TriggerMessageStatusNotImplemented
	}
	return remotetrigger.NewTriggerMessageConfirmation(status), nil
}
