package ocpp201

import (
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/remotecontrol"

	"charge_point/common"
)

// ------------- Remote control callbacks -------------

func (h *handler) OnRequestStartTransaction(request *remotecontrol.RequestStartTransactionRequest) (*remotecontrol.RequestStartTransactionResponse, error) {
	if request.ChargingProfile != nil {
		h.logDefault(request.GetFeatureName()).Warn("charging profiles are not supported, ignoring")
	}
	result := h.dispatcher.Dispatch(common.RemoteStart{EvseID: optionalInt(request.EvseID), TagID: request.IDToken.IdToken})
	return remotecontrol.NewRequestStartTransactionResponse(requestStartStopStatus(result.Status)), nil
}

func (h *handler) OnRequestStopTransaction(request *remotecontrol.RequestStopTransactionRequest) (*remotecontrol.RequestStopTransactionResponse, error) {
	result := h.dispatcher.Dispatch(common.RemoteStop{TransactionID: request.TransactionID})
	return remotecontrol.NewRequestStopTransactionResponse(requestStartStopStatus(result.Status)), nil
}

func (h *handler) OnUnlockConnector(request *remotecontrol.UnlockConnectorRequest) (*remotecontrol.UnlockConnectorResponse, error) {
	result := h.dispatcher.Dispatch(common.UnlockConnector{EvseID: request.EvseID, ConnectorID: request.ConnectorID})
	status := remotecontrol.UnlockStatusUnlockFailed
	switch result.Status {
	case common.StatusUnlocked:
		status = remotecontrol.UnlockStatusUnlocked
	case common.StatusNotSupported:
		status = remotecontrol.UnlockStatusUnknownConnector
	}
	return remotecontrol.NewUnlockConnectorResponse(status), nil
}

func (h *handler) OnTriggerMessage(request *remotecontrol.TriggerMessageRequest) (*remotecontrol.TriggerMessageResponse, error) {
	cmd := common.TriggerMessage{Message: common.TriggerOther}
	switch request.RequestedMessage {
	case remotecontrol.MessageTriggerBootNotification:
		cmd.Message = common.TriggerBootNotification
	case remotecontrol.MessageTriggerHeartbeat:
		cmd.Message = common.TriggerHeartbeat
	case remotecontrol.MessageTriggerStatusNotification:
		cmd.Message = common.TriggerStatusNotification
	case remotecontrol.MessageTriggerMeterValues:
		cmd.Message = common.TriggerMeterValues
	case remotecontrol.MessageTriggerFirmwareStatusNotification:
		cmd.Message = common.TriggerFirmwareStatusNotification
	}
	if request.Evse != nil {
		cmd.EvseID = request.Evse.ID
		cmd.ConnectorID = optionalInt(request.Evse.ConnectorID)
	}
	result := h.dispatcher.Dispatch(cmd)
	status := remotecontrol.TriggerMessageStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = remotecontrol.TriggerMessageStatusAccepted
	case common.StatusNotImplemented:
		status = remotecontrol.TriggerMessageStatusNotImplemented
	}
	return remotecontrol.NewTriggerMessageResponse(status), nil
}

func requestStartStopStatus(status common.Status) remotecontrol.RequestStartStopStatus {
	if status == common.StatusAccepted {
		return remotecontrol.RequestStartStopStatusAccepted
	}
	return remotecontrol.RequestStartStopStatusRejected
}
