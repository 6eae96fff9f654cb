package ocpp201

import (
	"encoding/json"

	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/data"

	"charge_point/common"
)

func (h *handler) OnDataTransfer(request *data.DataTransferRequest) (*data.DataTransferResponse, error) {
	var payload string
	switch value := request.Data.(type) {
	case nil:
	case string:
		payload = value
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			h.logDefault(request.GetFeatureName()).Warnf("unreadable data: %v", err)
		}
		payload = string(raw)
	}
	result := h.dispatcher.Dispatch(common.DataTransfer{VendorID: request.VendorID, MessageID: request.MessageID, Data: payload})
	if result.Status == common.StatusAccepted {
		return data.NewDataTransferResponse(data.DataTransferStatusAccepted), nil
	}
	return data.NewDataTransferResponse(data.DataTransferStatusRejected), nil
}
