package ocpp201

import (
	"time"

	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp2.0.1/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/types"

	"charge_point/common"
)

// ------------- Firmware callbacks -------------

func (h *handler) OnUpdateFirmware(request *ocppfirmware.UpdateFirmwareRequest) (*ocppfirmware.UpdateFirmwareResponse, error) {
	result := h.dispatcher.Dispatch(common.UpdateFirmware{
		Location:      request.Firmware.Location,
		RetrieveDate:  optionalTime(request.Firmware.RetrieveDateTime),
		Retries:       optionalInt(request.Retries),
		RetryInterval: time.Duration(optionalInt(request.RetryInterval)) * time.Second,
	})
	if result.Status != common.StatusAccepted {
		return ocppfirmware.NewUpdateFirmwareResponse(ocppfirmware.UpdateFirmwareStatusRejected), nil
	}
	h.adapter.setFirmwareRequest(request.RequestID)
	return ocppfirmware.NewUpdateFirmwareResponse(ocppfirmware.UpdateFirmwareStatusAccepted), nil
}

func (h *handler) OnPublishFirmware(request *ocppfirmware.PublishFirmwareRequest) (*ocppfirmware.PublishFirmwareResponse, error) {
	return ocppfirmware.NewPublishFirmwareResponse(types.GenericStatusRejected), nil
}

func (h *handler) OnUnpublishFirmware(request *ocppfirmware.UnpublishFirmwareRequest) (*ocppfirmware.UnpublishFirmwareResponse, error) {
	return ocppfirmware.NewUnpublishFirmwareResponse(ocppfirmware.UnpublishFirmwareStatusNoFirmware), nil
}
