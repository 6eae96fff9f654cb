package ocpp16

import (
	"time"

	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp1.6/firmware"

	"charge_point/common"
)

// ------------- Firmware management profile callbacks -------------

// OnUpdateFirmware has no status to answer with; a rejected update is only logged.
func (h *handler) OnUpdateFirmware(request *ocppfirmware.UpdateFirmwareRequest) (*ocppfirmware.UpdateFirmwareConfirmation, error) {
	result := h.dispatcher.Dispatch(common.UpdateFirmware{
		Location:      request.Location,
		RetrieveDate:  optionalTime(request.RetrieveDate),
		Retries:       optionalInt(request.Retries),
		RetryInterval: time.Duration(optionalInt(request.RetryInterval)) * time.Second,
	})
	if result.Status != common.StatusAccepted {
		h.logDefault(request.GetFeatureName()).Warnf("firmware update from %v not scheduled: %v", request.Location, result.Status)
	}
	return ocppfirmware.NewUpdateFirmwareConfirmation(), nil
}

func (h *handler) OnGetDiagnostics(request *ocppfirmware.GetDiagnosticsRequest) (*ocppfirmware.GetDiagnosticsConfirmation, error) {
	h.logDefault(request.GetFeatureName()).Info("no diagnostics available")
	return ocppfirmware.NewGetDiagnosticsConfirmation(), nil
}
