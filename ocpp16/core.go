package ocpp16

import (
	"encoding/json"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"

	"charge_point/chargepoint"
	"charge_point/common"
)

// handler receives the requests of the central system for every supported profile and forwards
// them to the charge point as protocol-neutral commands.
type handler struct {
	id         string
	dispatcher chargepoint.Dispatcher
	log        *logrus.Entry
}

func (h *handler) logDefault(feature string) *logrus.Entry {
	return h.log.WithFields(logrus.Fields{"client": h.id, "message": feature})
}

// ------------- Core profile callbacks -------------

func (h *handler) OnChangeAvailability(request *core.ChangeAvailabilityRequest) (*core.ChangeAvailabilityConfirmation, error) {
	result := h.dispatcher.Dispatch(common.ChangeAvailability{
		ConnectorID: request.ConnectorId,
		Operative:   request.Type == core.AvailabilityTypeOperative,
	})
	status := core.AvailabilityStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = core.AvailabilityStatusAccepted
	case common.StatusScheduled:
		status = core.AvailabilityStatusScheduled
	}
	return core.NewChangeAvailabilityConfirmation(status), nil
}

func (h *handler) OnChangeConfiguration(request *core.ChangeConfigurationRequest) (*core.ChangeConfigurationConfirmation, error) {
	result := h.dispatcher.Dispatch(common.ChangeConfiguration{Key: request.Key, Value: request.Value})
	status := core.ConfigurationStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = core.ConfigurationStatusAccepted
	case common.StatusRebootRequired:
		status = core.ConfigurationStatusRebootRequired
	case common.StatusNotSupported, common.StatusUnknownKey:
		status = core.ConfigurationStatusNotSupported
	}
	return core.NewChangeConfigurationConfirmation(status), nil
}

func (h *handler) OnClearCache(request *core.ClearCacheRequest) (*core.ClearCacheConfirmation, error) {
	result := h.dispatcher.Dispatch(common.ClearCache{})
	if result.Status == common.StatusAccepted {
		return core.NewClearCacheConfirmation(core.ClearCacheStatusAccepted), nil
	}
	return core.NewClearCacheConfirmation(core.ClearCacheStatusRejected), nil
}

func (h *handler) OnDataTransfer(request *core.DataTransferRequest) (*core.DataTransferConfirmation, error) {
	var data string
	switch value := request.Data.(type) {
	case nil:
	case string:
		data = value
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			h.logDefault(request.GetFeatureName()).Warnf("unreadable data: %v", err)
		}
		data = string(raw)
	}
	result := h.dispatcher.Dispatch(common.DataTransfer{VendorID: request.VendorId, MessageID: request.MessageId, Data: data})
	if result.Status == common.StatusAccepted {
		return core.NewDataTransferConfirmation(core.DataTransferStatusAccepted), nil
	}
	return core.NewDataTransferConfirmation(core.DataTransferStatusRejected), nil
}

func (h *handler) OnGetConfiguration(request *core.GetConfigurationRequest) (*core.GetConfigurationConfirmation, error) {
	result := h.dispatcher.Dispatch(common.GetConfiguration{Keys: request.Key})
	keys := make([]core.ConfigurationKey, 0, len(result.Configuration))
	for _, variable := range result.Configuration {
		value := variable.Value
		keys = append(keys, core.ConfigurationKey{Key: variable.Key, Readonly: variable.ReadOnly, Value: &value})
	}
	confirmation := core.NewGetConfigurationConfirmation(keys)
	confirmation.UnknownKey = result.UnknownKeys
	return confirmation, nil
}

func (h *handler) OnRemoteStartTransaction(request *core.RemoteStartTransactionRequest) (*core.RemoteStartTransactionConfirmation, error) {
	if request.ChargingProfile != nil {
		h.logDefault(request.GetFeatureName()).Warn("charging profiles are not supported, ignoring")
	}
	result := h.dispatcher.Dispatch(common.RemoteStart{ConnectorID: optionalInt(request.ConnectorId), TagID: request.IdTag})
	return core.NewRemoteStartTransactionConfirmation(remoteStartStopStatus(result.Status)), nil
}

func (h *handler) OnRemoteStopTransaction(request *core.RemoteStopTransactionRequest) (*core.RemoteStopTransactionConfirmation, error) {
	result := h.dispatcher.Dispatch(common.RemoteStop{TransactionID: strconv.Itoa(request.TransactionId)})
	return core.NewRemoteStopTransactionConfirmation(remoteStartStopStatus(result.Status)), nil
}

func (h *handler) OnReset(request *core.ResetRequest) (*core.ResetConfirmation, error) {
	result := h.dispatcher.Dispatch(common.Reset{Hard: request.Type == core.ResetTypeHard})
	if result.Status == common.StatusAccepted {
		return core.NewResetConfirmation(core.ResetStatusAccepted), nil
	}
	return core.NewResetConfirmation(core.ResetStatusRejected), nil
}

func (h *handler) OnUnlockConnector(request *core.UnlockConnectorRequest) (*core.UnlockConnectorConfirmation, error) {
	result := h.dispatcher.Dispatch(common.UnlockConnector{ConnectorID: request.ConnectorId})
	status := core.UnlockStatusUnlockFailed
	switch result.Status {
	case common.StatusUnlocked:
		status = core.UnlockStatusUnlocked
	case common.StatusNotSupported:
		status = core.UnlockStatusNotSupported
	}
	return core.NewUnlockConnectorConfirmation(status), nil
}
