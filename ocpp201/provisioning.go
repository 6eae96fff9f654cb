package ocpp201

import (
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/provisioning"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/types"

	"charge_point/common"
)

// ------------- Provisioning callbacks -------------

func (h *handler) OnGetVariables(request *provisioning.GetVariablesRequest) (*provisioning.GetVariablesResponse, error) {
	keys := make([]string, 0, len(request.GetVariableData))
	for _, data := range request.GetVariableData {
		keys = append(keys, variableKey(data.Component, data.Variable))
	}
	result := h.dispatcher.Dispatch(common.GetConfiguration{Keys: keys})
	values := make(map[string]string, len(result.Configuration))
	for _, variable := range result.Configuration {
		values[variable.Key] = variable.Value
	}

	results := make([]provisioning.GetVariableResult, 0, len(request.GetVariableData))
	for _, data := range request.GetVariableData {
		item := provisioning.GetVariableResult{
			AttributeStatus: provisioning.GetVariableStatusUnknownVariable,
			AttributeType:   data.AttributeType,
			Component:       data.Component,
			Variable:        data.Variable,
		}
		if value, ok := values[variableKey(data.Component, data.Variable)]; ok {
			item.AttributeStatus = provisioning.GetVariableStatusAccepted
			item.AttributeValue = value
		}
		results = append(results, item)
	}
	return provisioning.NewGetVariablesResponse(results), nil
}

func (h *handler) OnSetVariables(request *provisioning.SetVariablesRequest) (*provisioning.SetVariablesResponse, error) {
	results := make([]provisioning.SetVariableResult, 0, len(request.SetVariableData))
	for _, data := range request.SetVariableData {
		result := h.dispatcher.Dispatch(common.ChangeConfiguration{
			Key:   variableKey(data.Component, data.Variable),
			Value: data.AttributeValue,
		})
		status := provisioning.SetVariableStatusRejected
		switch result.Status {
		case common.StatusAccepted:
			status = provisioning.SetVariableStatusAccepted
		case common.StatusRebootRequired:
			status = provisioning.SetVariableStatusRebootRequired
		case common.StatusNotSupported, common.StatusUnknownKey:
			status = provisioning.SetVariableStatusUnknownVariable
		}
		results = append(results, provisioning.SetVariableResult{
			AttributeType:   data.AttributeType,
			AttributeStatus: status,
			Component:       data.Component,
			Variable:        data.Variable,
		})
	}
	return provisioning.NewSetVariablesResponse(results), nil
}

// OnReset resets the whole station; resetting a single EVSE is not supported.
func (h *handler) OnReset(request *provisioning.ResetRequest) (*provisioning.ResetResponse, error) {
	if request.EvseID != nil {
		h.logDefault(request.GetFeatureName()).Warnf("reset of evse %d not supported", *request.EvseID)
		return provisioning.NewResetResponse(provisioning.ResetStatusRejected), nil
	}
	result := h.dispatcher.Dispatch(common.Reset{Hard: request.Type == provisioning.ResetTypeImmediate})
	if result.Status == common.StatusAccepted {
		return provisioning.NewResetResponse(provisioning.ResetStatusAccepted), nil
	}
	return provisioning.NewResetResponse(provisioning.ResetStatusRejected), nil
}

func (h *handler) OnGetBaseReport(request *provisioning.GetBaseReportRequest) (*provisioning.GetBaseReportResponse, error) {
	return provisioning.NewGetBaseReportResponse(types.GenericDeviceModelStatusNotSupported), nil
}

func (h *handler) OnGetReport(request *provisioning.GetReportRequest) (*provisioning.GetReportResponse, error) {
	return provisioning.NewGetReportResponse(types.GenericDeviceModelStatusNotSupported), nil
}

func (h *handler) OnSetNetworkProfile(request *provisioning.SetNetworkProfileRequest) (*provisioning.SetNetworkProfileResponse, error) {
	return provisioning.NewSetNetworkProfileResponse(provisioning.SetNetworkProfileStatusRejected), nil
}
