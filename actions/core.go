// Package actions serves locally triggered operator actions, such as a card presented at the
// reader or a maintenance request, received over the request bus.
package actions

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"charge_point/chargepoint"
	"charge_point/common"
)

func logDefault(chargePointId string, feature string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"client": chargePointId, "message": feature})
}

type Function func(string, []byte, chan common.Response)

// ChargePoint is what the actions need from the charge point.
type ChargePoint interface {
	HandleChargingRequest(tagID string) (chargepoint.Address, common.ChargingResponse)
	ConnectorStates() []chargepoint.ConnectorState
	Dispatch(cmd common.ServerCommand) common.Result
}

var Validator = validator.New()

// decode unmarshals payload into request and validates it. A nil error means the request is usable.
func decode(payload []byte, request interface{}, code string) *common.Error {
	if err := json.Unmarshal(payload, request); err != nil {
		return &common.Error{Code: code, Message: "payload is not valid JSON"}
	}
	if err := Validator.Struct(request); err != nil {
		return &common.Error{Code: code, Message: err.Error()}
	}
	return nil
}

func statusPayload(status interface{}, message string) map[string]interface{} {
	return map[string]interface{}{"status": status, "message": message}
}

type CoreActions struct {
	chargePoint ChargePoint
}

func InitializeCoreActions(chargePoint ChargePoint) CoreActions {
	return CoreActions{chargePoint: chargePoint}
}

type chargingRequest struct {
	TagID string `json:"tagId" validate:"required,max=20"`
}

// ChargingRequest is the card reader input: it starts a session on a free connector or stops the
// session the tag owns.
func (a *CoreActions) ChargingRequest(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &chargingRequest{}
	if err := decode(payload, request, "command.charging.request.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}

	address, result := a.chargePoint.HandleChargingRequest(request.TagID)
	logDefault(chargePointID, "ChargingRequest").Infof("tag %v: %v", request.TagID, result)

	response := statusPayload(result, "")
	if address.ConnectorID > 0 {
		response["evseId"] = address.EvseID
		response["connectorId"] = address.ConnectorID
		response["message"] = fmt.Sprintf("connector %d/%d: %v", address.EvseID, address.ConnectorID, result)
	}
	if !result.Success() {
		responseChannel <- common.Response{
			Payload: response,
			Err:     &common.Error{Code: "command.charging.request.failed", Message: string(result)},
		}
		return
	}
	responseChannel <- common.Response{Payload: response}
}

func (a *CoreActions) ConnectorsStatus(chargePointID string, payload []byte, responseChannel chan common.Response) {
	responseChannel <- common.Response{Payload: a.chargePoint.ConnectorStates()}
}

type changeAvailabilityRequest struct {
	EvseID      int  `json:"evseId" validate:"gte=0"`
	ConnectorID int  `json:"connectorId" validate:"gte=0"`
	Operative   bool `json:"operative"`
}

func (a *CoreActions) ChangeAvailability(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &changeAvailabilityRequest{}
	if err := decode(payload, request, "command.change.availability.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}

	result := a.chargePoint.Dispatch(common.ChangeAvailability{
		EvseID:      request.EvseID,
		ConnectorID: request.ConnectorID,
		Operative:   request.Operative,
	})

	var message string
	switch result.Status {
	case common.StatusAccepted:
		message = fmt.Sprintf("connector %d/%d is now operative=%v", request.EvseID, request.ConnectorID, request.Operative)
	case common.StatusScheduled:
		message = fmt.Sprintf("connector %d/%d changes when its session ends", request.EvseID, request.ConnectorID)
	default:
		message = fmt.Sprintf("connector %d/%d rejected the change", request.EvseID, request.ConnectorID)
	}
	responseChannel <- common.Response{Payload: statusPayload(result.Status, message)}
}

type unlockConnectorRequest struct {
	EvseID      int `json:"evseId" validate:"gte=0"`
	ConnectorID int `json:"connectorId" validate:"required,gt=0"`
}

func (a *CoreActions) UnlockConnector(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &unlockConnectorRequest{}
	if err := decode(payload, request, "command.unlock.connector.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}
	result := a.chargePoint.Dispatch(common.UnlockConnector{EvseID: request.EvseID, ConnectorID: request.ConnectorID})
	responseChannel <- common.Response{Payload: statusPayload(result.Status, "")}
}

type resetRequest struct {
	Type string `json:"type" validate:"required,oneof=Hard Soft"`
}

func (a *CoreActions) Reset(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &resetRequest{}
	if err := decode(payload, request, "command.reset.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}

	result := a.chargePoint.Dispatch(common.Reset{Hard: request.Type == "Hard"})
	message := fmt.Sprintf("%v reset accepted", request.Type)
	if result.Status != common.StatusAccepted {
		message = fmt.Sprintf("%v reset rejected", request.Type)
	}
	responseChannel <- common.Response{Payload: statusPayload(result.Status, message)}
}

type getConfigurationRequest struct {
	Keys []string `json:"keys" validate:"omitempty,dive,required"`
}

func (a *CoreActions) GetConfiguration(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &getConfigurationRequest{}
	if err := decode(payload, request, "command.get.configuration.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}

	result := a.chargePoint.Dispatch(common.GetConfiguration{Keys: request.Keys})
	values := make(map[string]interface{}, len(result.Configuration))
	for _, value := range result.Configuration {
		values[value.Key] = struct {
			Readonly bool   `json:"readonly"`
			Value    string `json:"value"`
		}{value.ReadOnly, value.Value}
	}
	responseChannel <- common.Response{Payload: map[string]interface{}{
		"configuration": values,
		"unknownKeys":   result.UnknownKeys,
	}}
}

type changeConfigurationRequest struct {
	Key   string `json:"key" validate:"required,max=50"`
	Value string `json:"value" validate:"max=500"`
}

func (a *CoreActions) ChangeConfiguration(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &changeConfigurationRequest{}
	if err := decode(payload, request, "command.change.configuration.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}

	var response common.Response
	switch result := a.chargePoint.Dispatch(common.ChangeConfiguration{Key: request.Key, Value: request.Value}); result.Status {
	case common.StatusNotSupported, common.StatusUnknownKey:
		response.Err = &common.Error{
			Code:    "command.change.configuration.key.unsupported",
			Message: fmt.Sprintf("unknown configuration key %v", request.Key),
		}
	case common.StatusRejected:
		response.Err = &common.Error{
			Code:    "command.change.configuration.readonly",
			Message: fmt.Sprintf("configuration key %v is read only", request.Key),
		}
	case common.StatusRebootRequired:
		response.Payload = fmt.Sprintf("%v updated, the change applies after a reboot", request.Key)
	default:
		response.Payload = fmt.Sprintf("%v updated", request.Key)
	}
	responseChannel <- response
}
