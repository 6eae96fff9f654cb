package common

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the reply sent back for a Command.
type Response struct {
	Payload interface{} `json:"payload,omitempty"`
	Err     *Error      `json:"error,omitempty"`
}

// ChargingResponse is the outcome of a locally triggered charging request. Indicators react to it.
type ChargingResponse string

const (
	StartChargingSuccess       ChargingResponse = "StartChargingSuccess"
	StartChargingFail          ChargingResponse = "StartChargingFail"
	StopChargingSuccess        ChargingResponse = "StopChargingSuccess"
	StopChargingFail           ChargingResponse = "StopChargingFail"
	ConnectorUnavailable       ChargingResponse = "ConnectorUnavailable"
	NoAvailableConnectors      ChargingResponse = "NoAvailableConnectors"
	UnauthorizedCard           ChargingResponse = "UnauthorizedCard"
	NoConnectorWithTransaction ChargingResponse = "NoConnectorWithTransaction"
)

func (r ChargingResponse) Success() bool {
	return r == StartChargingSuccess || r == StopChargingSuccess
}
