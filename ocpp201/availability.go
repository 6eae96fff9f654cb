package ocpp201

import (
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/authorization"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/availability"

	"charge_point/common"
)

// ------------- Availability and authorization callbacks -------------

func (h *handler) OnChangeAvailability(request *availability.ChangeAvailabilityRequest) (*availability.ChangeAvailabilityResponse, error) {
	cmd := common.ChangeAvailability{Operative: request.OperationalStatus == availability.OperationalStatusOperative}
	if request.Evse != nil {
		cmd.EvseID = request.Evse.ID
		cmd.ConnectorID = optionalInt(request.Evse.ConnectorID)
	}
	result := h.dispatcher.Dispatch(cmd)
	status := availability.ChangeAvailabilityStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = availability.ChangeAvailabilityStatusAccepted
	case common.StatusScheduled:
		status = availability.ChangeAvailabilityStatusScheduled
	}
	return availability.NewChangeAvailabilityResponse(status), nil
}

func (h *handler) OnClearCache(request *authorization.ClearCacheRequest) (*authorization.ClearCacheResponse, error) {
	result := h.dispatcher.Dispatch(common.ClearCache{})
	if result.Status == common.StatusAccepted {
		return authorization.NewClearCacheResponse(authorization.ClearCacheStatusAccepted), nil
	}
	return authorization.NewClearCacheResponse(authorization.ClearCacheStatusRejected), nil
}
