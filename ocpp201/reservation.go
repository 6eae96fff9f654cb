package ocpp201

import (
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/reservation"

	"charge_point/common"
)

// ------------- Reservation callbacks -------------

func (h *handler) OnReserveNow(request *reservation.ReserveNowRequest) (*reservation.ReserveNowResponse, error) {
	result := h.dispatcher.Dispatch(common.ReserveNow{
		EvseID:        optionalInt(request.EvseID),
		ConnectorType: string(request.ConnectorType),
		TagID:         request.IdToken.IdToken,
		Expiry:        optionalTime(request.ExpiryDateTime),
		ReservationID: reservationID(request.ID),
	})
	status := reservation.ReserveNowStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = reservation.ReserveNowStatusAccepted
	case common.StatusOccupied:
		status = reservation.ReserveNowStatusOccupied
	case common.StatusFaulted:
		status = reservation.ReserveNowStatusFaulted
	case common.StatusUnavailable:
		status = reservation.ReserveNowStatusUnavailable
	}
	return reservation.NewReserveNowResponse(status), nil
}

func (h *handler) OnCancelReservation(request *reservation.CancelReservationRequest) (*reservation.CancelReservationResponse, error) {
	result := h.dispatcher.Dispatch(common.CancelReservation{ReservationID: reservationID(request.ReservationID)})
	if result.Status == common.StatusAccepted {
		return reservation.NewCancelReservationResponse(reservation.CancelReservationStatusAccepted), nil
	}
	return reservation.NewCancelReservationResponse(reservation.CancelReservationStatusRejected), nil
}
