package ocpp16

import (
	"strconv"

	"github.com/lorenzodonini/ocpp-go/ocpp1.6/reservation"

	"charge_point/common"
)

// ------------- Reservation profile callbacks -------------

func (h *handler) OnReserveNow(request *reservation.ReserveNowRequest) (*reservation.ReserveNowConfirmation, error) {
	result := h.dispatcher.Dispatch(common.ReserveNow{
		ConnectorID:   request.ConnectorId,
		TagID:         request.IdTag,
		Expiry:        optionalTime(request.ExpiryDate),
		ReservationID: strconv.Itoa(request.ReservationId),
	})
	status := reservation.ReservationStatusRejected
	switch result.Status {
	case common.StatusAccepted:
		status = reservation.ReservationStatusAccepted
	case common.StatusOccupied:
		status = reservation.ReservationStatusOccupied
	case common.StatusFaulted:
		status = reservation.ReservationStatusFaulted
	case common.StatusUnavailable:
		status = reservation.ReservationStatusUnavailable
	}
	return reservation.NewReserveNowConfirmation(status), nil
}

func (h *handler) OnCancelReservation(request *reservation.CancelReservationRequest) (*reservation.CancelReservationConfirmation, error) {
	result := h.dispatcher.Dispatch(common.CancelReservation{ReservationID: strconv.Itoa(request.ReservationId)})
	if result.Status == common.StatusAccepted {
		return reservation.NewCancelReservationConfirmation(reservation.CancelReservationStatusAccepted), nil
	}
	return reservation.NewCancelReservationConfirmation(reservation.CancelReservationStatusRejected), nil
}
