package actions

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"charge_point/common"
)

// local reservations are numbered apart from the server's
const localReservationPrefix = "local-"

type ReservationActions struct {
	chargePoint   ChargePoint
	reservationID int64
	now           func() time.Time
}

func InitializeReservationActions(chargePoint ChargePoint) *ReservationActions {
	return &ReservationActions{chargePoint: chargePoint, now: time.Now}
}

type reserveNowRequest struct {
	EvseID      int    `json:"evseId" validate:"gte=0"`
	ConnectorID int    `json:"connectorId" validate:"required,gt=0"`
	TagID       string `json:"idTag" validate:"required,max=20"`
	// ExpiryDate is a unix timestamp in seconds.
	ExpiryDate int64 `json:"expiryDate" validate:"required,gt=0"`
}

func (a *ReservationActions) ReserveNow(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &reserveNowRequest{}
	if err := decode(payload, request, "command.reserve.now.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}
	expiry := time.Unix(request.ExpiryDate, 0)
	if !expiry.After(a.now()) {
		responseChannel <- common.Response{Err: &common.Error{
			Code:    "command.reserve.now.payload.not.valid",
			Message: "expiryDate is in the past",
		}}
		return
	}

	reservationID := localReservationPrefix + strconv.FormatInt(atomic.AddInt64(&a.reservationID, 1), 10)
	result := a.chargePoint.Dispatch(common.ReserveNow{
		EvseID:        request.EvseID,
		ConnectorID:   request.ConnectorID,
		TagID:         request.TagID,
		Expiry:        expiry,
		ReservationID: reservationID,
	})

	response := statusPayload(result.Status, "")
	switch result.Status {
	case common.StatusAccepted:
		logDefault(chargePointID, "ReserveNow").Infof("connector %v reserved for %v until %v (reservation %v)",
			request.ConnectorID, request.TagID, expiry, reservationID)
		response["reservationId"] = reservationID
		response["message"] = fmt.Sprintf("connector %v reserved for %v until %v", request.ConnectorID, request.TagID, expiry.Local())
	case common.StatusOccupied:
		response["message"] = fmt.Sprintf("connector %v is occupied", request.ConnectorID)
	case common.StatusFaulted:
		response["message"] = fmt.Sprintf("connector %v is faulted", request.ConnectorID)
	case common.StatusUnavailable:
		response["message"] = fmt.Sprintf("connector %v is unavailable", request.ConnectorID)
	default:
		response["message"] = "the charge point does not accept reservations"
	}
	responseChannel <- common.Response{Payload: response}
}

type cancelReservationRequest struct {
	ReservationID string `json:"reservationId" validate:"required"`
}

func (a *ReservationActions) CancelReservation(chargePointID string, payload []byte, responseChannel chan common.Response) {
	request := &cancelReservationRequest{}
	if err := decode(payload, request, "command.cancel.reservation.payload.not.valid"); err != nil {
		responseChannel <- common.Response{Err: err}
		return
	}

	result := a.chargePoint.Dispatch(common.CancelReservation{ReservationID: request.ReservationID})
	message := fmt.Sprintf("reservation %v cancelled", request.ReservationID)
	if result.Status != common.StatusAccepted {
		message = fmt.Sprintf("reservation %v was not cancelled", request.ReservationID)
	}
	responseChannel <- common.Response{Payload: statusPayload(result.Status, message)}
}
