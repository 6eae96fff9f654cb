package connector

import (
	"time"

	"charge_point/common"
	"charge_point/session"
)

// AddReservation holds the connector for tagID until expiry.
func (c *Connector) AddReservation(tagID string, expiry time.Time, reservationID string) ReservationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reservation != nil && c.reservation.TagID != tagID {
		return AlreadyReserved
	}
	if c.reservation == nil && c.status != common.ConnectorStatusAvailable {
		return ReservationFailed
	}
	if !expiry.After(time.Now()) {
		return ReservationFailed
	}

	c.reservation = &session.Reservation{ID: reservationID, TagID: tagID, Expiry: expiry}
	c.status = common.ConnectorStatusReserved
	c.timers[roleReservation] = c.scheduler.TimerAt(c.jobID(roleReservation), expiry, func() {
		c.expireReservation(reservationID)
	})
	c.log.Infof("reserved for %s until %v", tagID, expiry)
	return ReservationSuccess
}

// CancelReservation drops the reservation with the given id, or any reservation when id is empty.
// It reports whether a reservation was removed.
func (c *Connector) CancelReservation(reservationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelReservationLocked(reservationID)
}

func (c *Connector) cancelReservationLocked(reservationID string) bool {
	if c.reservation == nil || (reservationID != "" && c.reservation.ID != reservationID) {
		return false
	}
	c.cancelTimerLocked(roleReservation)
	c.reservation = nil
	if c.status == common.ConnectorStatusReserved {
		c.status = common.ConnectorStatusAvailable
	}
	return true
}

func (c *Connector) expireReservation(reservationID string) {
	c.mu.Lock()
	expired := c.cancelReservationLocked(reservationID)
	hook := c.hooks.ReservationExpired
	c.mu.Unlock()

	if expired {
		c.log.Infof("reservation %s expired", reservationID)
		if hook != nil {
			hook(c)
		}
	}
}

func (c *Connector) Reservation() (session.Reservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.reservation == nil {
		return session.Reservation{}, false
	}
	return *c.reservation, true
}

// IsReserved reports whether the connector is held for somebody other than tagID.
func (c *Connector) IsReserved(tagID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReservedLocked(tagID)
}

func (c *Connector) isReservedLocked(tagID string) bool {
	if c.reservation != nil {
		return c.reservation.TagID != tagID
	}
	return c.status == common.ConnectorStatusReserved
}
