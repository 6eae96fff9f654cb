package session

import "time"

type Reservation struct {
	ID     string    `json:"id"`
	TagID  string    `json:"tag_id"`
	Expiry time.Time `json:"expiry"`
}

func (r Reservation) Expired(now time.Time) bool {
	return !now.Before(r.Expiry)
}
