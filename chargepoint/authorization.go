package chargepoint

import (
	"charge_point/common"
)

const (
	authSourceCache  = "cache"
	authSourceRemote = "remote_start"
	authSourceServer = "server"
)

func (cp *ChargePoint) cacheEnabled() bool {
	return cp.cache != nil && cp.config.Bool(cp.keys.AuthorizationCacheEnabled)
}

// isTagAuthorized decides whether tagID may use a connector. A tag accepted by the cache passes at
// once when pre-authorization is on, and is checked again with the server shortly after.
func (cp *ChargePoint) isTagAuthorized(tagID string, remote bool) bool {
	log := cp.logDefault("Authorize")

	if cp.cacheEnabled() && cp.config.Bool(cp.keys.LocalPreAuthorize) && cp.cache.IsTagAuthorized(tagID) {
		log.Infof("tag %s authorized from cache", tagID)
		cp.scheduler.Once("reauthorize_"+tagID, reauthorizeDelay, func() {
			_, _ = cp.authorize(tagID)
		})
		cp.observer.AuthorizationChecked(authSourceCache, true)
		return true
	}

	if remote && !cp.config.Bool(cp.keys.AuthorizeRemoteTx) {
		log.Infof("remote start for %s accepted without authorization", tagID)
		cp.observer.AuthorizationChecked(authSourceRemote, true)
		return true
	}

	info, err := cp.authorize(tagID)
	accepted := err == nil && info.Accepted()
	cp.observer.AuthorizationChecked(authSourceServer, accepted)
	return accepted
}

// authorize asks the server about tagID and records the verdict. A blocked tag loses the session
// it holds.
func (cp *ChargePoint) authorize(tagID string) (common.AuthorizationInfo, error) {
	log := cp.logDefault("Authorize")

	info, err := cp.protocol.Authorize(tagID)
	if err != nil {
		log.Errorf("error on request: %v", err)
		return info, err
	}
	log.Infof("tag %s: %v", tagID, info.Status)

	if cp.cacheEnabled() {
		if err := cp.cache.Update(tagID, info); err != nil {
			log.Warnf("cache update for %s: %v", tagID, err)
		}
	}

	if info.Status == common.AuthorizationBlocked {
		if c := cp.connectorWithTag(tagID); c != nil {
			log.Warnf("tag %s blocked, stopping connector %d/%d", tagID, c.EvseID(), c.ID())
			cp.scheduler.Once("", 0, func() {
				cp.StopCharging(c, "", common.StopReasonDeAuthorized)
			})
		}
	}
	return info, nil
}
