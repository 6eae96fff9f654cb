package ocpp201

import (
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/localauth"

	"charge_point/common"
)

// ------------- Local authorization list callbacks -------------

func (h *handler) OnGetLocalListVersion(request *localauth.GetLocalListVersionRequest) (*localauth.GetLocalListVersionResponse, error) {
	result := h.dispatcher.Dispatch(common.GetLocalListVersion{})
	version := result.ListVersion
	if version < 0 {
		version = 0
	}
	return localauth.NewGetLocalListVersionResponse(version), nil
}

func (h *handler) OnSendLocalList(request *localauth.SendLocalListRequest) (*localauth.SendLocalListResponse, error) {
	entries := make([]common.AuthorizationEntry, 0, len(request.LocalAuthorizationList))
	for _, data := range request.LocalAuthorizationList {
		entry := common.AuthorizationEntry{TagID: data.IdToken.IdToken}
		if data.IdTokenInfo != nil {
			info := authorizationInfo(data.IdTokenInfo)
			entry.Info = &info
		}
		entries = append(entries, entry)
	}
	result := h.dispatcher.Dispatch(common.SendLocalList{
		Version: request.VersionNumber,
		Full:    request.UpdateType == localauth.UpdateTypeFull,
		Entries: entries,
	})
	status := localauth.SendLocalListStatusFailed
	switch result.Status {
	case common.StatusAccepted:
		status = localauth.SendLocalListStatusAccepted
	case common.StatusVersionMismatch:
		status = localauth.SendLocalListStatusVersionMismatch
	}
	return localauth.NewSendLocalListResponse(status), nil
}
