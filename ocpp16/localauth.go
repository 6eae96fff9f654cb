package ocpp16

import (
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/localauth"

	"charge_point/common"
)

// ------------- Local authorization list management profile callbacks -------------

func (h *handler) OnGetLocalListVersion(request *localauth.GetLocalListVersionRequest) (*localauth.GetLocalListVersionConfirmation, error) {
	result := h.dispatcher.Dispatch(common.GetLocalListVersion{})
	return localauth.NewGetLocalListVersionConfirmation(result.ListVersion), nil
}

func (h *handler) OnSendLocalList(request *localauth.SendLocalListRequest) (*localauth.SendLocalListConfirmation, error) {
	entries := make([]common.AuthorizationEntry, 0, len(request.LocalAuthorizationList))
	for _, data := range request.LocalAuthorizationList {
		entry := common.AuthorizationEntry{TagID: data.IdTag}
		if data.IdTagInfo != nil {
			info := authorizationInfo(data.IdTagInfo)
			entry.Info = &info
		}
		entries = append(entries, entry)
	}
	result := h.dispatcher.Dispatch(common.SendLocalList{
		Version: request.ListVersion,
		Full:    request.UpdateType == localauth.UpdateTypeFull,
		Entries: entries,
	})
	status := localauth.UpdateStatusFailed
	switch result.Status {
	case common.StatusAccepted:
		status = localauth.UpdateStatusAccepted
	case common.StatusVersionMismatch:
		status = localauth.UpdateStatusVersionMismatch
	case common.StatusNotSupported:
		status = localauth.UpdateStatusNotSupported
	}
	return localauth.NewSendLocalListConfirmation(status), nil
}
