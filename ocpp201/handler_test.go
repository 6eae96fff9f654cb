package ocpp201

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/availability"
	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp2.0.1/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/localauth"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/provisioning"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/remotecontrol"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/reservation"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/types"

	"charge_point/common"
)

type fakeDispatcher struct {
	commands []common.ServerCommand
	result   common.Result
	results  map[string]common.Status
}

func (d *fakeDispatcher) Dispatch(cmd common.ServerCommand) common.Result {
	d.commands = append(d.commands, cmd)
	if change, ok := cmd.(common.ChangeConfiguration); ok && d.results != nil {
		return common.Result{Status: d.results[change.Key]}
	}
	return d.result
}

func (d *fakeDispatcher) last() common.ServerCommand {
	return d.commands[len(d.commands)-1]
}

func newHandler(status common.Status) (*handler, *fakeDispatcher) {
	dispatcher := &fakeDispatcher{result: common.Result{Status: status}}
	a, _ := newAdapter()
	return &handler{id: "CS-1", dispatcher: dispatcher, adapter: a, log: logrus.NewEntry(logrus.New())}, dispatcher
}

func intPtr(i int) *int { return &i }

func TestGetVariables(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)
	dispatcher.result.Configuration = []common.ConfigurationValue{{Key: "OCPPCommCtrlr.HeartbeatInterval", Value: "60"}}
	dispatcher.result.UnknownKeys = []string{"Foo.Bar"}

	response, err := h.OnGetVariables(&provisioning.GetVariablesRequest{GetVariableData: []provisioning.GetVariableData{
		{Component: types.Component{Name: "OCPPCommCtrlr"}, Variable: types.Variable{Name: "HeartbeatInterval"}},
		{Component: types.Component{Name: "Foo"}, Variable: types.Variable{Name: "Bar"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, common.GetConfiguration{Keys: []string{"OCPPCommCtrlr.HeartbeatInterval", "Foo.Bar"}}, dispatcher.last())
	require.Len(t, response.GetVariableResult, 2)
	assert.Equal(t, provisioning.GetVariableStatusAccepted, response.GetVariableResult[0].AttributeStatus)
	assert.Equal(t, "60", response.GetVariableResult[0].AttributeValue)
	assert.Equal(t, provisioning.GetVariableStatusUnknownVariable, response.GetVariableResult[1].AttributeStatus)
	assert.Equal(t, "Foo", response.GetVariableResult[1].Component.Name)
}

func TestSetVariables(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)
	dispatcher.results = map[string]common.Status{
		"OCPPCommCtrlr.HeartbeatInterval": common.StatusAccepted,
		"AuthCacheCtrlr.Storage":          common.StatusRejected,
		"Foo.Bar":                         common.StatusNotSupported,
	}

	response, err := h.OnSetVariables(&provisioning.SetVariablesRequest{SetVariableData: []provisioning.SetVariableData{
		{AttributeValue: "30", Component: types.Component{Name: "OCPPCommCtrlr"}, Variable: types.Variable{Name: "HeartbeatInterval"}},
		{AttributeValue: "1", Component: types.Component{Name: "AuthCacheCtrlr"}, Variable: types.Variable{Name: "Storage"}},
		{AttributeValue: "x", Component: types.Component{Name: "Foo"}, Variable: types.Variable{Name: "Bar"}},
	}})
	require.NoError(t, err)
	require.Len(t, response.SetVariableResult, 3)
	assert.Equal(t, provisioning.SetVariableStatusAccepted, response.SetVariableResult[0].AttributeStatus)
	assert.Equal(t, provisioning.SetVariableStatusRejected, response.SetVariableResult[1].AttributeStatus)
	assert.Equal(t, provisioning.SetVariableStatusUnknownVariable, response.SetVariableResult[2].AttributeStatus)
	assert.Equal(t, common.ChangeConfiguration{Key: "OCPPCommCtrlr.HeartbeatInterval", Value: "30"}, dispatcher.commands[0])
}

func TestReset(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)

	response, err := h.OnReset(&provisioning.ResetRequest{Type: provisioning.ResetTypeOnIdle})
	require.NoError(t, err)
	assert.Equal(t, provisioning.ResetStatusAccepted, response.Status)
	assert.Equal(t, common.Reset{Hard: false}, dispatcher.last())

	response, err = h.OnReset(&provisioning.ResetRequest{Type: provisioning.ResetTypeImmediate, EvseID: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, provisioning.ResetStatusRejected, response.Status)
	assert.Len(t, dispatcher.commands, 1)
}

func TestChangeAvailabilityAddressing(t *testing.T) {
	h, dispatcher := newHandler(common.StatusScheduled)

	response, err := h.OnChangeAvailability(&availability.ChangeAvailabilityRequest{OperationalStatus: availability.OperationalStatusInoperative})
	require.NoError(t, err)
	assert.Equal(t, availability.ChangeAvailabilityStatusScheduled, response.Status)
	assert.Equal(t, common.ChangeAvailability{}, dispatcher.last())

	_, err = h.OnChangeAvailability(&availability.ChangeAvailabilityRequest{
		OperationalStatus: availability.OperationalStatusOperative,
		Evse:              &types.EVSE{ID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, common.ChangeAvailability{EvseID: 2, Operative: true}, dispatcher.last())

	_, err = h.OnChangeAvailability(&availability.ChangeAvailabilityRequest{
		OperationalStatus: availability.OperationalStatusOperative,
		Evse:              &types.EVSE{ID: 2, ConnectorID: intPtr(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, common.ChangeAvailability{EvseID: 2, ConnectorID: 1, Operative: true}, dispatcher.last())
}

func TestRequestStartAndStopTransaction(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)

	start, err := h.OnRequestStartTransaction(&remotecontrol.RequestStartTransactionRequest{
		EvseID:  intPtr(1),
		IDToken: types.IdToken{IdToken: "ABC", Type: types.IdTokenTypeISO14443},
	})
	require.NoError(t, err)
	assert.Equal(t, remotecontrol.RequestStartStopStatusAccepted, start.Status)
	assert.Equal(t, common.RemoteStart{EvseID: 1, TagID: "ABC"}, dispatcher.last())

	dispatcher.result.Status = common.StatusRejected
	stop, err := h.OnRequestStopTransaction(&remotecontrol.RequestStopTransactionRequest{TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, remotecontrol.RequestStartStopStatusRejected, stop.Status)
	assert.Equal(t, common.RemoteStop{TransactionID: "tx-1"}, dispatcher.last())
}

func TestUnlockUnknownConnector(t *testing.T) {
	h, dispatcher := newHandler(common.StatusNotSupported)

	response, err := h.OnUnlockConnector(&remotecontrol.UnlockConnectorRequest{EvseID: 3, ConnectorID: 1})
	require.NoError(t, err)
	assert.Equal(t, remotecontrol.UnlockStatusUnknownConnector, response.Status)
	assert.Equal(t, common.UnlockConnector{EvseID: 3, ConnectorID: 1}, dispatcher.last())
}

func TestTriggerMessageForEVSE(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)

	response, err := h.OnTriggerMessage(&remotecontrol.TriggerMessageRequest{
		RequestedMessage: remotecontrol.MessageTriggerStatusNotification,
		Evse:             &types.EVSE{ID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, remotecontrol.TriggerMessageStatusAccepted, response.Status)
	assert.Equal(t, common.TriggerMessage{Message: common.TriggerStatusNotification, EvseID: 1}, dispatcher.last())

	_, err = h.OnTriggerMessage(&remotecontrol.TriggerMessageRequest{RequestedMessage: remotecontrol.MessageTriggerLogStatusNotification})
	require.NoError(t, err)
	assert.Equal(t, common.TriggerMessage{Message: common.TriggerOther}, dispatcher.last())
}

func TestReserveNowByConnectorType(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	response, err := h.OnReserveNow(&reservation.ReserveNowRequest{
		ID:             9,
		ExpiryDateTime: types.NewDateTime(expiry),
		ConnectorType:  "cType2",
		IdToken:        types.IdToken{IdToken: "ABC", Type: types.IdTokenTypeISO14443},
	})
	require.NoError(t, err)
	assert.Equal(t, reservation.ReserveNowStatusAccepted, response.Status)
	cmd, ok := dispatcher.last().(common.ReserveNow)
	require.True(t, ok)
	assert.Equal(t, "9", cmd.ReservationID)
	assert.Equal(t, "cType2", cmd.ConnectorType)
	assert.True(t, expiry.Equal(cmd.Expiry))

	dispatcher.result.Status = common.StatusRejected
	cancel, err := h.OnCancelReservation(&reservation.CancelReservationRequest{ReservationID: 9})
	require.NoError(t, err)
	assert.Equal(t, reservation.CancelReservationStatusRejected, cancel.Status)
}

func TestLocalList(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)

	response, err := h.OnSendLocalList(&localauth.SendLocalListRequest{
		VersionNumber: 2,
		UpdateType:    localauth.UpdateTypeFull,
		LocalAuthorizationList: []localauth.AuthorizationData{
			{IdToken: types.IdToken{IdToken: "ABC"}, IdTokenInfo: &types.IdTokenInfo{Status: types.AuthorizationStatusAccepted}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, localauth.SendLocalListStatusAccepted, response.Status)
	cmd, ok := dispatcher.last().(common.SendLocalList)
	require.True(t, ok)
	assert.True(t, cmd.Full)
	require.Len(t, cmd.Entries, 1)
	assert.Equal(t, common.AuthorizationAccepted, cmd.Entries[0].Info.Status)

	dispatcher.result.ListVersion = -1
	version, err := h.OnGetLocalListVersion(&localauth.GetLocalListVersionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, version.VersionNumber)
}

func TestUpdateFirmwareRemembersRequest(t *testing.T) {
	h, dispatcher := newHandler(common.StatusAccepted)

	response, err := h.OnUpdateFirmware(&ocppfirmware.UpdateFirmwareRequest{
		RequestID: 4,
		Retries:   intPtr(1),
		Firmware:  ocppfirmware.Firmware{Location: "https://example.com/fw.bin", RetrieveDateTime: types.NewDateTime(time.Now())},
	})
	require.NoError(t, err)
	assert.Equal(t, ocppfirmware.UpdateFirmwareStatusAccepted, response.Status)
	cmd, ok := dispatcher.last().(common.UpdateFirmware)
	require.True(t, ok)
	assert.Equal(t, 1, cmd.Retries)
	require.NotNil(t, h.adapter.firmwareRequestID)
	assert.Equal(t, 4, *h.adapter.firmwareRequestID)

	dispatcher.result.Status = common.StatusRejected
	response, err = h.OnUpdateFirmware(&ocppfirmware.UpdateFirmwareRequest{RequestID: 5})
	require.NoError(t, err)
	assert.Equal(t, ocppfirmware.UpdateFirmwareStatusRejected, response.Status)
	assert.Equal(t, 4, *h.adapter.firmwareRequestID)
}
