package ocpp201

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ocpp2 "github.com/lorenzodonini/ocpp-go/ocpp2.0.1"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/authorization"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/availability"
	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp2.0.1/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/provisioning"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/transactions"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/types"

	"charge_point/chargepoint"
	"charge_point/common"
	"charge_point/firmware"
	"charge_point/session"
)

type statusCall struct {
	status      availability.ConnectorStatus
	evseID      int
	connectorID int
}

// fakeStation overrides the calls the adapter makes. Anything else panics on the nil embedded
// interface.
type fakeStation struct {
	ocpp2.ChargingStation

	mu           sync.Mutex
	tokenInfo    *types.IdTokenInfo
	events       []*transactions.TransactionEventRequest
	statuses     []statusCall
	firmwareSent []*ocppfirmware.FirmwareStatusNotificationRequest
}

func (s *fakeStation) IsConnected() bool { return true }

func (s *fakeStation) BootNotification(reason provisioning.BootReason, model string, vendor string, props ...func(request *provisioning.BootNotificationRequest)) (*provisioning.BootNotificationResponse, error) {
	return &provisioning.BootNotificationResponse{Status: provisioning.RegistrationStatusPending, Interval: 10}, nil
}

func (s *fakeStation) Authorize(idToken string, tokenType types.IdTokenType, props ...func(request *authorization.AuthorizeRequest)) (*authorization.AuthorizeResponse, error) {
	return &authorization.AuthorizeResponse{IdTokenInfo: types.IdTokenInfo{Status: types.AuthorizationStatusNoCredit}}, nil
}

func (s *fakeStation) TransactionEvent(t transactions.TransactionEvent, timestamp *types.DateTime, reason transactions.TriggerReason, seqNo int, info transactions.Transaction, props ...func(request *transactions.TransactionEventRequest)) (*transactions.TransactionEventResponse, error) {
	request := &transactions.TransactionEventRequest{
		EventType:       t,
		Timestamp:       timestamp,
		TriggerReason:   reason,
		SequenceNo:      seqNo,
		TransactionInfo: info,
	}
	for _, prop := range props {
		prop(request)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, request)
	return &transactions.TransactionEventResponse{IDTokenInfo: s.tokenInfo}, nil
}

func (s *fakeStation) StatusNotification(timestamp *types.DateTime, status availability.ConnectorStatus, evseID int, connectorID int, props ...func(request *availability.StatusNotificationRequest)) (*availability.StatusNotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, statusCall{status: status, evseID: evseID, connectorID: connectorID})
	return &availability.StatusNotificationResponse{}, nil
}

func (s *fakeStation) FirmwareStatusNotification(status ocppfirmware.FirmwareStatus, props ...func(request *ocppfirmware.FirmwareStatusNotificationRequest)) (*ocppfirmware.FirmwareStatusNotificationResponse, error) {
	request := &ocppfirmware.FirmwareStatusNotificationRequest{Status: status}
	for _, prop := range props {
		prop(request)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firmwareSent = append(s.firmwareSent, request)
	return &ocppfirmware.FirmwareStatusNotificationResponse{}, nil
}

func newAdapter() (*Adapter, *fakeStation) {
	station := &fakeStation{}
	return New("CS-1", station, nil), station
}

var address = chargepoint.Address{EvseID: 2, ConnectorID: 1, Number: 3}

func TestStopSequence(t *testing.T) {
	a, _ := newAdapter()
	assert.Equal(t, []common.ConnectorStatus{common.ConnectorStatusAvailable}, a.StopSequence(common.StopReasonRemote))
	assert.Equal(t, []common.ConnectorStatus{common.ConnectorStatusAvailable}, a.StopSequence(common.StopReasonTimeLimitReached))
	assert.Equal(t, []common.ConnectorStatus{common.ConnectorStatusFaulted}, a.StopSequence(common.StopReasonEmergencyStop))
	assert.Equal(t, []common.ConnectorStatus{common.ConnectorStatusUnavailable}, a.StopSequence(common.StopReasonSoftReset))
	assert.True(t, a.ExclusiveEVSE())
	assert.Equal(t, "OCPPCommCtrlr.HeartbeatInterval", a.Keys().HeartbeatInterval)
}

func TestBootAndAuthorize(t *testing.T) {
	a, _ := newAdapter()

	result, err := a.BootNotification("model", "vendor")
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, 10*time.Second, result.Interval)

	info, err := a.Authorize("ABC")
	require.NoError(t, err)
	assert.Equal(t, common.AuthorizationInvalid, info.Status)
}

func TestStatusCollapsesToOccupied(t *testing.T) {
	tests := map[common.ConnectorStatus]availability.ConnectorStatus{
		common.ConnectorStatusAvailable:     availability.ConnectorStatusAvailable,
		common.ConnectorStatusPreparing:     availability.ConnectorStatusOccupied,
		common.ConnectorStatusCharging:      availability.ConnectorStatusOccupied,
		common.ConnectorStatusSuspendedEV:   availability.ConnectorStatusOccupied,
		common.ConnectorStatusSuspendedEVSE: availability.ConnectorStatusOccupied,
		common.ConnectorStatusFinishing:     availability.ConnectorStatusOccupied,
		common.ConnectorStatusReserved:      availability.ConnectorStatusReserved,
		common.ConnectorStatusUnavailable:   availability.ConnectorStatusUnavailable,
		common.ConnectorStatusFaulted:       availability.ConnectorStatusFaulted,
	}
	for status, want := range tests {
		assert.Equal(t, want, connectorStatus(status), status)
	}

	a, station := newAdapter()
	require.NoError(t, a.StatusNotification(address, common.ConnectorStatusCharging))
	require.Len(t, station.statuses, 1)
	assert.Equal(t, statusCall{status: availability.ConnectorStatusOccupied, evseID: 2, connectorID: 1}, station.statuses[0])
}

func TestTransactionEventsAreSequenced(t *testing.T) {
	a, station := newAdapter()
	now := time.Now()

	result, err := a.StartTransaction(chargepoint.TransactionRequest{Address: address, TagID: "ABC", Timestamp: now, Remote: true})
	require.NoError(t, err)
	_, err = uuid.Parse(result.TransactionID)
	require.NoError(t, err)
	assert.True(t, result.TagInfo.Accepted())

	sample := session.MeterSample{Timestamp: now, Value: 100}
	require.NoError(t, a.MeterValues(chargepoint.MeterRequest{Address: address, TransactionID: result.TransactionID, Sample: sample, Power: 3680}))
	require.NoError(t, a.MeterValues(chargepoint.MeterRequest{Address: address, TransactionID: result.TransactionID, Sample: sample, Power: 3680}))
	require.NoError(t, a.StopTransaction(chargepoint.StopRequest{
		Address:       address,
		TransactionID: result.TransactionID,
		MeterStop:     250,
		Timestamp:     now,
		Reason:        common.StopReasonRemote,
	}))

	require.Len(t, station.events, 4)
	for i, event := range station.events {
		assert.Equal(t, i, event.SequenceNo)
		assert.Equal(t, result.TransactionID, event.TransactionInfo.TransactionID)
		require.NotNil(t, event.Evse)
		assert.Equal(t, 2, event.Evse.ID)
	}
	assert.Equal(t, transactions.TransactionEventStarted, station.events[0].EventType)
	assert.Equal(t, transactions.TriggerReasonRemoteStart, station.events[0].TriggerReason)
	require.NotNil(t, station.events[0].IDToken)
	assert.Equal(t, "ABC", station.events[0].IDToken.IdToken)

	updated := station.events[1]
	assert.Equal(t, transactions.TransactionEventUpdated, updated.EventType)
	require.Len(t, updated.MeterValue, 1)
	require.Len(t, updated.MeterValue[0].SampledValue, 2)
	assert.Equal(t, 3680.0, updated.MeterValue[0].SampledValue[0].Value)

	ended := station.events[3]
	assert.Equal(t, transactions.TransactionEventEnded, ended.EventType)
	assert.Equal(t, transactions.ReasonRemote, ended.TransactionInfo.StoppedReason)
	assert.Equal(t, transactions.TriggerReasonRemoteStop, ended.TriggerReason)
	assert.Equal(t, 250.0, ended.MeterValue[0].SampledValue[0].Value)

	next, err := a.StartTransaction(chargepoint.TransactionRequest{Address: address, TagID: "DEF", Timestamp: now})
	require.NoError(t, err)
	assert.NotEqual(t, result.TransactionID, next.TransactionID)
	assert.Equal(t, 0, station.events[4].SequenceNo)
	assert.Equal(t, transactions.TriggerReasonAuthorized, station.events[4].TriggerReason)
}

func TestSequenceNumbersSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sequences.json")
	a, station := newAdapter()
	a.PersistSequences(path)
	now := time.Now()

	result, err := a.StartTransaction(chargepoint.TransactionRequest{Address: address, TagID: "ABC", Timestamp: now})
	require.NoError(t, err)
	sample := session.MeterSample{Timestamp: now, Value: 100}
	require.NoError(t, a.MeterValues(chargepoint.MeterRequest{Address: address, TransactionID: result.TransactionID, Sample: sample, Power: 3680}))

	restarted, restartedStation := newAdapter()
	restarted.PersistSequences(path)
	require.NoError(t, restarted.MeterValues(chargepoint.MeterRequest{Address: address, TransactionID: result.TransactionID, Sample: sample, Power: 3680}))
	require.NoError(t, restarted.StopTransaction(chargepoint.StopRequest{
		Address:       address,
		TransactionID: result.TransactionID,
		Timestamp:     now,
		Reason:        common.StopReasonPowerLoss,
	}))

	require.Len(t, station.events, 2)
	require.Len(t, restartedStation.events, 2)
	assert.Equal(t, 2, restartedStation.events[0].SequenceNo)
	assert.Equal(t, 3, restartedStation.events[1].SequenceNo)

	var persisted map[string]int
	require.NoError(t, common.ReadJSONFile(path, &persisted))
	assert.Empty(t, persisted)
}

func TestStartTransactionReportsTokenVerdict(t *testing.T) {
	a, station := newAdapter()
	station.tokenInfo = &types.IdTokenInfo{Status: types.AuthorizationStatusBlocked}

	result, err := a.StartTransaction(chargepoint.TransactionRequest{Address: address, TagID: "ABC", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, common.AuthorizationBlocked, result.TagInfo.Status)
}

func TestStopReasons(t *testing.T) {
	assert.Equal(t, transactions.ReasonTimeLimitReached, stoppedReason(common.StopReasonTimeLimitReached))
	assert.Equal(t, transactions.ReasonImmediateReset, stoppedReason(common.StopReasonHardReset))
	assert.Equal(t, transactions.ReasonOther, stoppedReason(common.StopReasonOther))
	assert.Equal(t, transactions.TriggerReasonEVCommunicationLost, triggerReason(common.StopReasonEVDisconnected))
	assert.Equal(t, transactions.TriggerReasonAbnormalCondition, triggerReason(common.StopReasonEmergencyStop))
}

func TestFirmwareStatusCarriesRequestID(t *testing.T) {
	a, station := newAdapter()

	require.NoError(t, a.FirmwareStatusNotification(firmware.StatusIdle))
	a.setFirmwareRequest(12)
	require.NoError(t, a.FirmwareStatusNotification(firmware.StatusDownloading))

	require.Len(t, station.firmwareSent, 2)
	assert.Nil(t, station.firmwareSent[0].RequestID)
	require.NotNil(t, station.firmwareSent[1].RequestID)
	assert.Equal(t, 12, *station.firmwareSent[1].RequestID)
	assert.Equal(t, ocppfirmware.FirmwareStatusDownloading, station.firmwareSent[1].Status)
}
