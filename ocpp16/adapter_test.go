package ocpp16

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ocpp "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"

	"charge_point/chargepoint"
	"charge_point/common"
	"charge_point/session"
)

// fakeClient overrides the calls the adapter makes. Anything else panics on the nil embedded
// interface.
type fakeClient struct {
	ocpp.ChargePoint

	mu        sync.Mutex
	connected bool
	tagInfo   *types.IdTagInfo
	starts    []*core.StartTransactionRequest
	stops     []*core.StopTransactionRequest
	meters    []*core.MeterValuesRequest
	statuses  []*core.StatusNotificationRequest
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) BootNotification(model string, vendor string, props ...func(request *core.BootNotificationRequest)) (*core.BootNotificationConfirmation, error) {
	return &core.BootNotificationConfirmation{Status: core.RegistrationStatusAccepted, Interval: 300}, nil
}

func (c *fakeClient) Authorize(idTag string, props ...func(request *core.AuthorizeRequest)) (*core.AuthorizeConfirmation, error) {
	return &core.AuthorizeConfirmation{IdTagInfo: c.tagInfo}, nil
}

func (c *fakeClient) StartTransaction(connectorId int, idTag string, meterStart int, timestamp *types.DateTime, props ...func(request *core.StartTransactionRequest)) (*core.StartTransactionConfirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts = append(c.starts, &core.StartTransactionRequest{ConnectorId: connectorId, IdTag: idTag, MeterStart: meterStart, Timestamp: timestamp})
	return &core.StartTransactionConfirmation{IdTagInfo: c.tagInfo, TransactionId: 7}, nil
}

func (c *fakeClient) StopTransaction(meterStop int, timestamp *types.DateTime, transactionId int, props ...func(request *core.StopTransactionRequest)) (*core.StopTransactionConfirmation, error) {
	request := &core.StopTransactionRequest{MeterStop: meterStop, Timestamp: timestamp, TransactionId: transactionId}
	for _, prop := range props {
		prop(request)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops = append(c.stops, request)
	return &core.StopTransactionConfirmation{}, nil
}

func (c *fakeClient) MeterValues(connectorId int, meterValues []types.MeterValue, props ...func(request *core.MeterValuesRequest)) (*core.MeterValuesConfirmation, error) {
	request := &core.MeterValuesRequest{ConnectorId: connectorId, MeterValue: meterValues}
	for _, prop := range props {
		prop(request)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meters = append(c.meters, request)
	return &core.MeterValuesConfirmation{}, nil
}

func (c *fakeClient) StatusNotification(connectorId int, errorCode core.ChargePointErrorCode, status core.ChargePointStatus, props ...func(request *core.StatusNotificationRequest)) (*core.StatusNotificationConfirmation, error) {
	request := &core.StatusNotificationRequest{ConnectorId: connectorId, ErrorCode: errorCode, Status: status}
	for _, prop := range props {
		prop(request)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, request)
	return &core.StatusNotificationConfirmation{}, nil
}

func newAdapter(connected bool) (*Adapter, *fakeClient) {
	client := &fakeClient{connected: connected, tagInfo: &types.IdTagInfo{Status: types.AuthorizationStatusAccepted}}
	return New("CP-1", client, nil), client
}

func TestStopSequence(t *testing.T) {
	a, _ := newAdapter(true)
	tests := []struct {
		reason common.StopReason
		want   []common.ConnectorStatus
	}{
		{common.StopReasonLocal, []common.ConnectorStatus{common.ConnectorStatusAvailable}},
		{common.StopReasonPowerLoss, []common.ConnectorStatus{common.ConnectorStatusAvailable}},
		{common.StopReasonRemote, []common.ConnectorStatus{common.ConnectorStatusSuspendedEVSE, common.ConnectorStatusFinishing, common.ConnectorStatusAvailable}},
		{common.StopReasonEmergencyStop, []common.ConnectorStatus{common.ConnectorStatusFinishing, common.ConnectorStatusFaulted}},
		{common.StopReasonEVDisconnected, []common.ConnectorStatus{common.ConnectorStatusSuspendedEV, common.ConnectorStatusFinishing, common.ConnectorStatusAvailable}},
		{common.StopReasonHardReset, []common.ConnectorStatus{common.ConnectorStatusUnavailable}},
	}
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.want, a.StopSequence(tt.reason))
		})
	}
	assert.False(t, a.ExclusiveEVSE())
	assert.Equal(t, "HeartbeatInterval", a.Keys().HeartbeatInterval)
}

func TestCallsFailWhenDisconnected(t *testing.T) {
	a, _ := newAdapter(false)

	_, err := a.BootNotification("model", "vendor")
	assert.ErrorIs(t, err, chargepoint.ErrNotConnected)
	_, err = a.Authorize("ABC")
	assert.ErrorIs(t, err, chargepoint.ErrNotConnected)
	assert.ErrorIs(t, a.Heartbeat(), chargepoint.ErrNotConnected)
	assert.ErrorIs(t, a.StatusNotification(chargepoint.Address{Number: 1}, common.ConnectorStatusAvailable), chargepoint.ErrNotConnected)
}

func TestBootNotification(t *testing.T) {
	a, _ := newAdapter(true)

	result, err := a.BootNotification("model", "vendor")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 300*time.Second, result.Interval)
}

func TestAuthorizeMapsTagInfo(t *testing.T) {
	a, client := newAdapter(true)
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	client.tagInfo = &types.IdTagInfo{Status: types.AuthorizationStatusBlocked, ExpiryDate: types.NewDateTime(expiry)}

	info, err := a.Authorize("ABC")
	require.NoError(t, err)
	assert.Equal(t, common.AuthorizationBlocked, info.Status)
	require.NotNil(t, info.Expiry)
	assert.True(t, expiry.Equal(*info.Expiry))

	client.tagInfo = nil
	info, err = a.Authorize("ABC")
	require.NoError(t, err)
	assert.Equal(t, common.AuthorizationInvalid, info.Status)
}

func TestStartTransactionUsesConnectorNumber(t *testing.T) {
	a, client := newAdapter(true)

	result, err := a.StartTransaction(chargepoint.TransactionRequest{
		Address:    chargepoint.Address{EvseID: 2, ConnectorID: 1, Number: 3},
		TagID:      "ABC",
		MeterStart: 10,
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "7", result.TransactionID)
	assert.True(t, result.TagInfo.Accepted())
	require.Len(t, client.starts, 1)
	assert.Equal(t, 3, client.starts[0].ConnectorId)
	assert.Equal(t, 10, client.starts[0].MeterStart)
}

func TestStopTransaction(t *testing.T) {
	a, client := newAdapter(true)

	err := a.StopTransaction(chargepoint.StopRequest{
		TransactionID: "7",
		TagID:         "ABC",
		MeterStop:     1500,
		Timestamp:     time.Now(),
		Reason:        common.StopReasonTimeLimitReached,
	})
	require.NoError(t, err)
	require.Len(t, client.stops, 1)
	stop := client.stops[0]
	assert.Equal(t, 7, stop.TransactionId)
	assert.Equal(t, 1500, stop.MeterStop)
	assert.Equal(t, "ABC", stop.IdTag)
	assert.Equal(t, core.ReasonLocal, stop.Reason)

	assert.Error(t, a.StopTransaction(chargepoint.StopRequest{TransactionID: "not-a-number"}))
}

func TestStopReason(t *testing.T) {
	assert.Equal(t, core.ReasonEVDisconnected, stopReason(common.StopReasonEVDisconnected))
	assert.Equal(t, core.ReasonUnlockCommand, stopReason(common.StopReasonUnlockCommand))
	assert.Equal(t, core.ReasonSoftReset, stopReason(common.StopReasonSoftReset))
	assert.Equal(t, core.ReasonOther, stopReason(common.StopReasonOther))
}

func TestMeterValues(t *testing.T) {
	a, client := newAdapter(true)
	now := time.Now()

	err := a.MeterValues(chargepoint.MeterRequest{
		Address:       chargepoint.Address{Number: 2},
		TransactionID: "7",
		Sample:        session.MeterSample{Timestamp: now, Value: 1234.5},
		Power:         3680,
	})
	require.NoError(t, err)
	require.Len(t, client.meters, 1)
	request := client.meters[0]
	assert.Equal(t, 2, request.ConnectorId)
	require.NotNil(t, request.TransactionId)
	assert.Equal(t, 7, *request.TransactionId)
	require.Len(t, request.MeterValue, 1)
	values := request.MeterValue[0].SampledValue
	require.Len(t, values, 2)
	assert.Equal(t, "3680.0", values[0].Value)
	assert.Equal(t, types.UnitOfMeasureW, values[0].Unit)
	assert.Equal(t, "1234.5", values[1].Value)
	assert.Equal(t, types.MeasurandEnergyActiveImportRegister, values[1].Measurand)
}

func TestStatusNotification(t *testing.T) {
	a, client := newAdapter(true)

	require.NoError(t, a.StatusNotification(chargepoint.Address{Number: 1}, common.ConnectorStatusCharging))
	require.NoError(t, a.StatusNotification(chargepoint.Address{Number: 2}, common.ConnectorStatusFaulted))

	require.Len(t, client.statuses, 2)
	assert.Equal(t, core.ChargePointStatusCharging, client.statuses[0].Status)
	assert.Equal(t, core.NoError, client.statuses[0].ErrorCode)
	assert.NotNil(t, client.statuses[0].Timestamp)
	assert.Equal(t, 2, client.statuses[1].ConnectorId)
	assert.Equal(t, core.OtherError, client.statuses[1].ErrorCode)
}
