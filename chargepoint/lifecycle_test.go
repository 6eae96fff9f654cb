package chargepoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"charge_point/common"
	"charge_point/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootRetriesUntilAccepted(t *testing.T) {
	protocol := &fakeProtocol{}
	attempts := 0
	protocol.bootFn = func() (BootResult, error) {
		attempts++
		if attempts < 3 {
			return BootResult{Interval: time.Millisecond}, nil
		}
		return BootResult{Accepted: true, Interval: time.Hour}, nil
	}
	f := newFixture(t, protocol, []int{1}, nil)

	require.NoError(t, f.cp.Boot(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.True(t, f.sched.Has(heartbeatJob))
	next, ok := f.sched.NextRun(heartbeatJob)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)
	assert.Equal(t, []common.ConnectorStatus{common.ConnectorStatusAvailable}, protocol.statusesOf(1))
}

func TestBootGivesUpWithContext(t *testing.T) {
	protocol := &fakeProtocol{bootFn: func() (BootResult, error) {
		return BootResult{}, errors.New("offline")
	}}
	f := newFixture(t, protocol, []int{1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.cp.Boot(ctx), context.DeadlineExceeded)
}

func TestHeartbeatIntervalChange(t *testing.T) {
	f := newFixture(t, &fakeProtocol{}, []int{1}, nil)
	f.cp.startHeartbeat(time.Hour)

	res := f.cp.Dispatch(common.ChangeConfiguration{Key: "HeartbeatInterval", Value: "1"})
	assert.Equal(t, common.StatusAccepted, res.Status)
	require.Eventually(t, func() bool {
		f.protocol.mu.Lock()
		defer f.protocol.mu.Unlock()
		return f.protocol.heartbeats > 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRestoreResumesRunningSession(t *testing.T) {
	f := newFixture(t, &fakeProtocol{}, []int{1}, nil)
	require.NoError(t, f.store.SetStatus(1, 1, common.ConnectorStatusCharging))
	require.NoError(t, f.store.UpdateSession(1, 1, func(s *session.Snapshot) {
		*s = session.Snapshot{IsActive: true, TransactionID: "42", TagID: "ABC", Started: time.Now().Add(-10 * time.Minute)}
	}))

	f.cp.RestoreState()

	c := f.connector(1)
	assert.True(t, c.IsCharging())
	assert.Equal(t, "42", c.TransactionID())
	assert.True(t, f.relays[c].IsOn())
	assert.Equal(t, []common.ConnectorStatus{common.ConnectorStatusCharging}, f.protocol.statusesOf(1))
}

func TestRestoreClosesExpiredSession(t *testing.T) {
	f := newFixture(t, &fakeProtocol{}, []int{1}, nil)
	require.NoError(t, f.store.SetStatus(1, 1, common.ConnectorStatusCharging))
	require.NoError(t, f.store.UpdateSession(1, 1, func(s *session.Snapshot) {
		*s = session.Snapshot{
			IsActive:      true,
			TransactionID: "42",
			TagID:         "ABC",
			Started:       time.Now().Add(-5 * time.Hour),
			Consumption:   []session.MeterSample{{Timestamp: time.Now(), Value: 1500}},
		}
	}))

	f.cp.RestoreState()

	c := f.connector(1)
	assert.False(t, c.HasSession())
	assert.Equal(t, common.ConnectorStatusAvailable, c.Status())
	require.Eventually(t, func() bool { return len(f.protocol.stopRequests()) == 1 }, waitFor, tick)
	stop := f.protocol.stopRequests()[0]
	assert.Equal(t, "42", stop.TransactionID)
	assert.Equal(t, common.StopReasonPowerLoss, stop.Reason)
	assert.Equal(t, 1500, stop.MeterStop)
}

func TestRestoreRetriesInterruptedStart(t *testing.T) {
	f := newFixture(t, &fakeProtocol{}, []int{1}, nil)
	require.NoError(t, f.store.SetStatus(1, 1, common.ConnectorStatusPreparing))
	require.NoError(t, f.store.UpdateSession(1, 1, func(s *session.Snapshot) { s.TagID = "ABC" }))

	f.cp.RestoreState()

	require.Eventually(t, func() bool { return f.connector(1).IsCharging() }, waitFor, tick)
	assert.Equal(t, "ABC", f.connector(1).TagID())
	assert.False(t, f.protocol.startRequests()[0].Remote)
}

func TestRestoreKeepsOutOfServiceStatus(t *testing.T) {
	f := newFixture(t, &fakeProtocol{}, []int{1, 2, 3}, nil)
	require.NoError(t, f.store.SetStatus(1, 1, common.ConnectorStatusUnavailable))
	require.NoError(t, f.store.SetStatus(2, 1, common.ConnectorStatusFaulted))
	require.NoError(t, f.store.SetStatus(3, 1, common.ConnectorStatusReserved))

	f.cp.RestoreState()

	assert.Equal(t, common.ConnectorStatusUnavailable, f.connector(1).Status())
	assert.Equal(t, common.ConnectorStatusFaulted, f.connector(2).Status())
	assert.Equal(t, common.ConnectorStatusAvailable, f.connector(3).Status())
}

func TestCleanupStopsSessionsAndPersists(t *testing.T) {
	f := newFixture(t, &fakeProtocol{}, []int{1, 2}, nil)
	require.Equal(t, common.StartChargingSuccess, f.cp.StartCharging(f.connector(1), "ABC", false))

	require.NoError(t, f.cp.Cleanup(context.Background(), common.StopReasonLocal))

	assert.False(t, f.connector(1).HasSession())
	stops := f.protocol.stopRequests()
	require.Len(t, stops, 1)
	assert.Equal(t, common.StopReasonLocal, stops[0].Reason)
	assert.Equal(t, common.ConnectorStatusAvailable, f.store.status(1, 1))
	assert.Equal(t, common.ConnectorStatusAvailable, f.store.status(2, 1))

	assert.Nil(t, f.sched.Once("after", 0, func() {}))
}
