package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charge_point/common"
)

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []call
	err   error
}

func (db *fakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	db.calls = append(db.calls, call{sql: sql, args: arguments})
	return pgconn.NewCommandTag("INSERT 0 1"), db.err
}

func TestSessionStarted(t *testing.T) {
	db := &fakeDB{}
	repo := &SessionsRepo{db: db}
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SessionStarted(context.Background(), common.SessionRecord{
		ChargePointID: "CP-1",
		EvseID:        1,
		ConnectorID:   2,
		TransactionID: "17",
		TagID:         "ABC",
		StartedAt:     started,
	}))

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "insert into charging_sessions")
	assert.Equal(t, []any{"CP-1", "17", 1, 2, "ABC", started}, db.calls[0].args)
}

func TestSessionStoppedWithoutStart(t *testing.T) {
	db := &fakeDB{}
	repo := &SessionsRepo{db: db}
	stopped := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SessionStopped(context.Background(), common.SessionRecord{
		ChargePointID: "CP-1",
		TransactionID: "17",
		StoppedAt:     stopped,
		EnergyWh:      5400,
		Reason:        common.StopReasonRemote,
	}))

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "on conflict (charge_point_id, transaction_id) do update")
	args := db.calls[0].args
	assert.Equal(t, stopped, args[5], "start falls back to the stop time")
	assert.Equal(t, 5400.0, args[7])
	assert.Equal(t, "Remote", args[8])
}

func TestErrorsArePassedOn(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	repo := &SessionsRepo{db: db}

	assert.Error(t, repo.Migrate(context.Background()))
	assert.Error(t, repo.SessionStarted(context.Background(), common.SessionRecord{}))
}
