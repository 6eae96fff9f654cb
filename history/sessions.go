// Package history keeps a Postgres ledger of the charging sessions of the charge point.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"charge_point/common"
)

const schema = `
	create table if not exists charging_sessions (
		charge_point_id text not null,
		transaction_id  text not null,
		evse_id         integer not null,
		connector_id    integer not null,
		id_tag          text not null default '',
		started_at      timestamptz not null,
		stopped_at      timestamptz,
		energy_wh       double precision,
		reason          text,
		updated_at      timestamptz not null default now(),
		primary key (charge_point_id, transaction_id)
	)
`

// execer is the part of *pgxpool.Pool the repo uses.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type SessionsRepo struct{ db execer }

func NewSessionsRepo(db *pgxpool.Pool) *SessionsRepo { return &SessionsRepo{db: db} }

// Connect opens a small pool; the charge point writes a handful of rows per session.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 2
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return pool, nil
}

func (r *SessionsRepo) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

func (r *SessionsRepo) SessionStarted(ctx context.Context, s common.SessionRecord) error {
	_, err := r.db.Exec(ctx, `
		insert into charging_sessions (charge_point_id, transaction_id, evse_id, connector_id, id_tag, started_at)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (charge_point_id, transaction_id) do nothing
	`, s.ChargePointID, s.TransactionID, s.EvseID, s.ConnectorID, s.TagID, s.StartedAt)
	return err
}

// SessionStopped closes the row of the session, creating it when the start was never recorded.
func (r *SessionsRepo) SessionStopped(ctx context.Context, s common.SessionRecord) error {
	startedAt := s.StartedAt
	if startedAt.IsZero() {
		startedAt = s.StoppedAt
	}
	_, err := r.db.Exec(ctx, `
		insert into charging_sessions (charge_point_id, transaction_id, evse_id, connector_id, id_tag, started_at, stopped_at, energy_wh, reason)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		on conflict (charge_point_id, transaction_id) do update
		set stopped_at=excluded.stopped_at, energy_wh=excluded.energy_wh, reason=excluded.reason, updated_at=now()
	`, s.ChargePointID, s.TransactionID, s.EvseID, s.ConnectorID, s.TagID, startedAt, s.StoppedAt, s.EnergyWh, string(s.Reason))
	return err
}
