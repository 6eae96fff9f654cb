package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"charge_point/common"
	"charge_point/session"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

type redisState struct {
	Status  common.ConnectorStatus `json:"status"`
	Session session.Snapshot       `json:"session"`
}

// RedisStore keeps connector state in Redis. The connector layout still comes from the connectors
// file, which also provides the state of connectors Redis has never seen.
type RedisStore struct {
	client *redis.Client
	prefix string
	layout *FileStore
}

func NewRedis(client *redis.Client, chargePointID string, layout *FileStore) *RedisStore {
	return &RedisStore{client: client, prefix: "charge_point:" + chargePointID, layout: layout}
}

func (s *RedisStore) key(evseID, connectorID int) string {
	return fmt.Sprintf("%s:connector:%d:%d", s.prefix, evseID, connectorID)
}

func (s *RedisStore) Layout() []EVSERecord {
	evses := s.layout.Layout()
	for i := range evses {
		for j := range evses[i].Connectors {
			record := &evses[i].Connectors[j]
			if state, err := s.load(evses[i].ID, record.ID); err == nil {
				record.Status = state.Status
				record.Session = state.Session
			}
		}
	}
	return evses
}

func (s *RedisStore) load(evseID, connectorID int) (redisState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	var state redisState
	data, err := s.client.Get(ctx, s.key(evseID, connectorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		status, snapshot, err := s.layout.GetStatusAndSession(evseID, connectorID)
		return redisState{Status: status, Session: snapshot}, err
	}
	if err != nil {
		return state, err
	}
	err = json.Unmarshal(data, &state)
	return state, err
}

func (s *RedisStore) save(evseID, connectorID int, state redisState) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(evseID, connectorID), data, 0).Err()
}

func (s *RedisStore) GetStatusAndSession(evseID, connectorID int) (common.ConnectorStatus, session.Snapshot, error) {
	state, err := s.load(evseID, connectorID)
	return state.Status, state.Session, err
}

func (s *RedisStore) SetStatus(evseID, connectorID int, status common.ConnectorStatus) error {
	return s.modify(evseID, connectorID, func(state *redisState) { state.Status = status })
}

func (s *RedisStore) UpdateSession(evseID, connectorID int, update func(s *session.Snapshot)) error {
	return s.modify(evseID, connectorID, func(state *redisState) { update(&state.Session) })
}

func (s *RedisStore) ClearSession(evseID, connectorID int) error {
	return s.modify(evseID, connectorID, func(state *redisState) { state.Session = session.Snapshot{} })
}

// modify is a plain read-modify-write of one connector key.
func (s *RedisStore) modify(evseID, connectorID int, fn func(state *redisState)) error {
	state, err := s.load(evseID, connectorID)
	if err != nil {
		return err
	}
	fn(&state)
	return s.save(evseID, connectorID, state)
}
