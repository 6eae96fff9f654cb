package store

import (
	"fmt"
	"sync"

	"charge_point/common"
	"charge_point/session"
)

// FileStore keeps the document in memory and rewrites the whole file on every change.
type FileStore struct {
	mu   sync.RWMutex
	path string
	doc  Document
}

func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := common.ReadJSONFile(path, &s.doc); err != nil {
		return nil, fmt.Errorf("read connectors file: %w", err)
	}
	return s, nil
}

func (s *FileStore) Layout() []EVSERecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.clone()
}

func (s *FileStore) GetStatusAndSession(evseID, connectorID int) (common.ConnectorStatus, session.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, err := s.doc.find(evseID, connectorID)
	if err != nil {
		return "", session.Snapshot{}, err
	}
	return record.Status, record.Session, nil
}

func (s *FileStore) SetStatus(evseID, connectorID int, status common.ConnectorStatus) error {
	return s.modify(evseID, connectorID, func(record *ConnectorRecord) {
		record.Status = status
	})
}

func (s *FileStore) UpdateSession(evseID, connectorID int, update func(s *session.Snapshot)) error {
	return s.modify(evseID, connectorID, func(record *ConnectorRecord) {
		update(&record.Session)
	})
}

func (s *FileStore) ClearSession(evseID, connectorID int) error {
	return s.modify(evseID, connectorID, func(record *ConnectorRecord) {
		record.Session = session.Snapshot{}
	})
}

func (s *FileStore) modify(evseID, connectorID int, fn func(record *ConnectorRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.doc.find(evseID, connectorID)
	if err != nil {
		return err
	}
	fn(record)
	return common.WriteJSONFile(s.path, &s.doc)
}
