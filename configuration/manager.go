// Package configuration manages the OCPP key/value configuration the central system can read and
// change.
package configuration

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"charge_point/common"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownKey   = errors.New("unknown configuration key")
	ErrReadOnly     = errors.New("configuration key is read-only")
	ErrInvalidValue = errors.New("invalid configuration value")
)

type Variable struct {
	Value    string `json:"value"`
	ReadOnly bool   `json:"readOnly"`
	// RebootRequired marks keys that only take effect after a restart.
	RebootRequired bool `json:"rebootRequired,omitempty"`
}

type document struct {
	Version       int                 `json:"version"`
	Configuration map[string]Variable `json:"configuration"`
}

type Manager struct {
	mu   sync.RWMutex
	path string
	doc  document
	log  *logrus.Entry
}

// Open loads the configuration file at path. Keys missing from the file are taken from defaults
// and the merged document is written back.
func Open(path string, defaults map[string]Variable, log *logrus.Entry) (*Manager, error) {
	m := &Manager{
		path: path,
		doc:  document{Version: 1, Configuration: make(map[string]Variable)},
		log:  log.WithField("message", "configuration"),
	}
	err := common.ReadJSONFile(path, &m.doc)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	if m.doc.Configuration == nil {
		m.doc.Configuration = make(map[string]Variable)
	}
	missing := err != nil
	for key, variable := range defaults {
		if _, ok := m.doc.Configuration[key]; !ok {
			m.doc.Configuration[key] = variable
			missing = true
		}
	}
	if missing {
		if err := common.WriteJSONFile(path, &m.doc); err != nil {
			m.log.Errorf("write %s: %v", path, err)
		}
	}
	return m, nil
}

// NewInMemory builds a manager that is never written to disk.
func NewInMemory(values map[string]Variable) *Manager {
	m := &Manager{
		doc: document{Version: 1, Configuration: make(map[string]Variable, len(values))},
		log: logrus.NewEntry(logrus.StandardLogger()),
	}
	for key, variable := range values {
		m.doc.Configuration[key] = variable
	}
	return m
}

func (m *Manager) Get(key string) (Variable, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	variable, ok := m.doc.Configuration[key]
	return variable, ok
}

func (m *Manager) Value(key string) string {
	variable, _ := m.Get(key)
	return variable.Value
}

func (m *Manager) Bool(key string) bool {
	value, err := strconv.ParseBool(m.Value(key))
	return err == nil && value
}

func (m *Manager) Int(key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(m.Value(key)))
	if err != nil {
		return fallback
	}
	return value
}

// Seconds reads an integer key holding seconds.
func (m *Manager) Seconds(key string, fallback time.Duration) time.Duration {
	value := m.Int(key, -1)
	if value < 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}

// Set changes a writable key. The new value must have the same kind (integer, boolean, text) as
// the current one.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	variable, ok := m.doc.Configuration[key]
	if !ok {
		return ErrUnknownKey
	}
	if variable.ReadOnly {
		return ErrReadOnly
	}
	if !sameKind(variable.Value, value) {
		return ErrInvalidValue
	}

	previous := variable
	variable.Value = value
	m.doc.Configuration[key] = variable
	if m.path == "" {
		return nil
	}
	if err := common.WriteJSONFile(m.path, &m.doc); err != nil {
		m.doc.Configuration[key] = previous
		return err
	}
	return nil
}

func sameKind(current, value string) bool {
	if _, err := strconv.Atoi(current); err == nil {
		_, err = strconv.Atoi(value)
		return err == nil
	}
	if _, err := strconv.ParseBool(current); err == nil {
		_, err = strconv.ParseBool(value)
		return err == nil
	}
	return true
}

// Values returns the requested keys, or all keys when none are given, sorted by key.
func (m *Manager) Values(keys []string) (values []common.ConfigurationValue, unknown []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(keys) == 0 {
		for key := range m.doc.Configuration {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	for _, key := range keys {
		variable, ok := m.doc.Configuration[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		values = append(values, common.ConfigurationValue{Key: key, Value: variable.Value, ReadOnly: variable.ReadOnly})
	}
	return values, unknown
}
