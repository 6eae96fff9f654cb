// Package chargepoint drives the connectors of a charge point on behalf of the central system and
// of the local card reader.
package chargepoint

import (
	"errors"
	"sync"
	"time"

	"charge_point/auth"
	"charge_point/common"
	"charge_point/configuration"
	"charge_point/connector"
	"charge_point/firmware"
	"charge_point/hardware"
	"charge_point/notifier"
	"charge_point/scheduler"
	"charge_point/session"
	"charge_point/store"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCommandDelay = 3 * time.Second
	DefaultResetDelay   = 5 * time.Second
	DefaultReplyDelay   = 100 * time.Millisecond

	defaultInterval  = 60 * time.Second
	reauthorizeDelay = 3 * time.Second
	heartbeatJob     = "heartbeat"
)

type Options struct {
	ID       string
	Vendor   string
	Model    string
	Protocol Protocol

	Config    *configuration.Manager
	Cache     *auth.Cache
	Store     store.Store
	Scheduler *scheduler.Scheduler
	Indicator hardware.Indicator
	Observer  Observer
	Recorder  SessionRecorder
	Updater   firmware.Updater
	// Restart reboots the charge point after a Reset. Without it resets are rejected.
	Restart func(hard bool) error

	// CommandDelay is how long remote start, stop and unlock wait after being accepted.
	CommandDelay time.Duration
	ResetDelay   time.Duration
	// ReplyDelay postpones messages triggered from a command handler until its answer is sent.
	ReplyDelay time.Duration

	Log *logrus.Entry
}

type ChargePoint struct {
	id        string
	vendor    string
	model     string
	protocol  Protocol
	keys      configuration.Keys
	config    *configuration.Manager
	cache     *auth.Cache
	store     store.Store
	scheduler *scheduler.Scheduler
	indicator hardware.Indicator
	observer  Observer
	recorder  SessionRecorder
	updater   firmware.Updater
	restart   func(hard bool) error

	commandDelay time.Duration
	resetDelay   time.Duration
	replyDelay   time.Duration
	log          *logrus.Entry

	mu             sync.Mutex
	connectors     []*connector.Connector
	claims         map[string]*connector.Connector
	available      bool
	firmwareStatus firmware.Status

	notifications chan notifier.Notification
}

// ConnectorState is a point-in-time view of a connector.
type ConnectorState struct {
	EvseID        int                    `json:"evseId"`
	ConnectorID   int                    `json:"connectorId"`
	Type          string                 `json:"type"`
	Status        common.ConnectorStatus `json:"status"`
	TagID         string                 `json:"tagId,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`
	Power         float64                `json:"power"`
	EnergyWh      float64                `json:"energyWh"`
	Reserved      bool                   `json:"reserved"`
}

func New(opts Options) (*ChargePoint, error) {
	if opts.Protocol == nil || opts.Config == nil || opts.Store == nil || opts.Scheduler == nil {
		return nil, errors.New("protocol, configuration, store and scheduler are required")
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Indicator == nil {
		opts.Indicator = hardware.Indicators{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.CommandDelay <= 0 {
		opts.CommandDelay = DefaultCommandDelay
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = DefaultReplyDelay
	}

	keys := opts.Protocol.Keys()
	if opts.Cache != nil {
		opts.Cache.SetMaxSize(opts.Config.Int(keys.LocalAuthListMaxLength, 0))
	}

	return &ChargePoint{
		id:             opts.ID,
		vendor:         opts.Vendor,
		model:          opts.Model,
		protocol:       opts.Protocol,
		keys:           keys,
		config:         opts.Config,
		cache:          opts.Cache,
		store:          opts.Store,
		scheduler:      opts.Scheduler,
		indicator:      opts.Indicator,
		observer:       opts.Observer,
		recorder:       opts.Recorder,
		updater:        opts.Updater,
		restart:        opts.Restart,
		commandDelay:   opts.CommandDelay,
		resetDelay:     opts.ResetDelay,
		replyDelay:     opts.ReplyDelay,
		log:            opts.Log,
		claims:         make(map[string]*connector.Connector),
		available:      true,
		firmwareStatus: firmware.StatusIdle,
		notifications:  make(chan notifier.Notification, 64),
	}, nil
}

func (cp *ChargePoint) logDefault(feature string) *logrus.Entry {
	return cp.log.WithFields(logrus.Fields{"client": cp.id, "message": feature})
}

func (cp *ChargePoint) ID() string { return cp.id }

func (cp *ChargePoint) Protocol() Protocol { return cp.protocol }

// NotificationChannel carries the events of the charge point. Events are dropped when nobody reads.
func (cp *ChargePoint) NotificationChannel() chan notifier.Notification {
	return cp.notifications
}

func (cp *ChargePoint) notify(topic string, data interface{}) {
	select {
	case cp.notifications <- notifier.Notification{Topic: topic, Data: data}:
	default:
		cp.logDefault(topic).Debug("notification dropped")
	}
}

// AddConnector registers c. Connector ids of an EVSE must be contiguous from 1: a connector whose
// id is not one more than the highest registered id of its EVSE is not added.
func (cp *ChargePoint) AddConnector(c *connector.Connector) bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	highest := 0
	for _, existing := range cp.connectors {
		if existing.EvseID() == c.EvseID() && existing.ID() > highest {
			highest = existing.ID()
		}
	}
	if c.ID() != highest+1 {
		cp.log.Debugf("skipping connector %d of EVSE %d: expected id %d", c.ID(), c.EvseID(), highest+1)
		return false
	}

	c.SetHooks(connector.Hooks{
		StopTransaction: func(c *connector.Connector, reason common.StopReason) {
			cp.StopCharging(c, "", reason)
		},
		SendMeterValues: cp.sendMeterValues,
		ReservationExpired: func(c *connector.Connector) {
			cp.logDefault("ReserveNow").Infof("reservation on connector %d/%d expired", c.EvseID(), c.ID())
			cp.announce(c)
		},
	})
	cp.connectors = append(cp.connectors, c)
	return true
}

func (cp *ChargePoint) Connectors() []*connector.Connector {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return append([]*connector.Connector(nil), cp.connectors...)
}

func (cp *ChargePoint) ConnectorStates() []ConnectorState {
	var states []ConnectorState
	for _, c := range cp.Connectors() {
		_, reserved := c.Reservation()
		states = append(states, ConnectorState{
			EvseID:        c.EvseID(),
			ConnectorID:   c.ID(),
			Type:          c.Type(),
			Status:        c.Status(),
			TagID:         c.TagID(),
			TransactionID: c.TransactionID(),
			Power:         c.AveragePower(),
			EnergyWh:      c.EnergyEstimate(),
			Reserved:      reserved,
		})
	}
	return states
}

// FindConnector resolves a command address. An EVSE id of 0 addresses connectors by their
// position across the charge point.
func (cp *ChargePoint) FindConnector(evseID, connectorID int) *connector.Connector {
	if connectorID <= 0 {
		return nil
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if evseID == 0 {
		if connectorID > len(cp.connectors) {
			return nil
		}
		return cp.connectors[connectorID-1]
	}
	for _, c := range cp.connectors {
		if c.EvseID() == evseID && c.ID() == connectorID {
			return c
		}
	}
	return nil
}

// connectorsOf returns the connectors of an EVSE, or all of them for EVSE 0.
func (cp *ChargePoint) connectorsOf(evseID int) []*connector.Connector {
	var list []*connector.Connector
	for _, c := range cp.Connectors() {
		if evseID == 0 || c.EvseID() == evseID {
			list = append(list, c)
		}
	}
	return list
}

func (cp *ChargePoint) address(c *connector.Connector) Address {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	addr := Address{EvseID: c.EvseID(), ConnectorID: c.ID()}
	for i, existing := range cp.connectors {
		if existing == c {
			addr.Number = i + 1
			break
		}
	}
	return addr
}

func (cp *ChargePoint) connectorWithTag(tagID string) *connector.Connector {
	for _, c := range cp.Connectors() {
		if c.HasSession() && c.TagID() == tagID {
			return c
		}
	}
	return nil
}

func (cp *ChargePoint) connectorWithTransaction(transactionID string) *connector.Connector {
	if transactionID == "" {
		return nil
	}
	for _, c := range cp.Connectors() {
		if c.HasSession() && c.TransactionID() == transactionID {
			return c
		}
	}
	return nil
}

func (cp *ChargePoint) IsAvailable() bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.available
}

func (cp *ChargePoint) setAvailable(available bool) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.available = available
}

func (cp *ChargePoint) FirmwareStatus() firmware.Status {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.firmwareStatus
}

// claimTag reserves tagID for a start sequence on c. It fails when the tag already has a session
// or another start sequence in flight.
func (cp *ChargePoint) claimTag(tagID string, c *connector.Connector) bool {
	if cp.connectorWithTag(tagID) != nil {
		return false
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if _, claimed := cp.claims[tagID]; claimed {
		return false
	}
	cp.claims[tagID] = c
	return true
}

func (cp *ChargePoint) releaseTag(tagID string) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	delete(cp.claims, tagID)
}

func (cp *ChargePoint) meterSampleTime() time.Duration {
	return cp.config.Seconds(cp.keys.MeterValueSampleInterval, defaultInterval)
}

func (cp *ChargePoint) connectionTimeout() time.Duration {
	return cp.config.Seconds(cp.keys.ConnectionTimeOut, defaultInterval)
}

func (cp *ChargePoint) sendMeterValues(c *connector.Connector, sample session.MeterSample) {
	req := MeterRequest{
		Address:       cp.address(c),
		TransactionID: c.TransactionID(),
		Sample:        sample,
		Power:         c.AveragePower(),
	}
	if err := cp.protocol.MeterValues(req); err != nil {
		cp.logDefault("MeterValues").Errorf("error on request: %v", err)
	}
	cp.notify(notifier.TopicMeterValues, MeterEvent{
		ChargePointID: cp.id,
		EvseID:        req.Address.EvseID,
		ConnectorID:   req.Address.ConnectorID,
		TransactionID: req.TransactionID,
		Power:         req.Power,
		EnergyWh:      sample.Value,
		Timestamp:     sample.Timestamp,
	})
}
