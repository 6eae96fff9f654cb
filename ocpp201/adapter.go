// Package ocpp201 connects the charge point to a CSMS speaking OCPP 2.0.1.
package ocpp201

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	ocpp2 "github.com/lorenzodonini/ocpp-go/ocpp2.0.1"
	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp2.0.1/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/provisioning"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/transactions"
	"github.com/lorenzodonini/ocpp-go/ocpp2.0.1/types"

	"charge_point/chargepoint"
	"charge_point/common"
	"charge_point/configuration"
	"charge_point/firmware"
)

const Version = "2.0.1"

type Adapter struct {
	id     string
	client ocpp2.ChargingStation
	log    *logrus.Entry

	mu                sync.Mutex
	sequence          map[string]int
	sequencePath      string
	firmwareRequestID *int
}

// New wraps client. A nil client is replaced by the default websocket client of ocpp-go.
func New(id string, client ocpp2.ChargingStation, log *logrus.Entry) *Adapter {
	if client == nil {
		client = ocpp2.NewChargingStation(id, nil, nil)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{id: id, client: client, log: log, sequence: map[string]int{}}
}

func (a *Adapter) logDefault(feature string) *logrus.Entry {
	return a.log.WithFields(logrus.Fields{"client": a.id, "message": feature})
}

func (a *Adapter) Version() string { return Version }

func (a *Adapter) Keys() configuration.Keys { return configuration.V201Keys }

func (a *Adapter) ExclusiveEVSE() bool { return true }

func (a *Adapter) StopSequence(reason common.StopReason) []common.ConnectorStatus {
	switch reason {
	case common.StopReasonLocal, common.StopReasonPowerLoss, common.StopReasonRemote, common.StopReasonDeAuthorized,
		common.StopReasonEVDisconnected, common.StopReasonTimeLimitReached, common.StopReasonUnlockCommand:
		return []common.ConnectorStatus{common.ConnectorStatusAvailable}
	case common.StopReasonEmergencyStop, common.StopReasonOther:
		return []common.ConnectorStatus{common.ConnectorStatusFaulted}
	}
	return []common.ConnectorStatus{common.ConnectorStatusUnavailable}
}

func (a *Adapter) Start(url string, dispatcher chargepoint.Dispatcher) error {
	h := &handler{id: a.id, dispatcher: dispatcher, adapter: a, log: a.log}
	a.client.SetProvisioningHandler(h)
	a.client.SetAuthorizationHandler(h)
	a.client.SetAvailabilityHandler(h)
	a.client.SetRemoteControlHandler(h)
	a.client.SetReservationHandler(h)
	a.client.SetLocalAuthListHandler(h)
	a.client.SetFirmwareHandler(h)
	a.client.SetDataHandler(h)

	a.logDefault("Start").Infof("connecting to %v", url)
	if err := a.client.Start(url); err != nil {
		return fmt.Errorf("connect to %v: %w", url, err)
	}
	return nil
}

func (a *Adapter) Stop() {
	a.client.Stop()
}

func (a *Adapter) IsConnected() bool {
	return a.client.IsConnected()
}

// PersistSequences keeps the sequence numbers of open transactions in the file at path, so a
// transaction resumed or closed after a restart continues its numbering.
func (a *Adapter) PersistSequences(path string) {
	sequence := map[string]int{}
	err := common.ReadJSONFile(path, &sequence)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logDefault("TransactionEvent").Errorf("unreadable sequence file %v, starting empty: %v", path, err)
		sequence = map[string]int{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for transactionID, seqNo := range sequence {
		if seqNo > a.sequence[transactionID] {
			a.sequence[transactionID] = seqNo
		}
	}
	a.sequencePath = path
}

func (a *Adapter) saveSequenceLocked() {
	if a.sequencePath == "" {
		return
	}
	if err := common.WriteJSONFile(a.sequencePath, a.sequence); err != nil {
		a.logDefault("TransactionEvent").Errorf("persist sequence numbers: %v", err)
	}
}

// nextSequence returns the sequence number of the next event of a transaction.
func (a *Adapter) nextSequence(transactionID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	seqNo := a.sequence[transactionID]
	a.sequence[transactionID] = seqNo + 1
	a.saveSequenceLocked()
	return seqNo
}

func (a *Adapter) endSequence(transactionID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	seqNo := a.sequence[transactionID]
	delete(a.sequence, transactionID)
	a.saveSequenceLocked()
	return seqNo
}

func (a *Adapter) setFirmwareRequest(requestID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.firmwareRequestID = &requestID
}

func (a *Adapter) BootNotification(model, vendor string) (chargepoint.BootResult, error) {
	if !a.client.IsConnected() {
		return chargepoint.BootResult{}, chargepoint.ErrNotConnected
	}
	response, err := a.client.BootNotification(provisioning.BootReasonPowerUp, model, vendor)
	if err != nil {
		return chargepoint.BootResult{}, err
	}
	return chargepoint.BootResult{
		Accepted: response.Status == provisioning.RegistrationStatusAccepted,
		Interval: time.Duration(response.Interval) * time.Second,
	}, nil
}

func (a *Adapter) Heartbeat() error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	_, err := a.client.Heartbeat()
	return err
}

func (a *Adapter) Authorize(tagID string) (common.AuthorizationInfo, error) {
	if !a.client.IsConnected() {
		return common.AuthorizationInfo{}, chargepoint.ErrNotConnected
	}
	response, err := a.client.Authorize(tagID, types.IdTokenTypeISO14443)
	if err != nil {
		return common.AuthorizationInfo{}, err
	}
	return authorizationInfo(&response.IdTokenInfo), nil
}

// StartTransaction opens a transaction with a locally generated id. The CSMS answers with the
// verdict on the token only when it has one; no verdict means the token stays accepted.
func (a *Adapter) StartTransaction(req chargepoint.TransactionRequest) (chargepoint.TransactionResult, error) {
	if !a.client.IsConnected() {
		return chargepoint.TransactionResult{}, chargepoint.ErrNotConnected
	}
	transactionID := uuid.NewString()
	trigger := transactions.TriggerReasonAuthorized
	if req.Remote {
		trigger = transactions.TriggerReasonRemoteStart
	}
	info := transactions.Transaction{TransactionID: transactionID, ChargingState: transactions.ChargingStateCharging}
	response, err := a.client.TransactionEvent(transactions.TransactionEventStarted, types.NewDateTime(req.Timestamp), trigger,
		a.nextSequence(transactionID), info, func(request *transactions.TransactionEventRequest) {
			request.IDToken = &types.IdToken{IdToken: req.TagID, Type: types.IdTokenTypeISO14443}
			request.Evse = evse(req.Address)
			request.MeterValue = []types.MeterValue{energyValue(req.Timestamp, float64(req.MeterStart), types.ReadingContextTransactionBegin)}
		})
	if err != nil {
		a.endSequence(transactionID)
		return chargepoint.TransactionResult{}, err
	}
	result := chargepoint.TransactionResult{
		TransactionID: transactionID,
		TagInfo:       common.AuthorizationInfo{Status: common.AuthorizationAccepted},
	}
	if response.IDTokenInfo != nil {
		result.TagInfo = authorizationInfo(response.IDTokenInfo)
	}
	return result, nil
}

func (a *Adapter) StopTransaction(req chargepoint.StopRequest) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	info := transactions.Transaction{
		TransactionID: req.TransactionID,
		ChargingState: transactions.ChargingStateIdle,
		StoppedReason: stoppedReason(req.Reason),
	}
	_, err := a.client.TransactionEvent(transactions.TransactionEventEnded, types.NewDateTime(req.Timestamp), triggerReason(req.Reason),
		a.endSequence(req.TransactionID), info, func(request *transactions.TransactionEventRequest) {
			if req.TagID != "" {
				request.IDToken = &types.IdToken{IdToken: req.TagID, Type: types.IdTokenTypeISO14443}
			}
			request.Evse = evse(req.Address)
			request.MeterValue = []types.MeterValue{energyValue(req.Timestamp, float64(req.MeterStop), types.ReadingContextTransactionEnd)}
		})
	return err
}

func (a *Adapter) MeterValues(req chargepoint.MeterRequest) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	info := transactions.Transaction{TransactionID: req.TransactionID, ChargingState: transactions.ChargingStateCharging}
	_, err := a.client.TransactionEvent(transactions.TransactionEventUpdated, types.NewDateTime(req.Sample.Timestamp),
		transactions.TriggerReasonMeterValuePeriodic, a.nextSequence(req.TransactionID), info,
		func(request *transactions.TransactionEventRequest) {
			request.Evse = evse(req.Address)
			request.MeterValue = []types.MeterValue{sampledValues(req.Sample.Timestamp, req.Power, req.Sample.Value)}
		})
	return err
}

func (a *Adapter) StatusNotification(addr chargepoint.Address, status common.ConnectorStatus) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	_, err := a.client.StatusNotification(types.NewDateTime(time.Now()), connectorStatus(status), addr.EvseID, addr.ConnectorID)
	return err
}

func (a *Adapter) FirmwareStatusNotification(status firmware.Status) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	a.mu.Lock()
	requestID := a.firmwareRequestID
	a.mu.Unlock()
	_, err := a.client.FirmwareStatusNotification(ocppfirmware.FirmwareStatus(status),
		func(request *ocppfirmware.FirmwareStatusNotificationRequest) {
			request.RequestID = requestID
		})
	return err
}
