// Package ocpp16 connects the charge point to a central system speaking OCPP 1.6J.
package ocpp16

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	ocpp "github.com/lorenzodonini/ocpp-go/ocpp1.6"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/core"
	ocppfirmware "github.com/lorenzodonini/ocpp-go/ocpp1.6/firmware"
	"github.com/lorenzodonini/ocpp-go/ocpp1.6/types"

	"charge_point/chargepoint"
	"charge_point/common"
	"charge_point/configuration"
	"charge_point/firmware"
)

const Version = "1.6"

type Adapter struct {
	id     string
	client ocpp.ChargePoint
	log    *logrus.Entry
}

// New wraps client. A nil client is replaced by the default websocket client of ocpp-go.
func New(id string, client ocpp.ChargePoint, log *logrus.Entry) *Adapter {
	if client == nil {
		client = ocpp.NewChargePoint(id, nil, nil)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{id: id, client: client, log: log}
}

func (a *Adapter) logDefault(feature string) *logrus.Entry {
	return a.log.WithFields(logrus.Fields{"client": a.id, "message": feature})
}

func (a *Adapter) Version() string { return Version }

func (a *Adapter) Keys() configuration.Keys { return configuration.V16Keys }

func (a *Adapter) ExclusiveEVSE() bool { return false }

func (a *Adapter) StopSequence(reason common.StopReason) []common.ConnectorStatus {
	switch reason {
	case common.StopReasonLocal, common.StopReasonPowerLoss, common.StopReasonTimeLimitReached:
		return []common.ConnectorStatus{common.ConnectorStatusAvailable}
	case common.StopReasonRemote, common.StopReasonDeAuthorized, common.StopReasonUnlockCommand:
		return []common.ConnectorStatus{
			common.ConnectorStatusSuspendedEVSE,
			common.ConnectorStatusFinishing,
			common.ConnectorStatusAvailable,
		}
	case common.StopReasonEmergencyStop, common.StopReasonOther:
		return []common.ConnectorStatus{common.ConnectorStatusFinishing, common.ConnectorStatusFaulted}
	case common.StopReasonEVDisconnected:
		return []common.ConnectorStatus{
			common.ConnectorStatusSuspendedEV,
			common.ConnectorStatusFinishing,
			common.ConnectorStatusAvailable,
		}
	}
	return []common.ConnectorStatus{common.ConnectorStatusUnavailable}
}

// Start registers the handlers of every supported profile and connects to url.
func (a *Adapter) Start(url string, dispatcher chargepoint.Dispatcher) error {
	h := &handler{id: a.id, dispatcher: dispatcher, log: a.log}
	a.client.SetCoreHandler(h)
	a.client.SetLocalAuthListHandler(h)
	a.client.SetFirmwareManagementHandler(h)
	a.client.SetReservationHandler(h)
	a.client.SetRemoteTriggerHandler(h)

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

func (a *Adapter) BootNotification(model, vendor string) (chargepoint.BootResult, error) {
	if !a.client.IsConnected() {
		return chargepoint.BootResult{}, chargepoint.ErrNotConnected
	}
	confirmation, err := a.client.BootNotification(model, vendor)
	if err != nil {
		return chargepoint.BootResult{}, err
	}
	return chargepoint.BootResult{
		Accepted: confirmation.Status == core.RegistrationStatusAccepted,
		Interval: time.Duration(confirmation.Interval) * time.Second,
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
	confirmation, err := a.client.Authorize(tagID)
	if err != nil {
		return common.AuthorizationInfo{}, err
	}
	return authorizationInfo(confirmation.IdTagInfo), nil
}

func (a *Adapter) StartTransaction(req chargepoint.TransactionRequest) (chargepoint.TransactionResult, error) {
	if !a.client.IsConnected() {
		return chargepoint.TransactionResult{}, chargepoint.ErrNotConnected
	}
	confirmation, err := a.client.StartTransaction(req.Address.Number, req.TagID, req.MeterStart, types.NewDateTime(req.Timestamp))
	if err != nil {
		return chargepoint.TransactionResult{}, err
	}
	return chargepoint.TransactionResult{
		TransactionID: strconv.Itoa(confirmation.TransactionId),
		TagInfo:       authorizationInfo(confirmation.IdTagInfo),
	}, nil
}

func (a *Adapter) StopTransaction(req chargepoint.StopRequest) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	transactionID, err := strconv.Atoi(req.TransactionID)
	if err != nil {
		return fmt.Errorf("transaction id %q: %w", req.TransactionID, err)
	}
	_, err = a.client.StopTransaction(req.MeterStop, types.NewDateTime(req.Timestamp), transactionID,
		func(request *core.StopTransactionRequest) {
			request.IdTag = req.TagID
			request.Reason = stopReason(req.Reason)
		})
	return err
}

func (a *Adapter) MeterValues(req chargepoint.MeterRequest) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	values := []types.MeterValue{{
		Timestamp:    types.NewDateTime(req.Sample.Timestamp),
		SampledValue: sampledValues(req.Power, req.Sample.Value),
	}}
	_, err := a.client.MeterValues(req.Address.Number, values, func(request *core.MeterValuesRequest) {
		if transactionID, err := strconv.Atoi(req.TransactionID); err == nil {
			request.TransactionId = &transactionID
		}
	})
	return err
}

func (a *Adapter) StatusNotification(addr chargepoint.Address, status common.ConnectorStatus) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	errorCode := core.NoError
	if status == common.ConnectorStatusFaulted {
		errorCode = core.OtherError
	}
	_, err := a.client.StatusNotification(addr.Number, errorCode, core.ChargePointStatus(status),
		func(request *core.StatusNotificationRequest) {
			request.Timestamp = types.NewDateTime(time.Now())
		})
	return err
}

func (a *Adapter) FirmwareStatusNotification(status firmware.Status) error {
	if !a.client.IsConnected() {
		return chargepoint.ErrNotConnected
	}
	_, err := a.client.FirmwareStatusNotification(ocppfirmware.FirmwareStatus(status))
	return err
}
