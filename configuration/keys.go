package configuration

import "strconv"

// Keys names the configuration keys the charge point reads. Each protocol version has its own
// naming scheme.
type Keys struct {
	HeartbeatInterval                 string
	MeterValueSampleInterval          string
	ConnectionTimeOut                 string
	LocalPreAuthorize                 string
	AuthorizationCacheEnabled         string
	AuthorizeRemoteTx                 string
	StopTransactionOnEVSideDisconnect string
	LocalAuthListEnabled              string
	LocalAuthListMaxLength            string
}

var V16Keys = Keys{
	HeartbeatInterval:                 "HeartbeatInterval",
	MeterValueSampleInterval:          "MeterValueSampleInterval",
	ConnectionTimeOut:                 "ConnectionTimeOut",
	LocalPreAuthorize:                 "LocalPreAuthorize",
	AuthorizationCacheEnabled:         "AuthorizationCacheEnabled",
	AuthorizeRemoteTx:                 "AuthorizeRemoteTxRequests",
	StopTransactionOnEVSideDisconnect: "StopTransactionOnEVSideDisconnect",
	LocalAuthListEnabled:              "LocalAuthListEnabled",
	LocalAuthListMaxLength:            "LocalAuthListMaxLength",
}

// V201Keys are "<Controller>.<Variable>" names of the device model.
var V201Keys = Keys{
	HeartbeatInterval:                 "OCPPCommCtrlr.HeartbeatInterval",
	MeterValueSampleInterval:          "SampledDataCtrlr.TxUpdatedInterval",
	ConnectionTimeOut:                 "TxCtrlr.EVConnectionTimeOut",
	LocalPreAuthorize:                 "AuthCtrlr.LocalPreAuthorize",
	AuthorizationCacheEnabled:         "AuthCacheCtrlr.Enabled",
	AuthorizeRemoteTx:                 "AuthCtrlr.AuthorizeRemoteStart",
	StopTransactionOnEVSideDisconnect: "TxCtrlr.StopTxOnEVSideDisconnect",
	LocalAuthListEnabled:              "LocalAuthListCtrlr.Enabled",
	LocalAuthListMaxLength:            "AuthCacheCtrlr.Storage",
}

func rw(value string) Variable { return Variable{Value: value} }
func ro(value string) Variable { return Variable{Value: value, ReadOnly: true} }

// V16Defaults is the initial configuration of an OCPP 1.6 charge point.
func V16Defaults(numberOfConnectors int) map[string]Variable {
	return map[string]Variable{
		"AllowOfflineTxForUnknownId":        rw("false"),
		"AuthorizationCacheEnabled":         rw("true"),
		"AuthorizeRemoteTxRequests":         rw("true"),
		"ClockAlignedDataInterval":          rw("0"),
		"ConnectionTimeOut":                 rw("60"),
		"GetConfigurationMaxKeys":           ro("50"),
		"HeartbeatInterval":                 rw("60"),
		"LocalAuthListEnabled":              rw("true"),
		"LocalAuthListMaxLength":            ro("500"),
		"LocalAuthorizeOffline":             rw("true"),
		"LocalPreAuthorize":                 rw("false"),
		"MeterValueSampleInterval":          rw("60"),
		"MeterValuesAlignedData":            rw("Energy.Active.Import.Register"),
		"MeterValuesSampledData":            rw("Power.Active.Import,Energy.Active.Import.Register"),
		"NumberOfConnectors":                ro(strconv.Itoa(numberOfConnectors)),
		"ReserveConnectorZeroSupported":     ro("true"),
		"ResetRetries":                      rw("3"),
		"SendLocalListMaxLength":            ro("500"),
		"StopTransactionOnEVSideDisconnect": rw("true"),
		"StopTxnAlignedData":                rw(""),
		"SupportedFeatureProfiles":          ro("Core,LocalAuthListManagement,Reservation,RemoteTrigger,FirmwareManagement"),
		"TransactionMessageAttempts":        rw("3"),
		"TransactionMessageRetryInterval":   rw("60"),
		"UnlockConnectorOnEVSideDisconnect": rw("true"),
	}
}

// V201Defaults is the initial device model of an OCPP 2.0.1 charging station.
func V201Defaults() map[string]Variable {
	return map[string]Variable{
		"AuthCtrlr.AuthEnabled":                  rw("true"),
		"AuthCtrlr.AuthorizeRemoteStart":         rw("true"),
		"AuthCtrlr.LocalAuthorizeOffline":        rw("true"),
		"AuthCtrlr.LocalPreAuthorize":            rw("false"),
		"AuthCtrlr.OfflineTxForUnknownIdEnabled": rw("false"),
		"AuthCacheCtrlr.Enabled":                 rw("true"),
		"AuthCacheCtrlr.Storage":                 ro("500"),
		"LocalAuthListCtrlr.Enabled":             rw("true"),
		"LocalAuthListCtrlr.ItemsPerMessage":     ro("500"),
		"OCPPCommCtrlr.HeartbeatInterval":        rw("60"),
		"OCPPCommCtrlr.MessageAttempts":          rw("3"),
		"OCPPCommCtrlr.ResetRetries":             rw("3"),
		"OCPPCommCtrlr.UnlockOnEVSideDisconnect": rw("true"),
		"SampledDataCtrlr.Enabled":               rw("true"),
		"SampledDataCtrlr.TxEndedMeasurands":     rw("Energy.Active.Import.Register"),
		"SampledDataCtrlr.TxUpdatedInterval":     rw("60"),
		"SampledDataCtrlr.TxUpdatedMeasurands":   rw("Power.Active.Import,Energy.Active.Import.Register"),
		"TxCtrlr.EVConnectionTimeOut":            rw("60"),
		"TxCtrlr.StopTxOnEVSideDisconnect":       rw("true"),
		"TxCtrlr.StopTxOnInvalidId":              rw("true"),
		"TxCtrlr.TxStartPoint":                   rw("Authorized"),
		"TxCtrlr.TxStopPoint":                    rw("EVConnected,Authorized"),
	}
}
