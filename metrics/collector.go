// Package metrics exposes the charge point connectors and session outcomes to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"charge_point/chargepoint"
	"charge_point/common"
)

// Collector implements prometheus.Collector over the connector states of a charge point and
// chargepoint.Observer for the session and authorization counters.
type Collector struct {
	states func() []chargepoint.ConnectorState

	connectorStatus *prometheus.Desc
	connectorPower  *prometheus.Desc
	sessionEnergy   *prometheus.Desc

	sessions       *prometheus.CounterVec
	authorizations *prometheus.CounterVec
}

func NewCollector(chargePointID string, states func() []chargepoint.ConnectorState) *Collector {
	constLabels := prometheus.Labels{"charge_point": chargePointID}
	return &Collector{
		states: states,
		connectorStatus: prometheus.NewDesc(
			"charge_point_connector_status",
			"Current status of a connector (always 1, the status is a label)",
			[]string{"evse", "connector", "status"},
			constLabels,
		),
		connectorPower: prometheus.NewDesc(
			"charge_point_connector_power_watts",
			"Average power drawn on a connector in watts",
			[]string{"evse", "connector"},
			constLabels,
		),
		sessionEnergy: prometheus.NewDesc(
			"charge_point_connector_session_energy_wh",
			"Energy delivered in the current or last session of a connector in watt-hours",
			[]string{"evse", "connector"},
			constLabels,
		),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "charge_point_sessions_total",
			Help:        "Charging requests by outcome",
			ConstLabels: constLabels,
		}, []string{"result"}),
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "charge_point_authorizations_total",
			Help:        "Authorization checks by source and result",
			ConstLabels: constLabels,
		}, []string{"source", "result"}),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connectorStatus
	ch <- c.connectorPower
	ch <- c.sessionEnergy
	c.sessions.Describe(ch)
	c.authorizations.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, state := range c.states() {
		evse, connector := strconv.Itoa(state.EvseID), strconv.Itoa(state.ConnectorID)
		ch <- prometheus.MustNewConstMetric(c.connectorStatus, prometheus.GaugeValue, 1, evse, connector, string(state.Status))
		ch <- prometheus.MustNewConstMetric(c.connectorPower, prometheus.GaugeValue, state.Power, evse, connector)
		ch <- prometheus.MustNewConstMetric(c.sessionEnergy, prometheus.GaugeValue, state.EnergyWh, evse, connector)
	}
	c.sessions.Collect(ch)
	c.authorizations.Collect(ch)
}

func (c *Collector) ChargingResult(response common.ChargingResponse) {
	c.sessions.WithLabelValues(string(response)).Inc()
}

func (c *Collector) AuthorizationChecked(source string, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	c.authorizations.WithLabelValues(source, result).Inc()
}
