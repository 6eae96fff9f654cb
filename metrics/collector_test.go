package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charge_point/chargepoint"
	"charge_point/common"
)

func newCollector(states ...chargepoint.ConnectorState) *Collector {
	return NewCollector("CP-1", func() []chargepoint.ConnectorState { return states })
}

func TestCollectorDescribe(t *testing.T) {
	descCh := make(chan *prometheus.Desc, 10)
	go func() {
		newCollector().Describe(descCh)
		close(descCh)
	}()

	count := 0
	for range descCh {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestCollectorConnectors(t *testing.T) {
	collector := newCollector(
		chargepoint.ConnectorState{EvseID: 1, ConnectorID: 1, Status: common.ConnectorStatusCharging, Power: 3680, EnergyWh: 1250},
		chargepoint.ConnectorState{EvseID: 1, ConnectorID: 2, Status: common.ConnectorStatusAvailable},
	)

	expected := `
# HELP charge_point_connector_power_watts Average power drawn on a connector in watts
# TYPE charge_point_connector_power_watts gauge
charge_point_connector_power_watts{charge_point="CP-1",connector="1",evse="1"} 3680
charge_point_connector_power_watts{charge_point="CP-1",connector="2",evse="1"} 0
# HELP charge_point_connector_status Current status of a connector (always 1, the status is a label)
# TYPE charge_point_connector_status gauge
charge_point_connector_status{charge_point="CP-1",connector="1",evse="1",status="Charging"} 1
charge_point_connector_status{charge_point="CP-1",connector="2",evse="1",status="Available"} 1
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"charge_point_connector_power_watts", "charge_point_connector_status"))
	assert.Equal(t, 6, testutil.CollectAndCount(collector))
}

func TestCollectorCounters(t *testing.T) {
	collector := newCollector()

	collector.ChargingResult(common.StartChargingSuccess)
	collector.ChargingResult(common.StartChargingSuccess)
	collector.ChargingResult(common.UnauthorizedCard)
	collector.AuthorizationChecked("cache", true)
	collector.AuthorizationChecked("server", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.sessions.WithLabelValues("StartChargingSuccess")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.sessions.WithLabelValues("UnauthorizedCard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.authorizations.WithLabelValues("cache", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.authorizations.WithLabelValues("server", "rejected")))

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))
}
