// Package mqtt mirrors the charge point indicators on an MQTT broker so a dashboard can follow the
// connectors remotely.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"charge_point/chargepoint"
	"charge_point/common"
	"charge_point/hardware"
	"charge_point/ratelimit"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
	colourOff      = "off"

	readingsRefresh = 10 * time.Second
	powerDelta      = 100
	energyDelta     = 50
)

type Indicator struct {
	client paho.Client
	prefix string
	log    *logrus.Entry

	mu         sync.Mutex
	published  map[string]string
	throttle   *ratelimit.Throttle
	connectors map[string]struct{}
}

// Connect dials the broker with a last will that marks the charge point offline.
func Connect(host string, port int, username, password, chargePointID string, log *logrus.Entry) (*Indicator, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	prefix := topicPrefix(chargePointID)
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(prefix)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetWill(prefix+"/availability", "offline", qos, true)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(client paho.Client, err error) {
		log.WithField("message", "mqtt").Warnf("connection lost: %v", err)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s:%d: %w", host, port, token.Error())
	}
	i := New(client, chargePointID, log)
	i.publish("availability", "online")
	return i, nil
}

func New(client paho.Client, chargePointID string, log *logrus.Entry) *Indicator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Indicator{
		client:     client,
		prefix:     topicPrefix(chargePointID),
		log:        log.WithField("message", "mqtt"),
		published:  map[string]string{},
		throttle:   ratelimit.NewThrottle(readingsRefresh),
		connectors: map[string]struct{}{},
	}
}

func topicPrefix(chargePointID string) string {
	return "charge_point_" + chargePointID
}

func connectorTopic(evseID, connectorID int) string {
	return fmt.Sprintf("evse_%d/connector_%d", evseID, connectorID)
}

// publish sends a retained payload below the charge point prefix.
func (i *Indicator) publish(field string, payload string) {
	topic := i.prefix + "/" + field
	token := i.client.Publish(topic, qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		i.log.Warnf("publish to %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		i.log.Errorf("publish to %s: %v", topic, err)
	}
}

// publishChanged publishes a field only when its payload differs from the last one sent.
func (i *Indicator) publishChanged(field, payload string) {
	i.mu.Lock()
	if i.published[field] == payload {
		i.mu.Unlock()
		return
	}
	i.published[field] = payload
	i.mu.Unlock()
	i.publish(field, payload)
}

func (i *Indicator) ShowStatus(evseID, connectorID int, status common.ConnectorStatus) {
	base := connectorTopic(evseID, connectorID)
	i.mu.Lock()
	i.connectors[base] = struct{}{}
	i.mu.Unlock()

	i.publishChanged(base+"/status", string(status))
	i.publishChanged(base+"/colour", hardware.Colour(status))
	// readings of a new status go out on the next cycle
	i.throttle.Forget(base + "/")
}

func (i *Indicator) ShowCardRead(tagID string) {
	i.publish("card_read", tagID)
}

func (i *Indicator) ShowResponse(connectorID int, response common.ChargingResponse) {
	bt, _ := json.Marshal(struct {
		Connector int                     `json:"connector"`
		Response  common.ChargingResponse `json:"response"`
		Success   bool                    `json:"success"`
	}{connectorID, response, response.Success()})
	i.publish("response", string(bt))
}

// Clear switches every known connector light off.
func (i *Indicator) Clear() {
	i.mu.Lock()
	bases := make([]string, 0, len(i.connectors))
	for base := range i.connectors {
		bases = append(bases, base)
	}
	i.mu.Unlock()
	for _, base := range bases {
		i.publishChanged(base+"/colour", colourOff)
	}
}

// PublishReadings sends the power and session energy of each connector, throttled per field.
func (i *Indicator) PublishReadings(states []chargepoint.ConnectorState) {
	for _, state := range states {
		base := connectorTopic(state.EvseID, state.ConnectorID)
		if field := base + "/power"; i.throttle.Allow(field, state.Power, powerDelta) {
			i.publishChanged(field, fmt.Sprintf("%.0f", state.Power))
		}
		if field := base + "/energy"; i.throttle.Allow(field, state.EnergyWh, energyDelta) {
			i.publishChanged(field, fmt.Sprintf("%.0f", state.EnergyWh))
		}
	}
}

// Run publishes readings from states every interval until ctx is done.
func (i *Indicator) Run(ctx context.Context, interval time.Duration, states func() []chargepoint.ConnectorState) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.PublishReadings(states())
		}
	}
}

// Close marks the charge point offline and disconnects.
func (i *Indicator) Close() {
	i.publish("availability", "offline")
	i.client.Disconnect(250)
}
