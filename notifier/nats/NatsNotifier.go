package notifier

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"charge_point/common"
	"charge_point/notifier"
)

const requestSubject = "request"

type Function func(string, []byte, chan common.Response)

type natsNotifier struct {
	url           string
	chargePointID string
	notification  <-chan notifier.Notification // events published by the charge point
	connection    *nats.Conn
	publish       func(subject string, data []byte) error
	handlers      map[string]Function
	timeout       time.Duration
	validator     *validator.Validate
	log           *log.Entry
	done          chan struct{}
	wg            sync.WaitGroup
}

func (n *natsNotifier) SetTimeout(timeout time.Duration) {
	n.timeout = timeout
}

func (n *natsNotifier) Timeout() time.Duration {
	return n.timeout
}

func (n *natsNotifier) AddHandler(action string, fn Function) {
	n.handlers[action] = fn
}

func (n *natsNotifier) SetChannel(notification <-chan notifier.Notification) {
	n.notification = notification
}

// forward publishes every notification until the channel closes or the notifier stops.
func (n *natsNotifier) forward() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case notification, ok := <-n.notification:
			if !ok {
				return
			}
			bt, err := json.Marshal(notification.Data)
			if err != nil {
				n.log.WithField("topic", notification.Topic).Error(err)
				continue
			}
			if err := n.publish(notification.Topic, bt); err != nil {
				n.log.WithField("topic", notification.Topic).Errorf("publish failed: %v", err)
			}
		}
	}
}

func errorResponse(code, message string) []byte {
	bt, _ := json.Marshal(common.Response{Err: &common.Error{Code: code, Message: message}})
	return bt
}

// handle runs the command in data through its handler and returns the encoded reply.
func (n *natsNotifier) handle(data []byte) []byte {
	n.log.Debugf("RequestHandler, %v", string(data))

	var command common.Command
	if err := json.Unmarshal(data, &command); err != nil {
		return errorResponse("command.format.not.valid", "the command is not valid JSON")
	}
	if err := n.validator.Struct(&command); err != nil {
		return errorResponse("command.format.not.valid", err.Error())
	}
	if command.ChargePointId != n.chargePointID {
		return errorResponse("command.charge.point.unknown", fmt.Sprintf("this is charge point %q", n.chargePointID))
	}

	fn, exists := n.handlers[command.Action]
	if !exists {
		return errorResponse("command.action.not.found", fmt.Sprintf("no action %q", command.Action))
	}

	payload, _ := json.Marshal(command.Payload)
	// buffered so a late handler never blocks after the timeout
	responseChannel := make(chan common.Response, 1)
	go fn(command.ChargePointId, payload, responseChannel)

	select {
	case response := <-responseChannel:
		bt, err := json.Marshal(response)
		if err != nil {
			return errorResponse("response.format.not.valid", err.Error())
		}
		n.log.Debugf("RequestHandler => Response, %v", string(bt))
		return bt
	case <-time.After(n.timeout):
		n.log.WithField("action", command.Action).Warn("request timed out")
		return errorResponse("request.timeout", "the request timed out")
	}
}

func (n *natsNotifier) requestHandler() error {
	_, err := n.connection.Subscribe(requestSubject, func(m *nats.Msg) {
		if err := m.Respond(n.handle(m.Data)); err != nil {
			n.log.Errorf("reply failed: %v", err)
		}
	})
	return err
}

// Start connects to the NATS server and begins serving requests and publishing notifications.
func (n *natsNotifier) Start() error {
	nc, err := nats.Connect(n.url, nats.Name(n.chargePointID), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("connect to nats at %v: %w", n.url, err)
	}
	n.connection = nc
	n.publish = nc.Publish
	if err := n.requestHandler(); err != nil {
		nc.Close()
		return fmt.Errorf("subscribe to %v: %w", requestSubject, err)
	}
	n.run()
	return nil
}

func (n *natsNotifier) run() {
	if n.notification == nil {
		return
	}
	n.wg.Add(1)
	go n.forward()
}

func (n *natsNotifier) Stop() {
	close(n.done)
	n.wg.Wait()
	if n.connection != nil {
		n.connection.Close()
		n.log.Info("NatsStopped")
	}
}

func New(url, chargePointID string, logger *log.Entry) *natsNotifier {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &natsNotifier{
		url:           url,
		chargePointID: chargePointID,
		handlers:      make(map[string]Function),
		timeout:       30 * time.Second,
		validator:     validator.New(),
		log:           logger.WithField("component", "nats"),
		done:          make(chan struct{}),
	}
}
