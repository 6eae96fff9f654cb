package notifier

// Notification is an event published by the charge point on the bus.
type Notification struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
}

const (
	TopicStatusNotification = "status.notification"
	TopicSessionStarted     = "session.started"
	TopicSessionStopped     = "session.stopped"
	TopicMeterValues        = "meter.values"
	TopicBootNotification   = "boot.notification"
	TopicFirmwareStatus     = "firmware.status"
)
