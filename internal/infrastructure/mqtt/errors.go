package mqtt

import "errors"

// Errors returned by the MQTT client. Match with errors.Is.
var (
	// ErrNotConnected means the broker connection is down, either before the
	// first connect, after Close, or while paho is reconnecting.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed is returned by Connect.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed wraps a publish the broker did not acknowledge.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a subscribe or unsubscribe the broker did not
	// acknowledge.
	ErrSubscribeFailed = errors.New("mqtt: subscription change failed")

	// ErrInvalidTopic is returned for an empty topic, or a wildcard where a
	// concrete topic is required.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidCommand is returned for command payloads that cannot be
	// parsed or name an unknown action.
	ErrInvalidCommand = errors.New("mqtt: invalid command")
)
