package mqtt

import "errors"

// Check these with errors.Is. Broker-side failures are wrapped, so the
// message carries the paho error as well.
var (
	// ErrOffline is returned for any operation while the broker link is down.
	ErrOffline = errors.New("mqtt: broker link down")

	// ErrBrokerUnreachable is returned by Connect when the first connection
	// does not complete within the connect timeout.
	ErrBrokerUnreachable = errors.New("mqtt: broker unreachable")

	ErrPublish     = errors.New("mqtt: publish failed")
	ErrSubscribe   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribe = errors.New("mqtt: unsubscribe failed")

	// ErrEmptyTopic and ErrBadQoS are argument errors, detected before
	// anything is sent.
	ErrEmptyTopic = errors.New("mqtt: empty topic")
	ErrBadQoS     = errors.New("mqtt: qos must be 0, 1 or 2")
)
