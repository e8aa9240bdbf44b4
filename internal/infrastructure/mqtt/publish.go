package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize matches the 1MB default message limit of common brokers.
const maxPayloadSize = 1 << 20

func checkArgs(topic string, qos byte) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: got %d", ErrBadQoS, qos)
	}
	return nil
}

// await blocks on a paho token and wraps a timeout or broker error in op.
func await(token pahomqtt.Token, op error, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: no acknowledgement within %v", op, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}

// Publish sends payload to topic and waits for the broker's acknowledgement
// (for QoS 1 and 2).
//
// Retain state and status topics so late subscribers see the latest value;
// never retain events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkArgs(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload for %s exceeds %d", ErrPublish, len(payload), topic, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrOffline
	}

	return await(c.client.Publish(topic, qos, retained, payload), ErrPublish, defaultPublishTimeout)
}

// PublishJSON encodes v as JSON and publishes it at the default QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublish, topic, err)
	}
	return c.Publish(topic, payload, c.QoS(), retained)
}
