package mqtt

import (
	"fmt"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const maxQoS = 2

// Publish sends payload to topic and waits for the broker to acknowledge
// it. Wildcards are not allowed in topic.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, false); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return waitAck(c.paho.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// Subscribe routes messages matching filter to handler. The subscription
// is restored after every reconnect until Unsubscribe.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := checkTopic(filter, true); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := waitAck(c.paho.Subscribe(filter, qos, c.dispatch(handler)), ErrSubscribeFailed); err != nil {
		return err
	}
	c.mu.Lock()
	c.subs[filter] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe drops filter. It is forgotten even when the broker cannot be
// told, so a later reconnect does not restore it.
func (c *Client) Unsubscribe(filter string) error {
	if err := checkTopic(filter, true); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.subs, filter)
	c.mu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return waitAck(c.paho.Unsubscribe(filter), ErrSubscribeFailed)
}

// dispatch adapts handler to paho, logging its errors and panics.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("MQTT handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT message rejected", "topic", msg.Topic(), "error", err)
		}
	}
}

func waitAck(tok pahomqtt.Token, kind error) error {
	if !tok.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: no acknowledgement within %v", kind, ackTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}

// checkTopic rejects empty topics, and wildcards unless filter is set.
func checkTopic(topic string, filter bool) error {
	if topic == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	}
	if !filter && strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	}
	return nil
}
