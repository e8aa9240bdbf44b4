package mqtt

import (
	"fmt"
	"sync"
)

type subscription struct {
	qos     byte
	handler MessageHandler
}

// subscriptions remembers what the service subscribed to, keyed by topic
// filter, so it can be replayed after a reconnect. The broker forgets
// everything because sessions are clean.
type subscriptions struct {
	mu      sync.RWMutex
	byTopic map[string]subscription
}

func (s *subscriptions) put(topic string, sub subscription) {
	s.mu.Lock()
	s.byTopic[topic] = sub
	s.mu.Unlock()
}

func (s *subscriptions) drop(topic string) {
	s.mu.Lock()
	delete(s.byTopic, topic)
	s.mu.Unlock()
}

func (s *subscriptions) has(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byTopic[topic]
	return ok
}

func (s *subscriptions) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byTopic)
}

// restore re-subscribes every tracked filter without waiting. Failures show
// up as a lost connection.
func (s *subscriptions) restore(c *Client) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for topic, sub := range s.byTopic {
		c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Subscribe routes messages matching topic to handler. Wildcards are
// allowed, e.g. Topics{}.AllCommands(). The subscription survives
// reconnects until Unsubscribe.
//
// Returns:
//   - error: ErrEmptyTopic, ErrBadQoS or ErrOffline before anything is
//     sent; a wrapped ErrSubscribe if the broker rejects or times out
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkArgs(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribe, topic)
	}
	if !c.IsConnected() {
		return ErrOffline
	}

	c.subs.put(topic, subscription{qos: qos, handler: handler})
	if err := await(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribe, defaultPublishTimeout); err != nil {
		c.subs.drop(topic)
		return err
	}
	return nil
}

// Unsubscribe stops delivery for topic. A message already in flight may
// still reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if err := checkArgs(topic, 0); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrOffline
	}

	c.subs.drop(topic)
	return await(c.client.Unsubscribe(topic), ErrUnsubscribe, defaultPublishTimeout)
}

// SubscriptionCount returns the number of tracked topic filters.
func (c *Client) SubscriptionCount() int {
	return c.subs.len()
}

// HasSubscription reports whether exactly this topic filter is tracked.
func (c *Client) HasSubscription(topic string) bool {
	return c.subs.has(topic)
}
