// Package events provides the in-process publish/subscribe channel every
// state change flows through. Delivery is synchronous and ordered per
// topic; there is no buffering, so a subscriber only sees events published
// after it joined and must fetch current state separately.
package events

import "sync"

// Handler receives a published payload. The payload type is fixed per
// topic (see topics.go).
type Handler func(payload interface{})

type subscriber struct {
	topic   Topic
	handler Handler
}

type topicState struct {
	// deliverMu serializes deliveries so publish order is preserved per
	// topic even when publishers run on different goroutines.
	deliverMu sync.Mutex
	subs      []*subscriber
}

// Channel is a named-topic pub/sub primitive. The zero value is not usable;
// construct with NewChannel.
type Channel struct {
	mu     sync.Mutex
	topics map[Topic]*topicState
}

func NewChannel() *Channel {
	return &Channel{topics: make(map[Topic]*topicState)}
}

func (c *Channel) topic(t Topic) *topicState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.topics[t]
	if !ok {
		ts = &topicState{}
		c.topics[t] = ts
	}
	return ts
}

// Subscribe registers handler on topic and returns a detach func. The
// handler never receives an event whose publish was already in flight when
// Subscribe returned.
func (c *Channel) Subscribe(topic Topic, handler Handler) func() {
	ts := c.topic(topic)
	sub := &subscriber{topic: topic, handler: handler}

	c.mu.Lock()
	ts.subs = append(ts.subs, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range ts.subs {
				if s == sub {
					ts.subs = append(ts.subs[:i], ts.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers payload synchronously to every subscriber registered on
// topic at the time of the call. Subscribers added during delivery do not
// receive the in-flight event. Delivery holds the topic's ordering lock for
// its full duration, so a handler must not publish to the same topic from
// inside its own invocation; hand the event to a goroutine instead.
func (c *Channel) Publish(topic Topic, payload interface{}) {
	ts := c.topic(topic)

	ts.deliverMu.Lock()
	defer ts.deliverMu.Unlock()

	c.mu.Lock()
	snapshot := make([]*subscriber, len(ts.subs))
	copy(snapshot, ts.subs)
	c.mu.Unlock()

	for _, sub := range snapshot {
		sub.handler(payload)
	}
}
