package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	ch := NewChannel()

	var got []int
	ch.Subscribe("test.topic", func(payload interface{}) {
		got = append(got, payload.(int))
	})

	for i := 0; i < 10; i++ {
		ch.Publish("test.topic", i)
	}

	require.Len(t, got, 10)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	ch := NewChannel()

	var a, b int
	ch.Subscribe("test.topic", func(interface{}) { a++ })
	ch.Subscribe("test.topic", func(interface{}) { b++ })

	ch.Publish("test.topic", "payload")

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestSubscriberMissesEarlierEvents(t *testing.T) {
	ch := NewChannel()

	ch.Publish("test.topic", "before")

	var got []interface{}
	ch.Subscribe("test.topic", func(payload interface{}) {
		got = append(got, payload)
	})

	ch.Publish("test.topic", "after")

	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0])
}

func TestTopicsAreIsolated(t *testing.T) {
	ch := NewChannel()

	var got int
	ch.Subscribe("topic.a", func(interface{}) { got++ })

	ch.Publish("topic.b", "payload")

	assert.Zero(t, got)
}

func TestDetachStopsDelivery(t *testing.T) {
	ch := NewChannel()

	var got int
	detach := ch.Subscribe("test.topic", func(interface{}) { got++ })

	ch.Publish("test.topic", 1)
	detach()
	ch.Publish("test.topic", 2)

	assert.Equal(t, 1, got)
}

func TestDetachIsIdempotent(t *testing.T) {
	ch := NewChannel()

	var survivor int
	detach := ch.Subscribe("test.topic", func(interface{}) {})
	ch.Subscribe("test.topic", func(interface{}) { survivor++ })

	detach()
	detach()
	ch.Publish("test.topic", "payload")

	assert.Equal(t, 1, survivor)
}

func TestConcurrentPublishDeliversEverything(t *testing.T) {
	ch := NewChannel()

	const publishers = 8
	const perPublisher = 50

	var mu sync.Mutex
	var got int
	ch.Subscribe("test.topic", func(interface{}) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				ch.Publish("test.topic", i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, publishers*perPublisher, got)
}
