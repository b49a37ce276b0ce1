package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishSync(t *testing.T) {
	b := NewEventBus()
	var n atomic.Int32
	b.Subscribe(EventTypeMoodChanged, func(e Event) {
		assert.Equal(t, "happy", e.Data["mood"])
		n.Add(1)
	})
	b.Subscribe(EventTypeMoodChanged, func(Event) { n.Add(1) })
	b.Subscribe(EventTypeLidChanged, func(Event) { n.Add(100) })

	b.PublishSync(Event{Type: EventTypeMoodChanged, Data: map[string]any{"mood": "happy"}})
	assert.Equal(t, int32(2), n.Load())
}

func TestPublish_Async(t *testing.T) {
	b := NewEventBus()
	var wg sync.WaitGroup
	wg.Add(2)
	b.SubscribeMultiple([]EventType{EventTypePlayerStarted, EventTypePlayerStopped}, func(Event) { wg.Done() })

	b.Publish(Event{Type: EventTypePlayerStarted})
	b.Publish(Event{Type: EventTypePlayerStopped})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers not called")
	}
}

func TestClear(t *testing.T) {
	b := NewEventBus()
	called := false
	b.Subscribe(EventTypeConfigReloaded, func(Event) { called = true })
	b.Clear()
	b.PublishSync(Event{Type: EventTypeConfigReloaded})
	assert.False(t, called)
}

func TestNilBus(t *testing.T) {
	var b *EventBus
	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventTypeFrameDropped})
		b.PublishSync(Event{Type: EventTypeFrameDropped})
	})
}
