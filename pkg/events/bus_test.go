package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arnaud58/LlamaKeeper/pkg/events"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := events.NewBus()

	var received []events.Event
	bus.Subscribe(events.MemoryStored, func(e events.Event) {
		received = append(received, e)
	})

	event := events.NewEvent(events.MemoryStored, map[string]interface{}{"memory_id": int64(7)}, "test")
	bus.Publish(event)

	require.Len(t, received, 1)
	assert.Equal(t, events.MemoryStored, received[0].Type)
	assert.Equal(t, int64(7), received[0].Payload["memory_id"])
	assert.Equal(t, "test", received[0].Source)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestPublishSkipsOtherTypes(t *testing.T) {
	bus := events.NewBus()

	var count int
	bus.Subscribe(events.MemoryForgotten, func(events.Event) { count++ })

	bus.Publish(events.NewEvent(events.MemoryStored, nil, "test"))
	assert.Zero(t, count)
}

func TestUnsubscribe(t *testing.T) {
	bus := events.NewBus()

	var count int
	cancel := bus.Subscribe(events.MemoryStored, func(events.Event) { count++ })

	bus.Publish(events.NewEvent(events.MemoryStored, nil, "test"))
	cancel()
	bus.Publish(events.NewEvent(events.MemoryStored, nil, "test"))

	assert.Equal(t, 1, count)
	assert.Zero(t, bus.SubscriberCount(events.MemoryStored))
}

func TestSubscribeAll(t *testing.T) {
	bus := events.NewBus()

	var types []events.EventType
	cancel := bus.SubscribeAll(func(e events.Event) {
		types = append(types, e.Type)
	})
	defer cancel()

	bus.Publish(events.NewEvent(events.MemoryStored, nil, "test"))
	bus.Publish(events.NewEvent(events.ActionGenerated, nil, "test"))

	assert.Equal(t, []events.EventType{events.MemoryStored, events.ActionGenerated}, types)
}

func TestNewEventNilPayload(t *testing.T) {
	event := events.NewEvent(events.MemoryStored, nil, "test")
	assert.NotNil(t, event.Payload)
}

func TestMultipleSubscribers(t *testing.T) {
	bus := events.NewBus()

	var a, b int
	bus.Subscribe(events.MemoryStored, func(events.Event) { a++ })
	bus.Subscribe(events.MemoryStored, func(events.Event) { b++ })

	bus.Publish(events.NewEvent(events.MemoryStored, nil, "test"))

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, bus.SubscriberCount(events.MemoryStored))
}
