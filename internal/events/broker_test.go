package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/internal/types"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	broker := NewBroker()
	ch, cancel := broker.Subscribe("run-1")
	defer cancel()

	broker.Publish(types.RunEvent{Type: types.EventRunStarted, RunID: "run-1"})

	event := <-ch
	assert.Equal(t, types.EventRunStarted, event.Type)
	assert.False(t, event.Timestamp.IsZero())
}

func TestBrokerIsolatesRuns(t *testing.T) {
	broker := NewBroker()
	ch, cancel := broker.Subscribe("run-1")
	defer cancel()

	broker.Publish(types.RunEvent{Type: types.EventRunStarted, RunID: "run-2"})

	select {
	case event := <-ch:
		t.Fatalf("unexpected event for other run: %v", event)
	default:
	}
}

func TestBrokerNonBlockingWhenSubscriberLags(t *testing.T) {
	broker := NewBroker()
	_, cancel := broker.Subscribe("run-1")
	defer cancel()

	// Far more events than the buffer holds; Publish must not block.
	for i := 0; i < subscriberBuffer*3; i++ {
		broker.Publish(types.RunEvent{Type: types.EventJobStarted, RunID: "run-1"})
	}
}

func TestBrokerCloseRunClosesChannels(t *testing.T) {
	broker := NewBroker()
	ch, cancel := broker.Subscribe("run-1")
	defer cancel()

	broker.CloseRun("run-1")

	_, open := <-ch
	assert.False(t, open)
}

func TestBrokerCancelIsIdempotentAfterClose(t *testing.T) {
	broker := NewBroker()
	_, cancel := broker.Subscribe("run-1")

	broker.CloseRun("run-1")
	require.NotPanics(t, func() { cancel() })
}
