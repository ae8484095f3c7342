// Package events fans run lifecycle events out to stream subscribers.
package events

import (
	"sync"
	"time"

	"github.com/conveyorci/conveyor/internal/types"
)

// subscriberBuffer bounds how far a slow consumer may lag before it
// starts dropping events.
const subscriberBuffer = 64

// Broker distributes run events to subscribers. Publishing never
// blocks: a subscriber that cannot keep up misses events rather than
// stalling the engine.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan types.RunEvent]struct{}
}

// NewBroker creates an event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan types.RunEvent]struct{})}
}

// Subscribe registers interest in one run's events. The returned cancel
// function must be called to release the subscription.
func (b *Broker) Subscribe(runID string) (<-chan types.RunEvent, func()) {
	ch := make(chan types.RunEvent, subscriberBuffer)

	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[chan types.RunEvent]struct{})
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[runID]; ok {
			if _, live := set[ch]; live {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, runID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its run.
func (b *Broker) Publish(event types.RunEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[event.RunID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// CloseRun closes all subscriptions for a finished run.
func (b *Broker) CloseRun(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[runID] {
		close(ch)
	}
	delete(b.subs, runID)
}
