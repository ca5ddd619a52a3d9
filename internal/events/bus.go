package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Bus is the in-process fan-out pipe from the domain components to the
// gateway and any side consumers (NATS republisher, tests). Delivery to a
// subscriber never blocks a publisher; a subscriber that falls behind has
// events dropped with a warning, the same policy the gateway applies to slow
// websocket clients.
type Bus struct {
	mu   sync.RWMutex
	subs []chan GameEvent
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its event channel.
func (b *Bus) Subscribe(buffer int) <-chan GameEvent {
	ch := make(chan GameEvent, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(evt GameEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			log.Warn().
				Str("event_type", string(evt.Type)).
				Str("game_id", evt.GameID.String()).
				Msg("event bus subscriber full, dropping event")
		}
	}
}
