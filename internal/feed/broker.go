package feed

import (
	"log/slog"
	"sync"
)

const defaultBuffer = 64

// Broker fans events out to the subscribers of each city. Publish never
// blocks; a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	log    *slog.Logger
}

type subscriber struct {
	ch     chan Event
	closed bool
}

func NewBroker(logger *slog.Logger, buffer int) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   map[string]map[*subscriber]struct{}{},
		buffer: buffer,
		log:    logger,
	}
}

func (b *Broker) Subscribe(cityID string) *Subscription {
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	b.mu.Lock()
	if b.subs[cityID] == nil {
		b.subs[cityID] = map[*subscriber]struct{}{}
	}
	b.subs[cityID][sub] = struct{}{}
	b.mu.Unlock()
	return NewSubscription(sub.ch, func() { b.remove(cityID, sub) })
}

func (b *Broker) remove(cityID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[cityID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, cityID)
	}
	sub.closed = true
	close(sub.ch)
}

func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[ev.CityID] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.log.Warn("feed subscriber lagging, event dropped", "city_id", ev.CityID, "type", ev.Kind)
		}
	}
}

// Subscribers reports how many streams are open for cityID.
func (b *Broker) Subscribers(cityID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[cityID])
}

// Close ends every open subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for cityID, set := range b.subs {
		for sub := range set {
			sub.closed = true
			close(sub.ch)
		}
		delete(b.subs, cityID)
	}
}
