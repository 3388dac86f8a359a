package events

import "sync"

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// SubscriberFunc adapts a function to a Subscriber that never closes.
// Funcs are not comparable, so register them with SubscribeGlobal or keep
// them for the life of the bus; Unsubscribe ignores them.
type SubscriberFunc func(Event)

func (f SubscriberFunc) Receive(ev Event) { f(ev) }
func (f SubscriberFunc) Closed() bool     { return false }

// Bus is a pub/sub event bus keyed by event type, with support for global
// subscribers. The importer emits; progress displays, loggers and tests
// subscribe.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	global      []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for one event type.
func (b *Bus) Subscribe(typ EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[typ] = append(b.subscribers[typ], sub)
}

// Unsubscribe removes a subscriber for one event type.
func (b *Bus) Unsubscribe(typ EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[typ]
	for i, s := range subs {
		if same(s, sub) {
			b.subscribers[typ] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[typ]) == 0 {
		delete(b.subscribers, typ)
	}
}

// SubscribeGlobal registers a subscriber that receives all events.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// Emit delivers an event to the subscribers of its type, then to all
// global subscribers. A nil Bus drops the event.
func (b *Bus) Emit(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := b.subscribers[ev.Type]
	globals := b.global
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// Subscribers returns the number of subscribers for an event type.
func (b *Bus) Subscribers(typ EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[typ])
}

// Cleanup removes closed subscribers from all lists.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for typ, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, typ)
		} else {
			b.subscribers[typ] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}

func same(a, b Subscriber) bool {
	if _, isFunc := a.(SubscriberFunc); isFunc {
		return false
	}
	return a == b
}
