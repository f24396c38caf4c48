package eventbus

import "sync"

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation. Subscribers are keyed so that
// Unsubscribe does not scan, and delivery is non-blocking: a slow subscriber
// loses events rather than stalling a scheduling run.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	ids    map[<-chan Event]int
	closed bool
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event), ids: make(map[<-chan Event]int)}
}

// Publish sends the event to all subscribers. Delivery is non-blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.nextID++
	b.subs[b.nextID] = ch
	b.ids[ch] = b.nextID
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.ids[sub]
	if !ok {
		return
	}
	close(b.subs[id])
	delete(b.subs, id)
	delete(b.ids, sub)
}

// Close closes all subscriber channels and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.ids = make(map[<-chan Event]int)
}
