package events

import (
	"sync"
	"time"

	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventUserLoggedIn    EventType = "user.logged_in"
	EventUserLoggedOut   EventType = "user.logged_out"
	EventUserChanged     EventType = "user.changed"
	EventSessionOpened   EventType = "session.opened"
	EventSessionClosed   EventType = "session.closed"
	EventStateChanged    EventType = "state.changed"
	EventClockInRejected EventType = "clockin.rejected"
	EventNoticeWarning   EventType = "notice.warning"
	EventNoticeError     EventType = "notice.error"
)

// Event represents an auth or attendance event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
	User      *types.User // set on user.* events; nil on logout
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans auth and attendance events out to subscribers. Delivery is
// best effort: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]filter
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// filter is the set of accepted types; nil accepts everything
type filter map[EventType]struct{}

func (f filter) accepts(t EventType) bool {
	if f == nil {
		return true
	}
	_, ok := f[t]
	return ok
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]filter),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop ends distribution and closes every subscription
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)

		b.mu.Lock()
		defer b.mu.Unlock()
		for sub := range b.subscribers {
			delete(b.subscribers, sub)
			close(sub)
		}
	})
}

// Subscribe creates a subscription receiving the given event types, or all
// events when none are given
func (b *Broker) Subscribe(eventTypes ...EventType) Subscriber {
	var f filter
	if len(eventTypes) > 0 {
		f = make(filter, len(eventTypes))
		for _, t := range eventTypes {
			f[t] = struct{}{}
		}
	}

	sub := make(Subscriber, 50)

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.stopCh:
		close(sub)
	default:
		b.subscribers[sub] = f
	}
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publisher is implemented by anything that accepts events; a nil *Broker drops them
type Publisher interface {
	Publish(event *Event)
}

// Publish queues an event for delivery. It never blocks once the broker is stopped.
func (b *Broker) Publish(event *Event) {
	if b == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, f := range b.subscribers {
		if !f.accepts(event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			metrics.EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

type discard struct{}

func (discard) Publish(*Event) {}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}
