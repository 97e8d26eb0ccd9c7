package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mezonai/accounting/logx"
)

const subscriberBufferSize = 50

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan Event
	Options SubscribeOptions
}

// SubscribeOptions narrows a subscription. Filter selects the events that
// are delivered; nil delivers all of them. OnDrop runs synchronously inside
// Publish for every selected event that did not fit in the buffer.
type SubscribeOptions struct {
	Filter func(Event) bool
	OnDrop func(Event)
}

// OfTypes selects events of the given types.
func OfTypes(types ...EventType) func(Event) bool {
	return func(e Event) bool {
		for _, t := range types {
			if e.Type() == t {
				return true
			}
		}
		return false
	}
}

type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
	}
}

func (eb *EventBus) generateUUIDID() SubscriberID {
	id := uuid.Must(uuid.NewV7())
	return SubscriberID(id.String())
}

func (eb *EventBus) Subscribe() (SubscriberID, <-chan Event) {
	return eb.SubscribeWithOptions(SubscribeOptions{})
}

func (eb *EventBus) SubscribeWithOptions(opts SubscribeOptions) (SubscriberID, <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.generateUUIDID()

	ch := make(chan Event, subscriberBufferSize)
	eb.subscribers[id] = &Subscriber{
		ID:      id,
		Channel: ch,
		Options: opts,
	}

	logx.Info("EVENTBUS", fmt.Sprintf("Subscribed | subscriber_id=%s | total_subscribers=%d", id, len(eb.subscribers)))

	return id, ch
}

// Unsubscribe removes a subscription by ID and closes its channel
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber, exists := eb.subscribers[id]
	if !exists {
		logx.Warn("EVENTBUS", fmt.Sprintf("Attempted to unsubscribe non-existent subscriber | subscriber_id=%s", id))
		return false
	}

	delete(eb.subscribers, id)
	close(subscriber.Channel)

	logx.Info("EVENTBUS", fmt.Sprintf("Unsubscribed | subscriber_id=%s | remaining_subscribers=%d", id, len(eb.subscribers)))
	return true
}

// Publish publishes an event to all subscribers without blocking. A
// subscriber whose buffer is full misses the event; its OnDrop, if any, is
// called instead.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.subscribers) == 0 {
		logx.Debug("EVENTBUS", fmt.Sprintf("No subscribers for event | event_type=%s | height=%d", event.Type(), event.Height()))
		return
	}

	logx.Debug("EVENTBUS", fmt.Sprintf("Publishing event | event_type=%s | height=%d | subscribers=%d", event.Type(), event.Height(), len(eb.subscribers)))
	for id, subscriber := range eb.subscribers {
		if subscriber.Options.Filter != nil && !subscriber.Options.Filter(event) {
			continue
		}
		select {
		case subscriber.Channel <- event:
		default:
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full | subscriber_id=%s | event_type=%s", id, event.Type()))
			if subscriber.Options.OnDrop != nil {
				subscriber.Options.OnDrop(event)
			}
		}
	}
}

// GetTotalSubscriptions returns the total number of active subscriptions
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.subscribers)
}

// HasSubscriber checks if a subscriber with the given ID exists
func (eb *EventBus) HasSubscriber(id SubscriberID) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	_, exists := eb.subscribers[id]
	return exists
}
