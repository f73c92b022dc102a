// Package events provides a small in-process pub/sub bus for memory service
// events, consumed by the WebSocket hub and any other observer.
package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTradeRecorded  EventType = "TRADE_RECORDED"
	EventRecommendation EventType = "RECOMMENDATION"
	EventMemoryCleared  EventType = "MEMORY_CLEARED"
	EventError          EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Subscribers run in their own
// goroutines so a slow consumer never blocks the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishTradeRecorded publishes a trade recorded event
func (eb *EventBus) PublishTradeRecorded(recordID, strategyID, symbol string, pnl, pnlPercent float64, successScore int) {
	eb.Publish(Event{
		Type: EventTradeRecorded,
		Data: map[string]interface{}{
			"record_id":     recordID,
			"strategy_id":   strategyID,
			"symbol":        symbol,
			"pnl":           pnl,
			"pnl_percent":   pnlPercent,
			"success_score": successScore,
		},
	})
}

// PublishRecommendation publishes a recommendation event
func (eb *EventBus) PublishRecommendation(symbol, strategyID string, confidence float64, reason string) {
	eb.Publish(Event{
		Type: EventRecommendation,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"strategy_id": strategyID,
			"confidence":  confidence,
			"reason":      reason,
		},
	})
}

// PublishMemoryCleared publishes a memory cleared event
func (eb *EventBus) PublishMemoryCleared(recordsDropped int) {
	eb.Publish(Event{
		Type: EventMemoryCleared,
		Data: map[string]interface{}{
			"records_dropped": recordsDropped,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
