package events

import (
	"context"
	"sync"

	"companion/domain/entities"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeSessionCreated     EventType = "session_created"
	EventTypeTicketRevealed     EventType = "ticket_revealed"
	EventTypeAllTicketsRevealed EventType = "all_tickets_revealed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// SessionCreatedEvent represents a successful access-key login
type SessionCreatedEvent struct {
	Address string
}

func (e SessionCreatedEvent) Type() EventType {
	return EventTypeSessionCreated
}

// TicketRevealedEvent represents a single ticket reveal confirmed upstream
type TicketRevealedEvent struct {
	Address         string
	Ticket          entities.Ticket
	SessionWinnings decimal.Decimal
	Remaining       int
}

func (e TicketRevealedEvent) Type() EventType {
	return EventTypeTicketRevealed
}

// AllTicketsRevealedEvent fires when the last unrevealed ticket settles
type AllTicketsRevealedEvent struct {
	Address         string
	SessionWinnings decimal.Decimal
}

func (e AllTicketsRevealedEvent) Type() EventType {
	return EventTypeAllTicketsRevealed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}
