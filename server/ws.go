package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"companion/domain/entities"
	"companion/events"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
)

// wsEvent is the wire shape of a reveal-progress push.
type wsEvent struct {
	Type            string           `json:"type"`
	Ticket          *entities.Ticket `json:"ticket,omitempty"`
	SessionWinnings string           `json:"sessionWinnings,omitempty"`
	Remaining       *int             `json:"remaining,omitempty"`
}

// wsClient is one connected browser, identified by its session address.
type wsClient struct {
	address string
	out     chan wsEvent
}

// Broadcaster fans reveal-progress events out to websocket connections,
// filtered by the session's address.
type Broadcaster struct {
	originPatterns []string

	mu    sync.Mutex
	conns map[*wsClient]struct{}
}

// NewBroadcaster creates a broadcaster allowing the given origin patterns
// on the websocket upgrade.
func NewBroadcaster(originPatterns []string) *Broadcaster {
	return &Broadcaster{
		originPatterns: originPatterns,
		conns:          make(map[*wsClient]struct{}),
	}
}

// Bind subscribes the broadcaster to reveal-progress events on the bus.
func (b *Broadcaster) Bind(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTicketRevealed, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.TicketRevealedEvent)
		if !ok {
			return
		}
		ticket := e.Ticket
		remaining := e.Remaining
		b.publish(e.Address, wsEvent{
			Type:            "ticket_revealed",
			Ticket:          &ticket,
			SessionWinnings: e.SessionWinnings.String(),
			Remaining:       &remaining,
		})
	})

	bus.Subscribe(events.EventTypeAllTicketsRevealed, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.AllTicketsRevealedEvent)
		if !ok {
			return
		}
		b.publish(e.Address, wsEvent{
			Type:            "all_tickets_revealed",
			SessionWinnings: e.SessionWinnings.String(),
		})
	})
}

// publish sends an event to every connection for the address. Slow
// consumers drop events rather than block the publisher.
func (b *Broadcaster) publish(address string, event wsEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.conns {
		if !strings.EqualFold(client.address, address) {
			continue
		}
		select {
		case client.out <- event:
		default:
			log.WithFields(log.Fields{
				"address": address,
				"type":    event.Type,
			}).Warn("Dropping websocket event for slow consumer")
		}
	}
}

func (b *Broadcaster) register(address string) *wsClient {
	client := &wsClient{
		address: address,
		out:     make(chan wsEvent, 8),
	}
	b.mu.Lock()
	b.conns[client] = struct{}{}
	b.mu.Unlock()
	return client
}

func (b *Broadcaster) unregister(client *wsClient) {
	b.mu.Lock()
	delete(b.conns, client)
	b.mu.Unlock()
	close(client.out)
}

// handleWS upgrades the connection and streams reveal-progress events for
// the session's address until the browser goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.broadcaster.originPatterns,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	client := s.broadcaster.register(session.Address)
	defer s.broadcaster.unregister(client)

	// Writer goroutine
	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for event := range client.out {
			ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
			if err := writeJSONMessage(ctx, conn, event); err != nil {
				cancel()
				return
			}
			cancel()
		}
	}()

	// Reader loop: the stream is one-way, reads only detect the close.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && status != -1 {
				log.WithFields(log.Fields{
					"address": session.Address,
					"status":  status,
				}).Debug("Websocket closed abnormally")
			}
			return
		}
	}
}

func writeJSONMessage(ctx context.Context, conn *websocket.Conn, event wsEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
