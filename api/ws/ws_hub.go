package ws

import (
	"context"
	"log"

	"github.com/zlnvch/placebot/events"
)

// Hub maintains the set of connected operator UIs and fans the engine event
// stream out to them. Every client sees every event; there is no per-channel
// subscription like a multi-tenant system would need.
type Hub struct {
	placebotEvents events.PlacebotEvents
	OpenCh         chan *Client
	CloseCh        chan *Client
	BroadcastCh    chan []byte
	clients        map[*Client]struct{}
}

func NewHub(placebotEvents events.PlacebotEvents) *Hub {
	return &Hub{
		placebotEvents: placebotEvents,
		OpenCh:         make(chan *Client, 64),
		CloseCh:        make(chan *Client, 64),
		BroadcastCh:    make(chan []byte, 1024),
		clients:        make(map[*Client]struct{}),
	}
}

const maxConnections = 16

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.OpenCh:
			if len(h.clients) >= maxConnections {
				log.Printf("Rejecting stream client: max connections (%d) reached", maxConnections)
				close(client.Send)
				continue
			}
			h.clients[client] = struct{}{}

		case client := <-h.CloseCh:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}

		case message := <-h.BroadcastCh:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow consumer; drop the event rather than block the hub
				}
			}
		}
	}
}

func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	err := h.placebotEvents.Subscribe(shutdownCtx, events.ChannelEngine, func(message []byte) {
		h.BroadcastCh <- message
	})
	if err != nil {
		log.Printf("WS hub failed to subscribe to %s: %v", events.ChannelEngine, err)
		return err
	}

	return nil
}
