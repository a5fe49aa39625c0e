package ws

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/zlnvch/placebot/service"
)

type Handler struct {
	Service *service.Service
	Hub     *Hub
}

func NewHandler(svc *service.Service, hub *Hub) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
	}
}

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{"placebot-v1"},
	}
}

// ServeWS upgrades the connection and attaches it to the event stream. The
// bearer token rides in the second websocket subprotocol because browser
// websockets cannot set an Authorization header.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	protocols := r.Header.Get("Sec-WebSocket-Protocol")
	protocolsSplit := strings.Split(protocols, ",")

	if len(protocolsSplit) != 2 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token := strings.TrimSpace(protocolsSplit[1])
	authErr := h.Service.AuthenticateToken(token)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn)
	h.Hub.OpenCh <- client

	// Start pumps
	go client.ReadPump()
	go client.WritePump(shutdownCtx)

	// Replay the backlog so the UI is not blank until the next event
	backlog, err := h.Service.RecentEvents(r.Context())
	if err != nil {
		log.Printf("Failed to load event backlog: %v", err)
		return
	}
	for _, message := range backlog {
		select {
		case client.Send <- message:
		default:
			return
		}
	}
}
