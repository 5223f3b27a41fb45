package http

import (
	"sync"

	"github.com/gorilla/websocket"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan outboundMessage
}

// Hub tracks which participant is connected where and which room each
// connection belongs to. It implements app.Broadcaster; delivery is
// best-effort and never blocks the caller.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(code, participantID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[participantID] = c
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[code] = members
	}
	members[participantID] = struct{}{}
}

func (h *Hub) Unregister(code, participantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, participantID)
	if members, ok := h.rooms[code]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

func (h *Hub) ToRoom(code, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for participantID := range h.rooms[code] {
		if c, ok := h.clients[participantID]; ok {
			deliver(c, outboundMessage{Type: event, Payload: payload})
		}
	}
}

func (h *Hub) ToParticipant(participantID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[participantID]; ok {
		deliver(c, outboundMessage{Type: event, Payload: payload})
	}
}

// deliver drops the oldest queued message rather than block a slow client.
func deliver(c *client, msg outboundMessage) {
	select {
	case c.send <- msg:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}
