// Package realtime fans board events out to connected collaborators.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

var (
	logger = log.With().Str("component", "realtime").Logger()
)

// Publisher is the capability the invite flow uses to announce membership
// changes. Delivery is best effort.
type Publisher interface {
	Publish(boardID, event string, payload any)
}

type Frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// MemberJoined is the payload published when an invite is redeemed.
type MemberJoined struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

const EventMemberJoined = "member-joined"

type Hub struct {
	mu    sync.Mutex
	rooms map[string]*boardRoom
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*boardRoom)}
}

func (h *Hub) room(boardID string) *boardRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[boardID]
	if ok {
		return room
	}

	room = &boardRoom{subscribers: make(map[*websocket.Conn]struct{})}
	h.rooms[boardID] = room
	return room
}

// Publish sends the event to every connection in the board's room.
// Connections that fail to take the frame are dropped from the room.
func (h *Hub) Publish(boardID, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload})
	if err != nil {
		logger.Error().Err(err).Str("event", event).Msg("Failed to marshal realtime frame")
		return
	}

	room := h.room(boardID)
	for _, conn := range room.snapshot() {
		if err := websocket.Message.Send(conn, string(data)); err != nil {
			room.leave(conn)
		}
	}
}

// Attach subscribes the connection to the board's room and blocks until
// the peer hangs up. Inbound frames are drained and ignored; this is a
// notification channel, not an RPC surface.
func (h *Hub) Attach(boardID string, conn *websocket.Conn) {
	room := h.room(boardID)
	room.join(conn)
	defer room.leave(conn)

	for {
		var discard string
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			return
		}
	}
}

type boardRoom struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
}

func (r *boardRoom) join(conn *websocket.Conn) {
	r.mu.Lock()
	r.subscribers[conn] = struct{}{}
	r.mu.Unlock()
}

func (r *boardRoom) leave(conn *websocket.Conn) {
	r.mu.Lock()
	delete(r.subscribers, conn)
	r.mu.Unlock()
}

func (r *boardRoom) snapshot() []*websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := make([]*websocket.Conn, 0, len(r.subscribers))
	for conn := range r.subscribers {
		conns = append(conns, conn)
	}
	return conns
}
