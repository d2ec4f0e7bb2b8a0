// Package transport is the websocket layer: it upgrades connections, pumps
// messages, routes inbound events to the coordinator, and fans outbound
// events back to room members. It implements game.Broadcaster.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/illustrators/illustrators-backend/internal/game"
)

// Message is the wire envelope: a type tag and an event-specific payload.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks which client is in which room and owns all outbound sends.
type Hub struct {
	coord *game.Coordinator
	log   zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]map[string]*Client),
	}
}

// Bind attaches the coordinator after construction; the hub and the
// coordinator reference each other, so one side has to be wired late.
func (h *Hub) Bind(coord *game.Coordinator) {
	h.coord = coord
}

// ServeWS upgrades the request and seats the player in the room. Identity
// comes from query params; an absent player id makes this a guest join, a
// known one a reconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("room_id", roomID).Msg("websocket upgrade failed")
		return
	}

	playerID := r.URL.Query().Get("playerId")
	name := r.URL.Query().Get("username")
	if name == "" {
		name = "Anonymous"
	}

	seated, err := h.coord.HandleJoin(r.Context(), roomID, playerID, name)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("join failed")
		conn.Close()
		return
	}

	client := newClient(h, conn, roomID, seated.ID, seated.Name)
	h.register(client)

	// The join broadcast fired before this socket was registered, so sync
	// the new client directly: current roster, and mid-turn state when a
	// turn is running so it can reconstruct without replaying events.
	if roster, err := h.coord.Roster(r.Context(), roomID); err == nil {
		client.sendEvent(game.EventPlayersUpdated, game.PlayersUpdatedPayload{Players: roster})
	}
	if snap, err := h.coord.CurrentTurn(r.Context(), roomID); err == nil {
		client.sendEvent(game.EventTurnState, snap)
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.roomID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[c.roomID] = room
	}
	old := room[c.playerID]
	room[c.playerID] = c
	h.mu.Unlock()

	// A reconnect replaces the seat's previous socket.
	if old != nil {
		old.close()
	}
}

// unregister detaches a client. It is a no-op when a newer socket has
// already taken the seat, so a quick reconnect is not reported as a
// disconnect.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	current := false
	if room, ok := h.rooms[c.roomID]; ok && room[c.playerID] == c {
		delete(room, c.playerID)
		if len(room) == 0 {
			delete(h.rooms, c.roomID)
		}
		current = true
	}
	h.mu.Unlock()

	if current {
		h.coord.HandleDisconnect(context.Background(), c.roomID, c.playerID)
	}
}

// EmitToRoom sends one event to every socket in the room. The envelope is
// marshalled once; slow clients are dropped rather than blocking the room.
func (h *Hub) EmitToRoom(roomID, event string, payload any) {
	raw, err := json.Marshal(Message[any]{Type: event, Data: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal broadcast failed")
		return
	}

	for _, c := range h.snapshot(roomID) {
		c.enqueue(raw)
	}
}

// EmitToPlayer sends one event to a single player's socket, if connected.
func (h *Hub) EmitToPlayer(playerID, event string, payload any) {
	raw, err := json.Marshal(Message[any]{Type: event, Data: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal send failed")
		return
	}

	h.mu.RLock()
	var target *Client
	for _, room := range h.rooms {
		if c, ok := room[playerID]; ok {
			target = c
			break
		}
	}
	h.mu.RUnlock()

	if target != nil {
		target.enqueue(raw)
	}
}

// SocketsInRoom lists the player ids currently connected to the room.
func (h *Hub) SocketsInRoom(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[roomID]
	ids := make([]string, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) snapshot(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[roomID]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}
