package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBuffer = 256

	// Inbound events per connection. Generous enough for canvas updates,
	// tight enough to shed a flooding socket.
	inboundRate  = rate.Limit(25)
	inboundBurst = 50
)

// Client is one websocket connection bound to a seat in a room. All writes
// go through the send channel so the write pump is the only writer. The
// channel is never closed; shutdown is signalled through done so a
// broadcast racing a disconnect can never send on a closed channel.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	roomID     string
	playerID   string
	playerName string

	send chan []byte
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	limiter *rate.Limiter
}

func newClient(hub *Hub, conn *websocket.Conn, roomID, playerID, playerName string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		roomID:     roomID,
		playerID:   playerID,
		playerName: playerName,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		limiter:    rate.NewLimiter(inboundRate, inboundBurst),
	}
}

// enqueue hands a pre-marshalled frame to the write pump. A full buffer
// means the client cannot keep up; it is shut down instead of stalling the
// room's broadcast. Frames offered after shutdown are dropped.
func (c *Client) enqueue(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- raw:
	default:
		c.hub.log.Warn().
			Str("room_id", c.roomID).
			Str("player_id", c.playerID).
			Msg("send buffer full, dropping client")
		c.shutdownLocked()
	}
}

func (c *Client) sendEvent(event string, payload any) {
	raw, err := json.Marshal(Message[any]{Type: event, Data: payload})
	if err != nil {
		c.hub.log.Error().Err(err).Str("event", event).Msg("marshal event failed")
		return
	}
	c.enqueue(raw)
}

// close signals both pumps to exit. Safe to call more than once and safe
// to race with enqueue.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.shutdownLocked()
	}
}

// shutdownLocked marks the client closed and wakes the write pump, which
// closes the connection and so unwinds the read pump too. Caller holds
// c.mu.
func (c *Client) shutdownLocked() {
	c.closed = true
	close(c.done)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn().Err(err).Str("player_id", c.playerID).Msg("websocket read error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.hub.log.Warn().Str("player_id", c.playerID).Msg("inbound rate limit hit, event dropped")
			continue
		}

		c.hub.route(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
