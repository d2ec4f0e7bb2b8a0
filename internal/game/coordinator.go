// Package game is the session coordinator: the per-room turn state machine,
// the timers that race against player actions, guess scoring, disconnect
// tolerance, and terminal cleanup. Rooms are independent; within a room
// every mutation runs under one lock, so the read-merge-write against the
// store can never interleave with another mutation of the same room.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/illustrators/illustrators-backend/internal/lobby"
	"github.com/illustrators/illustrators-backend/internal/state"
	"github.com/illustrators/illustrators-backend/internal/words"
)

// Config holds the fixed delays of the supervisor.
type Config struct {
	// DisplayDelay is the pause between a round ending and the next turn
	// starting, so clients can show the score panel.
	DisplayDelay time.Duration
	// GraceDelay is how long a room may sit at <=1 connected player
	// before the game is force-ended.
	GraceDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		DisplayDelay: 5 * time.Second,
		GraceDelay:   10 * time.Second,
	}
}

// Coordinator drives every active room. All public methods are safe for
// concurrent use; mutations of one room serialize on that room's guard.
type Coordinator struct {
	sessions *state.Sessions
	lobbies  lobby.Store
	cast     Broadcaster
	bank     *words.Bank
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	rooms map[string]*roomGuard
}

func NewCoordinator(sessions *state.Sessions, lobbies lobby.Store, cast Broadcaster, bank *words.Bank, cfg Config, log zerolog.Logger) *Coordinator {
	if cfg.DisplayDelay <= 0 {
		cfg.DisplayDelay = DefaultConfig().DisplayDelay
	}
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = DefaultConfig().GraceDelay
	}
	return &Coordinator{
		sessions: sessions,
		lobbies:  lobbies,
		cast:     cast,
		bank:     bank,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		rooms:    make(map[string]*roomGuard),
	}
}

// roomGuard serializes all mutations of one room and owns its timers.
// At most one forward-progress timer (word-selection watchdog, drawing
// watchdog, or round-end display delay) is live at a time; the disconnect
// grace timer is independent and may coexist with it.
type roomGuard struct {
	mu sync.Mutex

	// roundClosed makes the end-of-round transition exactly-once when the
	// drawing watchdog and the last correct guess tie. Reset when the next
	// turn starts.
	roundClosed bool

	forward *timerHandle
	grace   *timerHandle
}

// timerHandle is a cancellable single-shot timer. The deferred callback
// fires only on natural expiry; Cancel before the deadline suppresses it.
type timerHandle struct {
	cancel context.CancelFunc
}

func (t *timerHandle) Cancel() {
	if t != nil && t.cancel != nil {
		t.cancel()
	}
}

// schedule arms a single-shot timer. It distinguishes expiry from
// cancellation through the context error, so a cancelled handle never
// runs its callback.
func (c *Coordinator) schedule(d time.Duration, fn func()) *timerHandle {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	go func() {
		<-ctx.Done()
		if ctx.Err() == context.DeadlineExceeded {
			fn()
		}
		cancel()
	}()
	return &timerHandle{cancel: cancel}
}

// guard returns the room's guard, creating it on first use. Callers lock
// the guard before touching the room's session.
func (c *Coordinator) guard(roomID string) *roomGuard {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.rooms[roomID]
	if !ok {
		g = &roomGuard{}
		c.rooms[roomID] = g
	}
	return g
}

// dropGuard forgets a finished room. Its timers must already be cancelled.
func (c *Coordinator) dropGuard(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// setForward replaces the room's forward-progress timer, cancelling the
// previous one. Caller holds g.mu.
func (g *roomGuard) setForward(h *timerHandle) {
	g.forward.Cancel()
	g.forward = h
}

// cancelTimers stops everything pending for the room. Caller holds g.mu.
func (g *roomGuard) cancelTimers() {
	g.forward.Cancel()
	g.forward = nil
	g.grace.Cancel()
	g.grace = nil
}
