package game

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/illustrators/illustrators-backend/internal/state"
)

// HandleJoin seats a player in the room. A known id reclaims its existing
// seat (reconnect: flips connected back on, refreshes the name, cancels a
// pending grace timer); an unknown or empty id takes a new seat, minting a
// guest identity when none was supplied. The updated roster is broadcast.
func (c *Coordinator) HandleJoin(ctx context.Context, roomID, playerID, name string) (state.Player, error) {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	kind := state.KindAccount
	if playerID == "" {
		playerID = uuid.NewString()
		kind = state.KindGuest
	}

	var seated state.Player
	err := c.sessions.Update(ctx, roomID, func(sess *state.Session) {
		if p := sess.FindPlayer(playerID); p != nil {
			p.Connected = true
			if name != "" {
				p.Name = name
			}
			seated = *p
			return
		}
		p := state.Player{ID: playerID, Name: name, Kind: kind, Connected: true}
		sess.Players = append(sess.Players, p)
		seated = p
	})
	if err != nil {
		return state.Player{}, err
	}

	// A reconnect inside the grace window rescues the room.
	g.grace.Cancel()
	g.grace = nil

	c.log.Info().
		Str("room_id", roomID).
		Str("player_id", seated.ID).
		Str("kind", string(seated.Kind)).
		Msg("player joined")

	c.broadcastRosterLocked(ctx, roomID)
	return seated, nil
}

// HandleDisconnect marks the seat as disconnected without vacating it, so a
// reconnect resumes the same identity and score. If the room is left with
// at most one connected player when the grace window closes, the game is
// force-ended.
func (c *Coordinator) HandleDisconnect(ctx context.Context, roomID, playerID string) {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	err := c.sessions.Update(ctx, roomID, func(sess *state.Session) {
		if p := sess.FindPlayer(playerID); p != nil {
			p.Connected = false
		}
	})
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Str("player_id", playerID).Msg("disconnect update failed")
		return
	}

	c.log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("player disconnected")
	c.broadcastRosterLocked(ctx, roomID)

	g.grace.Cancel()
	g.grace = c.schedule(c.cfg.GraceDelay, func() {
		c.graceExpired(context.Background(), roomID)
	})
}

// graceExpired checks, after the grace window, whether the room still has
// enough connected players to continue.
func (c *Coordinator) graceExpired(ctx context.Context, roomID string) {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if err != nil {
		return
	}
	if !sess.Started || sess.ConnectedCount() > 1 {
		return
	}

	c.log.Info().Str("room_id", roomID).Int("connected", sess.ConnectedCount()).Msg("grace period expired, ending game")
	if _, err := c.endGameLocked(ctx, g, roomID); err != nil {
		c.log.Error().Err(err).Str("room_id", roomID).Msg("grace-driven game end failed")
	}
}

// broadcastRosterLocked emits the current roster. Caller holds g.mu.
func (c *Coordinator) broadcastRosterLocked(ctx context.Context, roomID string) {
	sess, err := c.sessions.Get(ctx, roomID)
	if err != nil {
		return
	}
	c.cast.EmitToRoom(roomID, EventPlayersUpdated, PlayersUpdatedPayload{
		Players: slices.Clone(sess.Players),
	})
}

// Roster returns the room's current seats in join order.
func (c *Coordinator) Roster(ctx context.Context, roomID string) ([]state.Player, error) {
	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return nil, ErrRoomNotFound
	} else if err != nil {
		return nil, err
	}
	return slices.Clone(sess.Players), nil
}

// SaveCanvas caches the drawer's latest surface snapshot and relays it to
// the room. The blob is opaque; only authorship is checked.
func (c *Coordinator) SaveCanvas(ctx context.Context, roomID, playerID string, blob json.RawMessage) error {
	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return ErrRoomNotFound
	} else if err != nil {
		return err
	}
	if playerID != sess.DrawerID {
		return ErrNotDrawer
	}

	if err := c.sessions.SetCanvas(ctx, roomID, blob); err != nil {
		return err
	}
	c.cast.EmitToRoom(roomID, EventCanvasUpdate, CanvasPayload{Canvas: blob})
	return nil
}

// Canvas returns the cached surface snapshot for a late joiner, seeding a
// blank one when nothing has been drawn yet.
func (c *Coordinator) Canvas(ctx context.Context, roomID string) (json.RawMessage, error) {
	if _, err := c.sessions.Get(ctx, roomID); errors.Is(err, state.ErrNoSession) {
		return nil, ErrRoomNotFound
	} else if err != nil {
		return nil, err
	}
	return c.sessions.EnsureCanvas(ctx, roomID)
}
