package game

import (
	"context"
	"errors"
	"slices"

	"github.com/illustrators/illustrators-backend/internal/state"
)

// CanSee decides whether one recipient may read one chat line. Evaluated
// per recipient at send time, never cached, because who has solved the
// round changes turn to turn.
//
// Rules: a private system line reaches only its addressee; the drawer and
// the sender see everything; public system lines reach everyone; otherwise
// solved players talk among themselves and unsolved players among
// themselves, so a solved player cannot leak the word to those still
// guessing.
func CanSee(recipientID string, msg ChatPayload, addressee, drawerID string, solved []string) bool {
	if msg.System && msg.Private {
		return recipientID == addressee
	}
	if recipientID == drawerID || recipientID == msg.SenderID {
		return true
	}
	if msg.System {
		return true
	}
	senderSolved := slices.Contains(solved, msg.SenderID)
	recipientSolved := slices.Contains(solved, recipientID)
	return senderSolved == recipientSolved
}

// BroadcastChat delivers a chat line to every room member the visibility
// rules allow. addressee is only consulted for private system lines.
func (c *Coordinator) BroadcastChat(ctx context.Context, roomID string, msg ChatPayload, addressee string) error {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return ErrRoomNotFound
	} else if err != nil {
		return err
	}

	c.emitChatLocked(roomID, sess, msg, addressee)
	return nil
}

// BroadcastGuess relays an unsolved guess to the room under the same
// visibility rules as chat, so a solved player's near misses cannot tip
// off those still guessing.
func (c *Coordinator) BroadcastGuess(ctx context.Context, roomID string, msg GuessReceivedPayload) error {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return ErrRoomNotFound
	} else if err != nil {
		return err
	}

	line := ChatPayload{SenderID: msg.PlayerID, SenderName: msg.PlayerName, Text: msg.Guess}
	for _, recipientID := range c.cast.SocketsInRoom(roomID) {
		if CanSee(recipientID, line, "", sess.DrawerID, sess.CorrectGuessers) {
			c.cast.EmitToPlayer(recipientID, EventGuessReceived, msg)
		}
	}
	return nil
}

func (c *Coordinator) emitChatLocked(roomID string, sess *state.Session, msg ChatPayload, addressee string) {
	for _, recipientID := range c.cast.SocketsInRoom(roomID) {
		if CanSee(recipientID, msg, addressee, sess.DrawerID, sess.CorrectGuessers) {
			c.cast.EmitToPlayer(recipientID, EventChat, msg)
		}
	}
}
