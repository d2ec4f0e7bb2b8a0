package transport

import (
	"context"
	"encoding/json"

	"github.com/illustrators/illustrators-backend/internal/game"
	"github.com/illustrators/illustrators-backend/internal/scoring"
)

// Inbound event types. join and disconnect are not in this list: joining
// happens at upgrade time and disconnects are detected by the read pump.
const (
	inStartGame     = "start-game"
	inWordSelected  = "word-selected"
	inGuess         = "guess"
	inChat          = "chat"
	inCanvasUpdate  = "canvas-update"
	inRequestCanvas = "request-canvas"
)

type wordSelectedIn struct {
	Word string `json:"word"`
}

type guessIn struct {
	Guess string `json:"guess"`
}

type chatIn struct {
	Text string `json:"text"`
}

type canvasIn struct {
	Canvas json.RawMessage `json:"canvas"`
}

type errorOut struct {
	Message string `json:"message"`
}

// route dispatches one inbound frame to the coordinator. Malformed frames
// are dropped; rejected actions are reported back to the sender only.
func (h *Hub) route(c *Client, raw []byte) {
	var env Message[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Debug().Err(err).Str("player_id", c.playerID).Msg("malformed frame dropped")
		return
	}

	ctx := context.Background()

	switch env.Type {
	case inStartGame:
		if err := h.coord.StartGame(ctx, c.roomID, c.playerID); err != nil {
			c.sendEvent(game.EventError, errorOut{Message: err.Error()})
		}

	case inWordSelected:
		var in wordSelectedIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if err := h.coord.SetWordForDrawer(ctx, c.roomID, c.playerID, in.Word); err != nil {
			c.sendEvent(game.EventError, errorOut{Message: err.Error()})
		}

	case inGuess:
		var in guessIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		h.handleGuess(ctx, c, in.Guess)

	case inChat:
		var in chatIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		h.relayChat(ctx, c, in.Text)

	case inCanvasUpdate:
		var in canvasIn
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if err := h.coord.SaveCanvas(ctx, c.roomID, c.playerID, in.Canvas); err != nil {
			h.log.Debug().Err(err).Str("player_id", c.playerID).Msg("canvas update rejected")
		}

	case inRequestCanvas:
		blob, err := h.coord.Canvas(ctx, c.roomID)
		if err != nil {
			c.sendEvent(game.EventError, errorOut{Message: err.Error()})
			return
		}
		c.sendEvent(game.EventCanvasUpdate, game.CanvasPayload{Canvas: blob})

	default:
		h.log.Debug().Str("type", env.Type).Str("player_id", c.playerID).Msg("unknown event type dropped")
	}
}

// handleGuess scores the guess, then relays it like chat. A correct guess
// is never echoed (the coordinator announces the solve instead); a close
// guess additionally earns the sender a private hint.
func (h *Hub) handleGuess(ctx context.Context, c *Client, guess string) {
	result, err := h.coord.TrackGuess(ctx, c.roomID, c.playerID, guess)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", c.roomID).Msg("guess evaluation failed")
		return
	}
	if result == scoring.Correct {
		return
	}

	if err := h.coord.BroadcastGuess(ctx, c.roomID, game.GuessReceivedPayload{
		PlayerID:   c.playerID,
		PlayerName: c.playerName,
		Guess:      guess,
	}); err != nil {
		h.log.Debug().Err(err).Str("room_id", c.roomID).Msg("guess relay dropped")
	}

	if result == scoring.Close {
		if err := h.coord.BroadcastChat(ctx, c.roomID, game.ChatPayload{
			Text:    "You're close!",
			System:  true,
			Private: true,
		}, c.playerID); err != nil {
			h.log.Debug().Err(err).Str("room_id", c.roomID).Msg("close hint dropped")
		}
	}
}

func (h *Hub) relayChat(ctx context.Context, c *Client, text string) {
	if text == "" {
		return
	}
	err := h.coord.BroadcastChat(ctx, c.roomID, game.ChatPayload{
		SenderID:   c.playerID,
		SenderName: c.playerName,
		Text:       text,
	}, "")
	if err != nil {
		h.log.Debug().Err(err).Str("room_id", c.roomID).Msg("chat dropped")
	}
}
