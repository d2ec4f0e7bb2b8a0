package game

import (
	"encoding/json"
	"time"

	"github.com/illustrators/illustrators-backend/internal/state"
)

// Event names on the wire. Clients switch on these.
const (
	EventGameStarted    = "gameStarted"
	EventTurnStarted    = "game:turnStarted"
	EventWordConfirmed  = "drawer:wordConfirmed"
	EventRoundEnded     = "game:roundEnded"
	EventGameEnded      = "game:ended"
	EventPlayersUpdated = "playersUpdated"
	EventGuessReceived  = "guessReceived"
	EventChat           = "chat"
	EventCanvasUpdate   = "canvas-update"
	EventTurnState      = "game:turnState"
	EventError          = "error"
)

// Broadcaster is the outbound half of the transport: room-scoped publish,
// per-player send, and membership enumeration for recipient filtering.
type Broadcaster interface {
	EmitToRoom(roomID, event string, payload any)
	EmitToPlayer(playerID, event string, payload any)
	SocketsInRoom(roomID string) []string
}

type GameStartedPayload struct {
	RoomID      string         `json:"room_id"`
	Players     []state.Player `json:"players"`
	TotalRounds int            `json:"total_rounds"`
}

type TurnStartedPayload struct {
	DrawerID    string   `json:"drawer_id"`
	WordOptions []string `json:"word_options"`
	Timer       int      `json:"timer"`
	Round       int      `json:"round"`
	TotalRounds int      `json:"total_rounds"`
}

type WordConfirmedPayload struct {
	DrawerID   string          `json:"drawer_id"`
	Word       string          `json:"word"`
	Timer      int             `json:"timer"`
	TimerStart time.Time       `json:"timer_start"`
	Round      int             `json:"round"`
	Canvas     json.RawMessage `json:"canvas,omitempty"`
}

type RoundEndedPayload struct {
	Round       int            `json:"round"`
	Word        string         `json:"word"`
	Scores      map[string]int `json:"scores"`
	RoundScores map[string]int `json:"round_scores"`
}

type GameEndedPayload struct {
	FinalScores map[string]int `json:"final_scores"`
}

type PlayersUpdatedPayload struct {
	Players []state.Player `json:"players"`
}

type GuessReceivedPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Guess      string `json:"guess"`
}

type CanvasPayload struct {
	Canvas json.RawMessage `json:"canvas"`
}

// ChatPayload is one chat line as delivered to a single recipient.
type ChatPayload struct {
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Text       string `json:"text"`
	System     bool   `json:"system,omitempty"`
	Private    bool   `json:"private,omitempty"`
}

// TurnSnapshot is the reconnect/refresh recovery surface: everything a
// client needs to reconstruct mid-turn state without replaying events.
type TurnSnapshot struct {
	DrawerID        string          `json:"drawer_id"`
	Word            string          `json:"word,omitempty"`
	WordOptions     []string        `json:"word_options,omitempty"`
	Round           int             `json:"round"`
	TimerSeconds    int             `json:"timer_seconds"`
	TimeLeftSeconds int             `json:"time_left_seconds"`
	TimerStart      time.Time       `json:"timer_start,omitempty"`
	TotalRounds     int             `json:"total_rounds"`
	Canvas          json.RawMessage `json:"canvas,omitempty"`
}
