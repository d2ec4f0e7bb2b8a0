// Package state owns the serialized shape of a room's game session and the
// key-value store it lives in. It knows nothing about game rules; the game
// package mutates sessions through the accessor here.
package state

import (
	"slices"
	"time"

	"github.com/illustrators/illustrators-backend/internal/words"
)

// PlayerKind distinguishes durable accounts from ephemeral guests. Both
// share the same Player shape; the kind is an explicit tag rather than an
// id-prefix convention.
type PlayerKind string

const (
	KindAccount PlayerKind = "account"
	KindGuest   PlayerKind = "guest"
)

// Player is one seat in a room. Identity is caller-supplied and only
// compared by id.
type Player struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      PlayerKind `json:"kind,omitempty"`
	Connected bool       `json:"connected"`
}

// Settings are the host-chosen game parameters, clamped at game start.
type Settings struct {
	DrawingTimeSeconds   int              `json:"drawing_time_seconds"`
	TotalRounds          int              `json:"total_rounds"`
	Difficulty           words.Difficulty `json:"difficulty"`
	WordOptionCount      int              `json:"word_option_count"`
	WordSelectionSeconds int              `json:"word_selection_seconds"`
}

const (
	DefaultDrawingTimeSeconds   = 90
	DefaultTotalRounds          = 3
	DefaultWordOptionCount      = 3
	DefaultWordSelectionSeconds = 15

	MinTotalRounds = 3
	MaxTotalRounds = 6

	MinDrawingTimeSeconds = 30
	MaxDrawingTimeSeconds = 180
)

// DefaultSettings are used when the lobby record carries none.
func DefaultSettings() Settings {
	return Settings{
		DrawingTimeSeconds:   DefaultDrawingTimeSeconds,
		TotalRounds:          DefaultTotalRounds,
		Difficulty:           words.Medium,
		WordOptionCount:      DefaultWordOptionCount,
		WordSelectionSeconds: DefaultWordSelectionSeconds,
	}
}

// Clamp forces every field into its allowed range, substituting defaults
// for missing values.
func (s Settings) Clamp() Settings {
	if s.DrawingTimeSeconds == 0 {
		s.DrawingTimeSeconds = DefaultDrawingTimeSeconds
	}
	s.DrawingTimeSeconds = max(MinDrawingTimeSeconds, min(s.DrawingTimeSeconds, MaxDrawingTimeSeconds))

	if s.TotalRounds == 0 {
		s.TotalRounds = DefaultTotalRounds
	}
	s.TotalRounds = max(MinTotalRounds, min(s.TotalRounds, MaxTotalRounds))

	s.Difficulty = words.ParseDifficulty(string(s.Difficulty))
	s.WordOptionCount = words.ClampOptionCount(s.WordOptionCount)

	if s.WordSelectionSeconds <= 0 {
		s.WordSelectionSeconds = DefaultWordSelectionSeconds
	}
	return s
}

// Session is the full per-room game state, serialized as one value in the
// store under gamestate:<roomID>.
type Session struct {
	Players            []Player `json:"players"`
	PlayerOrder        []string `json:"player_order"`
	CurrentDrawerIndex int      `json:"current_drawer_index"`
	Round              int      `json:"round"`
	Settings           Settings `json:"settings"`

	DrawerID    string   `json:"drawer_id,omitempty"`
	Word        string   `json:"word,omitempty"`
	WordOptions []string `json:"word_options,omitempty"`
	UsedWords   []string `json:"used_words,omitempty"`

	GuessedUsers    []string       `json:"guessed_users,omitempty"`
	CorrectGuessers []string       `json:"correct_guessers,omitempty"`
	Scores          map[string]int `json:"scores"`
	RoundScores     map[string]int `json:"round_scores"`

	TimerSeconds int       `json:"timer_seconds,omitempty"`
	TimerStart   time.Time `json:"timer_start,omitempty"`

	WordSelectionStart    time.Time `json:"word_selection_start,omitempty"`
	WordSelectionDuration int       `json:"word_selection_duration,omitempty"`

	Started bool `json:"started"`
}

// FindPlayer returns the seat with the given id, or nil.
func (s *Session) FindPlayer(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// ConnectedCount counts seats currently marked connected.
func (s *Session) ConnectedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// HasGuessed reports whether the player already solved the current round.
func (s *Session) HasGuessed(playerID string) bool {
	return slices.Contains(s.GuessedUsers, playerID)
}

// AllGuessersCorrect reports whether every player in the draw order except
// the drawer has solved the current round.
func (s *Session) AllGuessersCorrect() bool {
	if len(s.PlayerOrder) == 0 {
		return false
	}
	for _, id := range s.PlayerOrder {
		if id == s.DrawerID {
			continue
		}
		if !slices.Contains(s.GuessedUsers, id) {
			return false
		}
	}
	return true
}

// TurnsPlayed counts completed-or-active turns under the per-full-rotation
// round definition.
func (s *Session) TurnsPlayed() int {
	return (s.Round-1)*len(s.PlayerOrder) + s.CurrentDrawerIndex + 1
}

// TurnBudgetExhausted reports whether the session has played every turn of
// every round.
func (s *Session) TurnBudgetExhausted() bool {
	if len(s.PlayerOrder) == 0 {
		return false
	}
	return s.TurnsPlayed() >= len(s.PlayerOrder)*s.Settings.TotalRounds
}

// TimeLeftSeconds derives the remaining drawing time at now, never
// negative. Zero when no drawing timer is running.
func (s *Session) TimeLeftSeconds(now time.Time) int {
	if s.TimerStart.IsZero() || s.TimerSeconds == 0 {
		return 0
	}
	left := s.TimerSeconds - int(now.Sub(s.TimerStart).Seconds())
	return max(left, 0)
}
