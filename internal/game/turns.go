package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/illustrators/illustrators-backend/internal/lobby"
	"github.com/illustrators/illustrators-backend/internal/scoring"
	"github.com/illustrators/illustrators-backend/internal/state"
)

// StartGame turns a waiting-room roster into a running session: clamps the
// host's settings, freezes the draw order from join order, and starts the
// first turn. Rejected when fewer than 2 players are present or the game
// already started.
func (c *Coordinator) StartGame(ctx context.Context, roomID, playerID string) error {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return ErrRoomNotFound
	} else if err != nil {
		return err
	}

	if sess.Started {
		return ErrGameInProgress
	}
	if len(sess.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	settings := state.DefaultSettings()
	rec, err := c.lobbies.Get(ctx, roomID)
	switch {
	case err == nil:
		if rec.HostID != "" && rec.HostID != playerID {
			return ErrNotHost
		}
		settings = rec.Settings
	case errors.Is(err, lobby.ErrNotFound):
		// No lobby record: any player may start with defaults.
	default:
		return fmt.Errorf("load lobby %s: %w", roomID, err)
	}

	sess.Started = true
	sess.Settings = settings.Clamp()
	sess.Round = 1
	sess.CurrentDrawerIndex = -1
	sess.PlayerOrder = make([]string, 0, len(sess.Players))
	for _, p := range sess.Players {
		sess.PlayerOrder = append(sess.PlayerOrder, p.ID)
	}
	sess.UsedWords = nil
	sess.Scores = make(map[string]int)
	sess.RoundScores = make(map[string]int)

	if err := c.sessions.Set(ctx, roomID, sess); err != nil {
		return err
	}
	if err := c.lobbies.SetGameStarted(ctx, roomID, true); err != nil && !errors.Is(err, lobby.ErrNotFound) {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("failed to flag lobby as started")
	}

	c.log.Info().Str("room_id", roomID).Int("players", len(sess.Players)).Msg("game started")
	c.cast.EmitToRoom(roomID, EventGameStarted, GameStartedPayload{
		RoomID:      roomID,
		Players:     slices.Clone(sess.Players),
		TotalRounds: sess.Settings.TotalRounds,
	})

	return c.startNextTurnLocked(ctx, g, roomID)
}

// StartNextTurn advances the drawer and opens the word-selection phase.
func (c *Coordinator) StartNextTurn(ctx context.Context, roomID string) error {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return c.startNextTurnLocked(ctx, g, roomID)
}

func (c *Coordinator) startNextTurnLocked(ctx context.Context, g *roomGuard, roomID string) error {
	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		// Room ended while the display delay was pending.
		c.log.Debug().Str("room_id", roomID).Msg("next turn skipped, session gone")
		return nil
	} else if err != nil {
		return err
	}

	if len(sess.PlayerOrder) == 0 {
		return ErrNotEnoughPlayers
	}

	prev := sess.CurrentDrawerIndex
	sess.CurrentDrawerIndex = (prev + 1) % len(sess.PlayerOrder)
	// A round is one full rotation: increment on wrap, but not on the very
	// first turn (which also lands on index 0).
	if sess.CurrentDrawerIndex == 0 && prev != -1 {
		sess.Round++
	}

	sess.DrawerID = sess.PlayerOrder[sess.CurrentDrawerIndex]
	sess.Word = ""
	sess.WordOptions = c.bank.Draw(sess.Settings.WordOptionCount, sess.Settings.Difficulty, sess.UsedWords)
	sess.GuessedUsers = nil
	sess.CorrectGuessers = nil
	sess.RoundScores = make(map[string]int)
	sess.TimerSeconds = 0
	sess.TimerStart = time.Time{}
	sess.WordSelectionStart = c.now()
	sess.WordSelectionDuration = sess.Settings.WordSelectionSeconds

	if err := c.sessions.Set(ctx, roomID, sess); err != nil {
		return err
	}

	g.roundClosed = false

	c.log.Info().
		Str("room_id", roomID).
		Str("drawer_id", sess.DrawerID).
		Int("round", sess.Round).
		Msg("turn started")

	c.cast.EmitToRoom(roomID, EventTurnStarted, TurnStartedPayload{
		DrawerID:    sess.DrawerID,
		WordOptions: slices.Clone(sess.WordOptions),
		Timer:       sess.WordSelectionDuration,
		Round:       sess.Round,
		TotalRounds: sess.Settings.TotalRounds,
	})

	selection := time.Duration(sess.WordSelectionDuration) * time.Second
	g.setForward(c.schedule(selection, func() {
		c.autoPickWord(context.Background(), roomID)
	}))
	return nil
}

// SetWordForDrawer records the drawer's pick and opens the drawing phase.
// Idempotent: once a word is set for the turn, later picks are no-ops, so
// an explicit pick and the watchdog auto-pick cannot double-fire.
func (c *Coordinator) SetWordForDrawer(ctx context.Context, roomID, playerID, word string) error {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return ErrRoomNotFound
	} else if err != nil {
		return err
	}

	if sess.Word != "" {
		c.log.Debug().Str("room_id", roomID).Msg("word already set, pick ignored")
		return nil
	}
	if playerID != sess.DrawerID {
		return ErrNotDrawer
	}
	if !slices.Contains(sess.WordOptions, word) {
		return ErrInvalidWord
	}
	return c.confirmWordLocked(ctx, g, roomID, sess, word)
}

// autoPickWord is the word-selection watchdog callback: the drawer stalled,
// so pick uniformly from the offered options on their behalf.
func (c *Coordinator) autoPickWord(ctx context.Context, roomID string) {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if err != nil {
		return
	}
	if sess.Word != "" || len(sess.WordOptions) == 0 {
		return
	}

	word := sess.WordOptions[rand.IntN(len(sess.WordOptions))]
	c.log.Info().Str("room_id", roomID).Str("drawer_id", sess.DrawerID).Msg("word auto-picked after selection timeout")
	if err := c.confirmWordLocked(ctx, g, roomID, sess, word); err != nil {
		c.log.Error().Err(err).Str("room_id", roomID).Msg("auto-pick failed")
	}
}

// confirmWordLocked commits the chosen word, arms the drawing watchdog, and
// seeds a blank canvas. Caller holds g.mu and has validated the pick.
func (c *Coordinator) confirmWordLocked(ctx context.Context, g *roomGuard, roomID string, sess *state.Session, word string) error {
	now := c.now()

	sess.Word = word
	sess.UsedWords = append(sess.UsedWords, word)
	sess.WordOptions = nil
	sess.TimerSeconds = sess.Settings.DrawingTimeSeconds
	sess.TimerStart = now
	sess.WordSelectionStart = time.Time{}
	sess.WordSelectionDuration = 0

	if err := c.sessions.Set(ctx, roomID, sess); err != nil {
		return err
	}

	drawing := time.Duration(sess.TimerSeconds) * time.Second
	if err := c.sessions.SetTimerMarkers(ctx, roomID, now, drawing); err != nil {
		return err
	}
	canvas, err := c.sessions.EnsureCanvas(ctx, roomID)
	if err != nil {
		return err
	}

	c.log.Info().
		Str("room_id", roomID).
		Str("drawer_id", sess.DrawerID).
		Int("timer", sess.TimerSeconds).
		Msg("word confirmed, drawing phase started")

	c.cast.EmitToRoom(roomID, EventWordConfirmed, WordConfirmedPayload{
		DrawerID:   sess.DrawerID,
		Word:       sess.Word,
		Timer:      sess.TimerSeconds,
		TimerStart: sess.TimerStart,
		Round:      sess.Round,
		Canvas:     canvas,
	})

	g.setForward(c.schedule(drawing, func() {
		c.drawTimerExpired(context.Background(), roomID)
	}))
	return nil
}

// drawTimerExpired is the drawing watchdog callback. EndOfRound re-checks
// that the round is still open, so racing the last correct guess is safe.
func (c *Coordinator) drawTimerExpired(ctx context.Context, roomID string) {
	c.log.Debug().Str("room_id", roomID).Msg("drawing timer expired")
	if err := c.EndOfRound(ctx, roomID); err != nil {
		c.log.Error().Err(err).Str("room_id", roomID).Msg("timer-driven round end failed")
	}
}

// TrackGuess evaluates one guess. Correct guesses credit the guesser (first
// solver gets the time bonus) and the drawer, and end the round when every
// guesser has solved it. Close guesses change nothing; the caller decides
// whether to hint. Late, duplicate, and drawer guesses are ignored.
func (c *Coordinator) TrackGuess(ctx context.Context, roomID, playerID, guess string) (scoring.Result, error) {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()

	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return scoring.Incorrect, nil
	} else if err != nil {
		return scoring.Incorrect, err
	}

	if sess.Word == "" || sess.TimerStart.IsZero() {
		return scoring.Incorrect, nil
	}
	// Only seats frozen into the draw order at game start may score; ids
	// that joined mid-game are spectators until the next game.
	if !slices.Contains(sess.PlayerOrder, playerID) {
		return scoring.Incorrect, nil
	}
	if playerID == sess.DrawerID || sess.HasGuessed(playerID) {
		return scoring.Incorrect, nil
	}

	result := scoring.Classify(guess, sess.Word)
	if result != scoring.Correct {
		return result, nil
	}

	secondsLeft := sess.TimeLeftSeconds(c.now())
	points := scoring.PointsForGuess(len(sess.GuessedUsers), secondsLeft)

	sess.Scores[playerID] += points
	sess.RoundScores[playerID] += points
	sess.Scores[sess.DrawerID] += scoring.DrawerBonus
	sess.RoundScores[sess.DrawerID] += scoring.DrawerBonus
	sess.GuessedUsers = append(sess.GuessedUsers, playerID)
	sess.CorrectGuessers = append(sess.CorrectGuessers, playerID)

	if err := c.sessions.Set(ctx, roomID, sess); err != nil {
		return scoring.Incorrect, err
	}

	c.log.Info().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Int("points", points).
		Int("seconds_left", secondsLeft).
		Msg("correct guess")

	if p := sess.FindPlayer(playerID); p != nil {
		c.emitChatLocked(roomID, sess, ChatPayload{
			Text:   p.Name + " guessed the word!",
			System: true,
		}, "")
	}

	if sess.AllGuessersCorrect() {
		if err := c.endOfRoundLocked(ctx, g, roomID); err != nil {
			return scoring.Correct, err
		}
	}
	return scoring.Correct, nil
}

// CheckRoundEnd reports whether every non-drawer has solved the round.
func (c *Coordinator) CheckRoundEnd(ctx context.Context, roomID string) (bool, error) {
	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return false, ErrRoomNotFound
	} else if err != nil {
		return false, err
	}
	return sess.AllGuessersCorrect(), nil
}

// EndOfRound closes the current round exactly once: reports scores, clears
// the per-turn ephemeral keys, and after the display delay either starts
// the next turn or ends the game. Safe to call from any trigger.
func (c *Coordinator) EndOfRound(ctx context.Context, roomID string) error {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return c.endOfRoundLocked(ctx, g, roomID)
}

func (c *Coordinator) endOfRoundLocked(ctx context.Context, g *roomGuard, roomID string) error {
	if g.roundClosed {
		c.log.Debug().Str("room_id", roomID).Msg("round already ended, trigger absorbed")
		return nil
	}

	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		c.log.Debug().Str("room_id", roomID).Msg("round end on gone session, trigger absorbed")
		return nil
	} else if err != nil {
		return err
	}
	if sess.Word == "" {
		// No drawing phase is active; nothing to close.
		c.log.Debug().Str("room_id", roomID).Msg("round end with no active word, trigger absorbed")
		return nil
	}

	g.roundClosed = true
	g.setForward(nil)

	word := sess.Word
	sess.Word = ""
	sess.TimerSeconds = 0
	sess.TimerStart = time.Time{}
	if err := c.sessions.Set(ctx, roomID, sess); err != nil {
		return err
	}
	_ = c.sessions.ClearTurnData(ctx, roomID)

	c.log.Info().
		Str("room_id", roomID).
		Int("round", sess.Round).
		Int("solved", len(sess.GuessedUsers)).
		Msg("round ended")

	c.cast.EmitToRoom(roomID, EventRoundEnded, RoundEndedPayload{
		Round:       sess.Round,
		Word:        word,
		Scores:      cloneScores(sess.Scores),
		RoundScores: cloneScores(sess.RoundScores),
	})

	if sess.TurnBudgetExhausted() {
		g.setForward(c.schedule(c.cfg.DisplayDelay, func() {
			if _, err := c.EndGame(context.Background(), roomID); err != nil {
				c.log.Error().Err(err).Str("room_id", roomID).Msg("scheduled game end failed")
			}
		}))
		return nil
	}

	g.setForward(c.schedule(c.cfg.DisplayDelay, func() {
		if err := c.StartNextTurn(context.Background(), roomID); err != nil {
			c.log.Error().Err(err).Str("room_id", roomID).Msg("scheduled next turn failed")
		}
	}))
	return nil
}

// EndGame tears the room down: captures final scores, deletes the session
// and its ephemeral keys, deletes the lobby record, and broadcasts the
// results. A second call observes the session already gone and returns nil
// scores without re-reporting.
func (c *Coordinator) EndGame(ctx context.Context, roomID string) (map[string]int, error) {
	g := c.guard(roomID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return c.endGameLocked(ctx, g, roomID)
}

func (c *Coordinator) endGameLocked(ctx context.Context, g *roomGuard, roomID string) (map[string]int, error) {
	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		c.log.Debug().Str("room_id", roomID).Msg("game end on gone session, trigger absorbed")
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	final := cloneScores(sess.Scores)

	g.cancelTimers()
	if err := c.sessions.Delete(ctx, roomID); err != nil {
		return nil, err
	}
	_ = c.sessions.ClearTurnData(ctx, roomID)
	if err := c.lobbies.Delete(ctx, roomID); err != nil && !errors.Is(err, lobby.ErrNotFound) {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("failed to delete lobby record")
	}
	c.dropGuard(roomID)

	c.log.Info().Str("room_id", roomID).Int("players", len(final)).Msg("game ended")
	c.cast.EmitToRoom(roomID, EventGameEnded, GameEndedPayload{FinalScores: final})
	return final, nil
}

// CurrentTurn is the reconnect query: the full turn state plus remaining
// time and the cached canvas, or ErrNoActiveTurn when the room has none.
func (c *Coordinator) CurrentTurn(ctx context.Context, roomID string) (*TurnSnapshot, error) {
	sess, err := c.sessions.Get(ctx, roomID)
	if errors.Is(err, state.ErrNoSession) {
		return nil, ErrNoActiveTurn
	} else if err != nil {
		return nil, err
	}
	if !sess.Started || sess.DrawerID == "" {
		return nil, ErrNoActiveTurn
	}

	canvas, _, err := c.sessions.Canvas(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return &TurnSnapshot{
		DrawerID:        sess.DrawerID,
		Word:            sess.Word,
		WordOptions:     slices.Clone(sess.WordOptions),
		Round:           sess.Round,
		TimerSeconds:    sess.TimerSeconds,
		TimeLeftSeconds: sess.TimeLeftSeconds(c.now()),
		TimerStart:      sess.TimerStart,
		TotalRounds:     sess.Settings.TotalRounds,
		Canvas:          canvas,
	}, nil
}

func cloneScores(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
