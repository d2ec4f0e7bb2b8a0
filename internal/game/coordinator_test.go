package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustrators/illustrators-backend/internal/lobby"
	"github.com/illustrators/illustrators-backend/internal/scoring"
	"github.com/illustrators/illustrators-backend/internal/state"
	"github.com/illustrators/illustrators-backend/internal/words"
)

// recordingCast captures everything the coordinator emits, standing in for
// the websocket hub.
type recordingCast struct {
	mu      sync.Mutex
	members map[string][]string
	room    []emitted
	direct  []emitted
}

type emitted struct {
	target  string
	event   string
	payload any
}

func newRecordingCast() *recordingCast {
	return &recordingCast{members: make(map[string][]string)}
}

func (r *recordingCast) EmitToRoom(roomID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = append(r.room, emitted{target: roomID, event: event, payload: payload})
}

func (r *recordingCast) EmitToPlayer(playerID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, emitted{target: playerID, event: event, payload: payload})
}

func (r *recordingCast) SocketsInRoom(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[roomID]
}

func (r *recordingCast) join(roomID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[roomID] = append(r.members[roomID], playerID)
}

func (r *recordingCast) countRoomEvents(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.room {
		if e.event == event {
			n++
		}
	}
	return n
}

func (r *recordingCast) lastRoomEvent(event string) (emitted, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.room) - 1; i >= 0; i-- {
		if r.room[i].event == event {
			return r.room[i], true
		}
	}
	return emitted{}, false
}

func (r *recordingCast) directRecipients(event string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.direct {
		if e.event == event {
			out = append(out, e.target)
		}
	}
	return out
}

type fixture struct {
	coord   *Coordinator
	cast    *recordingCast
	lobbies lobby.Store
	store   *state.MemStore
}

func newFixture(t *testing.T, bank *words.Bank) *fixture {
	t.Helper()
	store := state.NewMemStore(time.Minute)
	t.Cleanup(store.Close)

	sessions := state.NewSessions(store, state.DefaultTTL, zerolog.Nop())
	lobbies := lobby.NewMemStore()
	cast := newRecordingCast()
	if bank == nil {
		bank = words.NewBank()
	}

	coord := NewCoordinator(sessions, lobbies, cast, bank, Config{
		DisplayDelay: 30 * time.Millisecond,
		GraceDelay:   40 * time.Millisecond,
	}, zerolog.Nop())

	return &fixture{coord: coord, cast: cast, lobbies: lobbies, store: store}
}

// seat joins the players and registers their sockets with the fake hub.
func (f *fixture) seat(t *testing.T, roomID string, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		_, err := f.coord.HandleJoin(ctx, roomID, id, "player-"+id)
		require.NoError(t, err)
		f.cast.join(roomID, id)
	}
}

func TestStartGameValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.coord.StartGame(ctx, "empty", "a"), ErrRoomNotFound)

	f.seat(t, "solo", "a")
	assert.ErrorIs(t, f.coord.StartGame(ctx, "solo", "a"), ErrNotEnoughPlayers)

	f.seat(t, "r", "a", "b")
	require.NoError(t, f.lobbies.Create(ctx, lobby.Record{ID: "r", HostID: "a"}))
	assert.ErrorIs(t, f.coord.StartGame(ctx, "r", "b"), ErrNotHost)
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))
	assert.ErrorIs(t, f.coord.StartGame(ctx, "r", "a"), ErrGameInProgress)
}

func TestDrawerRotation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b", "c")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sess.PlayerOrder)
	assert.Equal(t, 0, sess.CurrentDrawerIndex)
	assert.Equal(t, "a", sess.DrawerID)
	assert.Equal(t, 1, sess.Round)

	// Two more advances finish the rotation without touching the round.
	seen := map[string]bool{sess.DrawerID: true}
	for i := 0; i < 2; i++ {
		require.NoError(t, f.coord.StartNextTurn(ctx, "r"))
		sess, err = f.coord.sessions.Get(ctx, "r")
		require.NoError(t, err)
		assert.Equal(t, 1, sess.Round)
		seen[sess.DrawerID] = true
	}
	assert.Len(t, seen, 3, "every player drew exactly once in the rotation")

	// The wrap back to the first drawer starts round 2.
	require.NoError(t, f.coord.StartNextTurn(ctx, "r"))
	sess, err = f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "a", sess.DrawerID)
	assert.Equal(t, 2, sess.Round)
}

func TestTurnStartOffersWordOptions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Empty(t, sess.Word)
	assert.Len(t, sess.WordOptions, state.DefaultWordOptionCount)
	assert.False(t, sess.WordSelectionStart.IsZero())

	ev, ok := f.cast.lastRoomEvent(EventTurnStarted)
	require.True(t, ok)
	payload := ev.payload.(TurnStartedPayload)
	assert.Equal(t, "a", payload.DrawerID)
	assert.ElementsMatch(t, sess.WordOptions, payload.WordOptions)
}

func TestSetWordForDrawer(t *testing.T) {
	bank := words.NewBankWithTiers(map[words.Difficulty][]string{
		words.Medium: {"dog", "cat", "sun"},
	})
	f := newFixture(t, bank)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	assert.ErrorIs(t, f.coord.SetWordForDrawer(ctx, "r", "b", "dog"), ErrNotDrawer)
	assert.ErrorIs(t, f.coord.SetWordForDrawer(ctx, "r", "a", "zebra"), ErrInvalidWord)

	require.NoError(t, f.coord.SetWordForDrawer(ctx, "r", "a", "dog"))
	// A second pick after confirmation is absorbed.
	require.NoError(t, f.coord.SetWordForDrawer(ctx, "r", "a", "cat"))

	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "dog", sess.Word)
	assert.Empty(t, sess.WordOptions)
	assert.Equal(t, []string{"dog"}, sess.UsedWords)
	assert.Equal(t, state.DefaultDrawingTimeSeconds, sess.TimerSeconds)
	assert.False(t, sess.TimerStart.IsZero())

	assert.Equal(t, 1, f.cast.countRoomEvents(EventWordConfirmed))
}

func TestAutoPickAfterSelectionTimeout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	options := append([]string(nil), sess.WordOptions...)

	f.coord.autoPickWord(ctx, "r")

	sess, err = f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Contains(t, options, sess.Word)
	assert.Empty(t, sess.WordOptions)

	// A second fire finds the word already set and does nothing.
	f.coord.autoPickWord(ctx, "r")
	assert.Equal(t, 1, f.cast.countRoomEvents(EventWordConfirmed))
}

func TestTrackGuessScoring(t *testing.T) {
	bank := words.NewBankWithTiers(map[words.Difficulty][]string{
		words.Easy: {"dog", "cat", "sun"},
	})
	f := newFixture(t, bank)
	ctx := context.Background()
	f.seat(t, "r", "a", "b", "c")
	require.NoError(t, f.lobbies.Create(ctx, lobby.Record{
		ID:     "r",
		HostID: "a",
		Settings: state.Settings{
			DrawingTimeSeconds:   30,
			TotalRounds:          3,
			Difficulty:           words.Easy,
			WordOptionCount:      3,
			WordSelectionSeconds: 15,
		},
	}))
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))
	require.NoError(t, f.coord.SetWordForDrawer(ctx, "r", "a", "dog"))

	// The drawer cannot guess their own word.
	res, err := f.coord.TrackGuess(ctx, "r", "a", "dog")
	require.NoError(t, err)
	assert.Equal(t, scoring.Incorrect, res)

	// A near miss is classified but scores nothing.
	res, err = f.coord.TrackGuess(ctx, "r", "b", "dig")
	require.NoError(t, err)
	assert.Equal(t, scoring.Close, res)
	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Empty(t, sess.GuessedUsers)

	// First correct guess: full timer remaining, (100+30)*2.
	res, err = f.coord.TrackGuess(ctx, "r", "b", "dog")
	require.NoError(t, err)
	assert.Equal(t, scoring.Correct, res)

	sess, err = f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 260, sess.Scores["b"])
	assert.Equal(t, 50, sess.Scores["a"])

	// A repeat from the same player is absorbed.
	res, err = f.coord.TrackGuess(ctx, "r", "b", "dog")
	require.NoError(t, err)
	assert.Equal(t, scoring.Incorrect, res)
	sess, err = f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 260, sess.Scores["b"])

	// Second correct guess closes the round: flat points, drawer bonus
	// doubles, the round ends without waiting for the drawing timer.
	res, err = f.coord.TrackGuess(ctx, "r", "c", "DOG!")
	require.NoError(t, err)
	assert.Equal(t, scoring.Correct, res)

	assert.Equal(t, 1, f.cast.countRoomEvents(EventRoundEnded))
	ev, ok := f.cast.lastRoomEvent(EventRoundEnded)
	require.True(t, ok)
	payload := ev.payload.(RoundEndedPayload)
	assert.Equal(t, 1, payload.Round)
	assert.Equal(t, "dog", payload.Word)
	assert.Equal(t, 260, payload.Scores["b"])
	assert.Equal(t, 75, payload.Scores["c"])
	assert.Equal(t, 100, payload.Scores["a"], "drawer earns 50 per solver")

	// After the display delay the next turn starts, still round 1, drawer b.
	require.Eventually(t, func() bool {
		sess, err := f.coord.sessions.Get(ctx, "r")
		return err == nil && sess.DrawerID == "b" && sess.Word == ""
	}, time.Second, 5*time.Millisecond)

	sess, err = f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Round)
	assert.Empty(t, sess.GuessedUsers)
	assert.Empty(t, sess.RoundScores)
}

func TestMidGameJoinerCannotScore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))
	f.coord.autoPickWord(ctx, "r")

	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	word := sess.Word

	// z takes a seat mid-game but is outside the frozen draw order.
	f.seat(t, "r", "z")
	res, err := f.coord.TrackGuess(ctx, "r", "z", word)
	require.NoError(t, err)
	assert.Equal(t, scoring.Incorrect, res)

	sess, err = f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sess.PlayerOrder)
	assert.Empty(t, sess.GuessedUsers)
	assert.NotContains(t, sess.Scores, "z")
	assert.NotContains(t, sess.RoundScores, "z")

	// A seated guesser still scores normally.
	res, err = f.coord.TrackGuess(ctx, "r", "b", word)
	require.NoError(t, err)
	assert.Equal(t, scoring.Correct, res)
}

func TestEndOfRoundIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))
	f.coord.autoPickWord(ctx, "r")

	require.NoError(t, f.coord.EndOfRound(ctx, "r"))
	require.NoError(t, f.coord.EndOfRound(ctx, "r"))

	assert.Equal(t, 1, f.cast.countRoomEvents(EventRoundEnded))
}

func TestEndGameIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.lobbies.Create(ctx, lobby.Record{ID: "r", HostID: "a"}))
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	final, err := f.coord.EndGame(ctx, "r")
	require.NoError(t, err)
	require.NotNil(t, final)

	// Second call observes the session already gone.
	final, err = f.coord.EndGame(ctx, "r")
	require.NoError(t, err)
	assert.Nil(t, final)

	assert.Equal(t, 1, f.cast.countRoomEvents(EventGameEnded))
	_, err = f.lobbies.Get(ctx, "r")
	assert.ErrorIs(t, err, lobby.ErrNotFound)
	_, err = f.coord.CurrentTurn(ctx, "r")
	assert.ErrorIs(t, err, ErrNoActiveTurn)
}

func TestDisconnectGraceEndsGame(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.lobbies.Create(ctx, lobby.Record{ID: "r", HostID: "a"}))
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	f.coord.HandleDisconnect(ctx, "r", "b")

	require.Eventually(t, func() bool {
		return f.cast.countRoomEvents(EventGameEnded) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.lobbies.Get(ctx, "r")
	assert.ErrorIs(t, err, lobby.ErrNotFound)
}

func TestReconnectCancelsGrace(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	f.coord.HandleDisconnect(ctx, "r", "b")
	_, err := f.coord.HandleJoin(ctx, "r", "b", "player-b")
	require.NoError(t, err)

	// Well past the grace window the game is still alive.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.cast.countRoomEvents(EventGameEnded))

	sess, err := f.coord.sessions.Get(ctx, "r")
	require.NoError(t, err)
	p := sess.FindPlayer("b")
	require.NotNil(t, p)
	assert.True(t, p.Connected)
}

func TestGuestJoinMintsIdentity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	seated, err := f.coord.HandleJoin(ctx, "r", "", "anon")
	require.NoError(t, err)
	assert.NotEmpty(t, seated.ID)
	assert.Equal(t, state.KindGuest, seated.Kind)
	assert.True(t, seated.Connected)
}

func TestCurrentTurnSnapshot(t *testing.T) {
	bank := words.NewBankWithTiers(map[words.Difficulty][]string{
		words.Medium: {"dog", "cat", "sun"},
	})
	f := newFixture(t, bank)
	ctx := context.Background()

	_, err := f.coord.CurrentTurn(ctx, "r")
	assert.ErrorIs(t, err, ErrNoActiveTurn)

	f.seat(t, "r", "a", "b")
	_, err = f.coord.CurrentTurn(ctx, "r")
	assert.ErrorIs(t, err, ErrNoActiveTurn, "waiting room has no turn yet")

	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))
	require.NoError(t, f.coord.SetWordForDrawer(ctx, "r", "a", "dog"))

	snap, err := f.coord.CurrentTurn(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "a", snap.DrawerID)
	assert.Equal(t, "dog", snap.Word)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, state.DefaultTotalRounds, snap.TotalRounds)
	assert.Equal(t, state.DefaultDrawingTimeSeconds, snap.TimerSeconds)
	assert.InDelta(t, snap.TimerSeconds, snap.TimeLeftSeconds, 1)
	assert.JSONEq(t, string(state.BlankCanvas), string(snap.Canvas))
}

func TestGameEndsAfterAllRounds(t *testing.T) {
	bank := words.NewBankWithTiers(map[words.Difficulty][]string{
		words.Medium: {"dog", "cat", "sun", "hat", "pen", "cup", "map", "bee"},
	})
	f := newFixture(t, bank)
	ctx := context.Background()
	f.seat(t, "r", "a", "b")
	require.NoError(t, f.coord.StartGame(ctx, "r", "a"))

	// Drive 2 players * 3 rounds = 6 turns by letting each round time out.
	for turn := 0; turn < 6; turn++ {
		f.coord.autoPickWord(ctx, "r")
		require.NoError(t, f.coord.EndOfRound(ctx, "r"))
		if turn < 5 {
			require.Eventually(t, func() bool {
				sess, err := f.coord.sessions.Get(ctx, "r")
				return err == nil && sess.Word == "" && len(sess.WordOptions) > 0
			}, time.Second, 5*time.Millisecond, "turn %d did not advance", turn)
		}
	}

	require.Eventually(t, func() bool {
		return f.cast.countRoomEvents(EventGameEnded) == 1
	}, time.Second, 5*time.Millisecond)
}
