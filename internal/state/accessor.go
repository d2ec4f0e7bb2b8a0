package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoSession is returned when a room has no active game state. Absence
// means either "never started" or "ended and cleaned up"; callers that
// need to tell them apart must consult the lobby record.
var ErrNoSession = errors.New("no active game session")

// DefaultTTL bounds how long orphaned room state survives in the store.
const DefaultTTL = 2 * time.Hour

// Sessions is the typed accessor over the store: it owns the key schema
// for a room's state and its scoped ephemeral values (canvas snapshot,
// timer markers).
type Sessions struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
}

func NewSessions(store Store, ttl time.Duration, log zerolog.Logger) *Sessions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sessions{store: store, ttl: ttl, log: log}
}

func sessionKey(roomID string) string { return "gamestate:" + roomID }
func canvasKey(roomID string) string { return "canvas:" + roomID }
func timerStartKey(roomID string) string { return "timer:" + roomID + ":start" }
func timerDurationKey(roomID string) string { return "timer:" + roomID + ":duration" }

// Get loads a room's session, or ErrNoSession when absent.
func (s *Sessions) Get(ctx context.Context, roomID string) (*Session, error) {
	raw, ok, err := s.store.Get(ctx, sessionKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", roomID, err)
	}
	if !ok {
		return nil, ErrNoSession
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", roomID, err)
	}
	return &sess, nil
}

// Set replaces a room's session wholesale, refreshing its TTL.
func (s *Sessions) Set(ctx context.Context, roomID string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", roomID, err)
	}
	if err := s.store.Set(ctx, sessionKey(roomID), raw, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", roomID, err)
	}
	return nil
}

// Update applies fn to the current session (a zero-value Session when none
// exists yet, matching the waiting-room join flow) and writes the result
// back. This is a read-merge-write: callers are responsible for
// serializing updates to the same room.
func (s *Sessions) Update(ctx context.Context, roomID string, fn func(*Session)) error {
	sess, err := s.Get(ctx, roomID)
	if errors.Is(err, ErrNoSession) {
		sess = &Session{}
	} else if err != nil {
		return err
	}

	fn(sess)
	return s.Set(ctx, roomID, sess)
}

// Delete removes a room's session.
func (s *Sessions) Delete(ctx context.Context, roomID string) error {
	return s.store.Delete(ctx, sessionKey(roomID))
}

// Canvas returns the cached drawing-surface snapshot, an opaque blob
// relayed as-is to clients.
func (s *Sessions) Canvas(ctx context.Context, roomID string) (json.RawMessage, bool, error) {
	raw, ok, err := s.store.Get(ctx, canvasKey(roomID))
	return raw, ok, err
}

// SetCanvas caches the drawing-surface snapshot.
func (s *Sessions) SetCanvas(ctx context.Context, roomID string, blob json.RawMessage) error {
	return s.store.Set(ctx, canvasKey(roomID), blob, s.ttl)
}

// BlankCanvas is the empty drawing surface seeded at the start of a turn.
var BlankCanvas = json.RawMessage(`{"version":"4.6.0","objects":[]}`)

// EnsureCanvas seeds a blank snapshot when none is cached and returns the
// current one.
func (s *Sessions) EnsureCanvas(ctx context.Context, roomID string) (json.RawMessage, error) {
	blob, ok, err := s.Canvas(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ok {
		return blob, nil
	}
	if err := s.SetCanvas(ctx, roomID, BlankCanvas); err != nil {
		return nil, err
	}
	return BlankCanvas, nil
}

// SetTimerMarkers records when the drawing timer began and how long it
// runs, so any client (including late joiners) can derive remaining time.
func (s *Sessions) SetTimerMarkers(ctx context.Context, roomID string, start time.Time, duration time.Duration) error {
	startVal := strconv.FormatInt(start.UnixMilli(), 10)
	if err := s.store.Set(ctx, timerStartKey(roomID), []byte(startVal), s.ttl); err != nil {
		return err
	}
	durVal := strconv.Itoa(int(duration.Seconds()))
	return s.store.Set(ctx, timerDurationKey(roomID), []byte(durVal), s.ttl)
}

// TimerMarkers loads the drawing-timer start and duration; ok is false
// when no timer is recorded for the room.
func (s *Sessions) TimerMarkers(ctx context.Context, roomID string) (start time.Time, duration time.Duration, ok bool, err error) {
	rawStart, okStart, err := s.store.Get(ctx, timerStartKey(roomID))
	if err != nil || !okStart {
		return time.Time{}, 0, false, err
	}
	rawDur, okDur, err := s.store.Get(ctx, timerDurationKey(roomID))
	if err != nil || !okDur {
		return time.Time{}, 0, false, err
	}

	ms, err := strconv.ParseInt(string(rawStart), 10, 64)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("bad timer start for %s: %w", roomID, err)
	}
	secs, err := strconv.Atoi(string(rawDur))
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("bad timer duration for %s: %w", roomID, err)
	}
	return time.UnixMilli(ms), time.Duration(secs) * time.Second, true, nil
}

// ClearTurnData drops the per-turn ephemeral keys (canvas and timer
// markers) so nothing stale leaks into the next turn.
func (s *Sessions) ClearTurnData(ctx context.Context, roomID string) error {
	var firstErr error
	for _, key := range []string{canvasKey(roomID), timerStartKey(roomID), timerDurationKey(roomID)} {
		if err := s.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		s.log.Warn().Err(firstErr).Str("room_id", roomID).Msg("failed to clear turn data")
	}
	return firstErr
}
