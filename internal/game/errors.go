package game

import "errors"

var (
	// ErrRoomNotFound means the room has no active session in the store.
	// Timer callbacks treat this as benign; direct player actions surface it.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotEnoughPlayers rejects a start attempt with fewer than 2 players.
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")

	// ErrGameInProgress rejects a second start for a room already playing.
	ErrGameInProgress = errors.New("game already in progress")

	// ErrNotHost rejects a start attempt from anyone but the lobby host.
	ErrNotHost = errors.New("only the host can start the game")

	// ErrNotDrawer rejects word picks and canvas updates from non-drawers.
	ErrNotDrawer = errors.New("player is not the current drawer")

	// ErrInvalidWord rejects a word pick that was not among the offered options.
	ErrInvalidWord = errors.New("word is not one of the offered options")

	// ErrNoActiveTurn means a turn-state query hit a room with no running
	// turn, so the client should fall back to a lobby view.
	ErrNoActiveTurn = errors.New("no active turn")
)
