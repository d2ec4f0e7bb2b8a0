package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/illustrators/illustrators-backend/internal/game"
	"github.com/illustrators/illustrators-backend/internal/lobby"
	"github.com/illustrators/illustrators-backend/internal/state"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	// OPTIONS is matched everywhere so preflights reach the CORS
	// middleware instead of mux's 405.
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/lobby", s.createLobbyHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/lobby/{roomId}", s.getLobbyHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/lobby/{roomId}/turn", s.getTurnHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws/{roomId}", s.websocketHandler)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createLobbyRequest struct {
	Name     string         `json:"name"`
	HostID   string         `json:"host_id"`
	Settings state.Settings `json:"settings"`
}

func (s *Server) createLobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HostID == "" {
		s.writeError(w, http.StatusBadRequest, "host_id is required")
		return
	}

	rec := lobby.Record{
		ID:        uuid.NewString(),
		Name:      req.Name,
		HostID:    req.HostID,
		Settings:  req.Settings.Clamp(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.lobbies.Create(r.Context(), rec); err != nil {
		s.log.Error().Err(err).Msg("lobby create failed")
		s.writeError(w, http.StatusInternalServerError, "could not create lobby")
		return
	}

	s.log.Info().Str("room_id", rec.ID).Str("host_id", rec.HostID).Msg("lobby created")
	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getLobbyHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	rec, err := s.lobbies.Get(r.Context(), roomID)
	if errors.Is(err, lobby.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "lobby not found")
		return
	} else if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Msg("lobby lookup failed")
		s.writeError(w, http.StatusInternalServerError, "could not load lobby")
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

// getTurnHandler is the reconnect query surface: the full turn state plus
// remaining time, so a refreshed client can rebuild mid-round.
func (s *Server) getTurnHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	snap, err := s.coord.CurrentTurn(r.Context(), roomID)
	if errors.Is(err, game.ErrNoActiveTurn) {
		s.writeError(w, http.StatusNotFound, "no active turn")
		return
	} else if err != nil {
		s.log.Error().Err(err).Str("room_id", roomID).Msg("turn lookup failed")
		s.writeError(w, http.StatusInternalServerError, "could not load turn state")
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, mux.Vars(r)["roomId"])
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("error encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
