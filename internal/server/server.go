// Package server exposes the HTTP surface: lobby REST, the turn-state
// query used by reconnecting clients, and the websocket entrypoint.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/illustrators/illustrators-backend/internal/game"
	"github.com/illustrators/illustrators-backend/internal/lobby"
	"github.com/illustrators/illustrators-backend/internal/transport"
)

type Server struct {
	coord   *game.Coordinator
	lobbies lobby.Store
	hub     *transport.Hub
	log     zerolog.Logger
}

func New(coord *game.Coordinator, lobbies lobby.Store, hub *transport.Hub, log zerolog.Logger) *Server {
	return &Server{coord: coord, lobbies: lobbies, hub: hub, log: log}
}

// HTTPServer wraps the route handler in an http.Server with sane timeouts.
// Write timeout stays generous because websocket connections share the
// listener.
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
	}
}
