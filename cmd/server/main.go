package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/illustrators/illustrators-backend/internal/config"
	"github.com/illustrators/illustrators-backend/internal/game"
	"github.com/illustrators/illustrators-backend/internal/lobby"
	"github.com/illustrators/illustrators-backend/internal/server"
	"github.com/illustrators/illustrators-backend/internal/state"
	"github.com/illustrators/illustrators-backend/internal/transport"
	"github.com/illustrators/illustrators-backend/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := newLogger(cfg)

	store := state.NewMemStore(cfg.SweepInterval)
	defer store.Close()
	sessions := state.NewSessions(store, cfg.StateTTL, log)

	lobbies, cleanup, err := newLobbyStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("lobby store init failed")
	}
	defer cleanup()

	hub := transport.NewHub(log)
	coord := game.NewCoordinator(sessions, lobbies, hub, words.NewBank(), game.Config{
		DisplayDelay: cfg.DisplayDelay,
		GraceDelay:   cfg.GraceDelay,
	}, log)
	hub.Bind(coord)

	srv := server.New(coord, lobbies, hub, log).HTTPServer(cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(level).With().Timestamp().Logger()
}

// newLobbyStore picks Postgres when a DSN is configured, and falls back to
// the in-memory store for single-process deployments without a database.
func newLobbyStore(cfg config.Config, log zerolog.Logger) (lobby.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info().Msg("no DATABASE_URL set, lobby records held in memory")
		return lobby.NewMemStore(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := lobby.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("lobby records backed by postgres")
	return pg, pg.Close, nil
}
