package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/illustrators/illustrators-backend/internal/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS lobbies (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	host_id      TEXT NOT NULL,
	settings     JSONB NOT NULL,
	game_started BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists lobby records in a lobbies table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect lobby store: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure lobbies schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) Create(ctx context.Context, rec Record) error {
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return fmt.Errorf("encode lobby settings: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO lobbies (id, name, host_id, settings, game_started, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Name, rec.HostID, settings, rec.GameStarted, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lobby %s: %w", rec.ID, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	rec := Record{ID: id}
	var settings []byte

	row := p.pool.QueryRow(ctx,
		`SELECT name, host_id, settings, game_started, created_at
		 FROM lobbies WHERE id = $1`, id)
	err := row.Scan(&rec.Name, &rec.HostID, &settings, &rec.GameStarted, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Record{}, ErrNotFound
	case err != nil:
		return Record{}, fmt.Errorf("get lobby %s: %w", id, err)
	}

	var s state.Settings
	if err := json.Unmarshal(settings, &s); err != nil {
		return Record{}, fmt.Errorf("decode lobby %s settings: %w", id, err)
	}
	rec.Settings = s
	return rec, nil
}

func (p *PostgresStore) SetGameStarted(ctx context.Context, id string, started bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE lobbies SET game_started = $2 WHERE id = $1`, id, started)
	if err != nil {
		return fmt.Errorf("update lobby %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM lobbies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lobby %s: %w", id, err)
	}
	return nil
}
