// Package postgres implements the directories on PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Storage wraps a pgx pool
type Storage struct {
	pool *pgxpool.Pool
}

// New connects, pings and applies the schema
func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	s := &Storage{pool: pool}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the directory tables if they do not exist
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

var _ storage.Directories = (*Storage)(nil)

func (s *Storage) GetOrCreate(ctx context.Context, name string) (model.UserID, error) {
	// The no-op update makes RETURNING yield the existing row on conflict
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, uuid.NewString(), name)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return model.UserID(id), nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, created_at FROM users WHERE id = $1`, string(id))
	var u model.User
	var uid string
	if err := row.Scan(&uid, &u.Name, &u.CreatedAt); err != nil {
		return nil, mapNotFound(err, model.ErrUserNotFound)
	}
	u.ID = model.UserID(uid)
	return &u, nil
}

func (s *Storage) Record(ctx context.Context, rec model.LobbyRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lobby_records (lobby_id, name, host_id, host_name, visibility, credential_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lobby_id) DO UPDATE SET
			name = EXCLUDED.name,
			host_id = EXCLUDED.host_id,
			host_name = EXCLUDED.host_name,
			visibility = EXCLUDED.visibility,
			credential_hash = EXCLUDED.credential_hash,
			created_at = EXCLUDED.created_at`,
		string(rec.LobbyID), rec.Name, string(rec.HostID), rec.HostName,
		string(rec.Visibility), rec.CredentialHash, rec.CreatedAt)
	return err
}

func (s *Storage) GetLobbyRecord(ctx context.Context, id model.LobbyID) (*model.LobbyRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT lobby_id, name, host_id, host_name, visibility, credential_hash, created_at
		FROM lobby_records WHERE lobby_id = $1`, string(id))
	var (
		rec                                   model.LobbyRecord
		lobbyID, hostID, visibility, hostName string
	)
	if err := row.Scan(&lobbyID, &rec.Name, &hostID, &hostName, &visibility, &rec.CredentialHash, &rec.CreatedAt); err != nil {
		return nil, mapNotFound(err, model.ErrLobbyNotFound)
	}
	rec.LobbyID = model.LobbyID(lobbyID)
	rec.HostID = model.UserID(hostID)
	rec.HostName = hostName
	rec.Visibility = model.Visibility(visibility)
	return &rec, nil
}

func (s *Storage) RecordResult(ctx context.Context, rec model.MatchRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	var started *time.Time
	if !rec.StartedAt.IsZero() {
		started = &rec.StartedAt
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO match_results (lobby_id, problem_id, winner_id, winner_name, reason, players, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(rec.LobbyID), string(rec.ProblemID), string(rec.WinnerID), rec.WinnerName,
		string(rec.Reason), players, started, rec.FinishedAt)
	return err
}

func (s *Storage) RecentResults(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT lobby_id, problem_id, winner_id, winner_name, reason, players, started_at, finished_at
		FROM match_results ORDER BY finished_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchRecord
	for rows.Next() {
		var (
			rec                                  model.MatchRecord
			lobbyID, problemID, winnerID, reason string
			players                              []byte
			started                              *time.Time
		)
		if err := rows.Scan(&lobbyID, &problemID, &winnerID, &rec.WinnerName, &reason, &players, &started, &rec.FinishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, fmt.Errorf("decode players: %w", err)
		}
		rec.LobbyID = model.LobbyID(lobbyID)
		rec.ProblemID = model.ProblemID(problemID)
		rec.WinnerID = model.UserID(winnerID)
		rec.Reason = model.FinishReason(reason)
		if started != nil {
			rec.StartedAt = *started
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return err
}
