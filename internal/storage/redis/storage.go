package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/storage"
)

// Storage is a Redis-backed implementation of the directories
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Directories = (*Storage)(nil)

// User operations

// GetOrCreate claims the name index with SETNX so concurrent callers agree on one id
func (s *Storage) GetOrCreate(ctx context.Context, name string) (model.UserID, error) {
	candidate := model.UserID(uuid.NewString())
	claimed, err := s.client.SetNX(ctx, userNameIndexKey(name), string(candidate), 0).Result()
	if err != nil {
		return "", err
	}
	if !claimed {
		existing, err := s.client.Get(ctx, userNameIndexKey(name)).Result()
		if err != nil {
			return "", err
		}
		return model.UserID(existing), nil
	}

	data, err := json.Marshal(model.User{ID: candidate, Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, userKey(candidate), data, 0).Err(); err != nil {
		return "", err
	}
	return candidate, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Lobby record operations

func (s *Storage) Record(ctx context.Context, rec model.LobbyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, lobbyRecordKey(rec.LobbyID), data, s.cfg.LobbyRecordTTL).Err()
}

func (s *Storage) GetLobbyRecord(ctx context.Context, id model.LobbyID) (*model.LobbyRecord, error) {
	data, err := s.client.Get(ctx, lobbyRecordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	var rec model.LobbyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Match history operations

func (s *Storage) RecordResult(ctx context.Context, rec model.MatchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Push and trim together so the list never exceeds the cap
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, matchHistoryKey(), data)
	if s.cfg.MatchHistoryLimit > 0 {
		pipe.LTrim(ctx, matchHistoryKey(), 0, s.cfg.MatchHistoryLimit-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RecentResults(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, matchHistoryKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.MatchRecord, 0, len(raw))
	for _, item := range raw {
		var rec model.MatchRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
