package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/storage"
)

// Storage is an in-memory implementation of the directories
type Storage struct {
	mu sync.RWMutex

	users     map[model.UserID]*model.User
	nameIndex map[string]model.UserID
	lobbies   map[model.LobbyID]model.LobbyRecord
	matches   []model.MatchRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:     make(map[model.UserID]*model.User),
		nameIndex: make(map[string]model.UserID),
		lobbies:   make(map[model.LobbyID]model.LobbyRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Directories = (*Storage)(nil)

// User operations

func (s *Storage) GetOrCreate(ctx context.Context, name string) (model.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.nameIndex[name]; ok {
		return id, nil
	}
	id := model.UserID(uuid.NewString())
	s.users[id] = &model.User{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	s.nameIndex[name] = id
	return id, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// Lobby record operations

func (s *Storage) Record(ctx context.Context, rec model.LobbyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[rec.LobbyID] = rec
	return nil
}

func (s *Storage) GetLobbyRecord(ctx context.Context, id model.LobbyID) (*model.LobbyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lobbies[id]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return &rec, nil
}

// Match history operations

func (s *Storage) RecordResult(ctx context.Context, rec model.MatchRecord) error {
	rec.Players = slices.Clone(rec.Players)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, rec)
	return nil
}

func (s *Storage) RecentResults(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MatchRecord, 0, min(limit, len(s.matches)))
	for i := len(s.matches) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.matches[i]
		rec.Players = slices.Clone(rec.Players)
		out = append(out, rec)
	}
	return out, nil
}

func (s *Storage) Close() error {
	return nil
}
