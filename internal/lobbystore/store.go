// Package lobbystore holds the authoritative in-memory lobby table.
//
// Every lobby has its own mutex. Mutations run against a working copy
// and are committed only when the lobby invariants still hold, so a
// failed update never leaves a half-applied lobby behind.
package lobbystore

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
)

type entry struct {
	mu      sync.Mutex
	lobby   *model.Lobby
	deleted bool
}

// Store is the lobby table. Lock order is entry.mu before Store.mu;
// Store.mu is never held while waiting on a lobby.
type Store struct {
	mu           sync.RWMutex
	lobbies      map[model.LobbyID]*entry
	participants map[model.ParticipantID]model.LobbyID

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an empty store
func New(m *metrics.Metrics, logger *slog.Logger) *Store {
	return &Store{
		lobbies:      make(map[model.LobbyID]*entry),
		participants: make(map[model.ParticipantID]model.LobbyID),
		metrics:      m,
		logger:       logger.With(slog.String("component", "lobbystore")),
	}
}

// Create validates spec and inserts a waiting lobby seated with the host
func (s *Store) Create(spec model.LobbySpec) (*model.Lobby, error) {
	name, err := model.NormalizeLobbyName(spec.Name)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateAccess(spec.Visibility, spec.Credential); err != nil {
		return nil, err
	}
	hostName, err := model.NormalizeDisplayName(spec.Host.DisplayName)
	if err != nil {
		return nil, err
	}

	host := spec.Host
	host.DisplayName = hostName
	lobby := &model.Lobby{
		ID:         spec.ID,
		Name:       name,
		Visibility: spec.Visibility,
		Credential: spec.Credential,
		Status:     model.StatusWaiting,
		Problem:    spec.Problem,
		Players:    []model.Player{host},
		Spectators: make(map[model.ParticipantID]model.Spectator),
		CreatedAt:  spec.CreatedAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[lobby.ID]; exists {
		return nil, model.ErrDuplicateLobbyID
	}
	if other, ok := s.participants[host.ID]; ok {
		return nil, fmt.Errorf("%w: participant %s is in %s", model.ErrAlreadyInLobby, host.ID, other)
	}
	s.lobbies[lobby.ID] = &entry{lobby: lobby}
	s.participants[host.ID] = lobby.ID
	s.metrics.LobbiesCreated.Inc()
	s.metrics.ActiveLobbies.Inc()

	s.logger.Debug("lobby created",
		slog.String("lobby_id", string(lobby.ID)),
		slog.String("visibility", string(lobby.Visibility)))
	return lobby.Clone(), nil
}

// Exists reports whether a lobby id is taken
func (s *Store) Exists(id model.LobbyID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[id]
	return ok
}

// Get returns a snapshot of the lobby
func (s *Store) Get(id model.LobbyID) (*model.Lobby, error) {
	var snapshot *model.Lobby
	err := s.View(id, func(l *model.Lobby) error {
		snapshot = l.Clone()
		return nil
	})
	return snapshot, err
}

// View runs fn with the lobby locked. fn must not modify or retain the lobby.
func (s *Store) View(id model.LobbyID, fn func(l *model.Lobby) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return model.ErrLobbyNotFound
	}
	return fn(e.lobby)
}

// Update runs fn against a working copy of the lobby under its lock, checks
// the invariants and commits. An error from fn or the checks discards the
// copy. A commit that leaves no seated players removes the lobby. The
// returned snapshot is the committed state.
func (s *Store) Update(id model.LobbyID, fn func(l *model.Lobby) error) (*model.Lobby, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, model.ErrLobbyNotFound
	}

	working := e.lobby.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := checkInvariants(e.lobby, working); err != nil {
		s.logger.Error("rejected lobby update",
			slog.String("lobby_id", string(id)),
			slog.Any("error", err))
		return nil, err
	}

	removed := len(working.Players) == 0
	if err := s.reindex(e.lobby, working, removed); err != nil {
		return nil, err
	}
	e.lobby = working
	if removed {
		e.deleted = true
		s.logger.Debug("lobby removed with empty roster", slog.String("lobby_id", string(id)))
	}
	return working.Clone(), nil
}

// Delete removes a lobby and its participant index entries
func (s *Store) Delete(id model.LobbyID) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return model.ErrLobbyNotFound
	}
	e.deleted = true

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(e.lobby)
	return nil
}

// ListPublicWaiting returns snapshots of public lobbies still waiting for
// players, newest first
func (s *Store) ListPublicWaiting() []*model.Lobby {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.lobbies))
	for _, e := range s.lobbies {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*model.Lobby
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.lobby.Visibility == model.VisibilityPublic && e.lobby.Status == model.StatusWaiting {
			out = append(out, e.lobby.Clone())
		}
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b *model.Lobby) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// LobbyOf returns the lobby a participant is seated or spectating in
func (s *Store) LobbyOf(participant model.ParticipantID) (model.LobbyID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.participants[participant]
	return id, ok
}

// Count returns the number of live lobbies
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}

func (s *Store) lookup(id model.LobbyID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.lobbies[id]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return e, nil
}

// reindex moves participant index entries from before to after
func (s *Store) reindex(before, after *model.Lobby, removed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if removed {
		s.dropLocked(before)
		return nil
	}

	current := make(map[model.ParticipantID]bool)
	for _, id := range after.Participants() {
		current[id] = true
		if other, ok := s.participants[id]; ok && other != after.ID {
			return fmt.Errorf("%w: participant %s is in %s", model.ErrAlreadyInLobby, id, other)
		}
	}
	for _, id := range before.Participants() {
		if !current[id] {
			delete(s.participants, id)
		}
	}
	for id := range current {
		s.participants[id] = after.ID
	}
	return nil
}

func (s *Store) dropLocked(l *model.Lobby) {
	for _, id := range l.Participants() {
		if s.participants[id] == l.ID {
			delete(s.participants, id)
		}
	}
	if _, ok := s.lobbies[l.ID]; ok {
		delete(s.lobbies, l.ID)
		s.metrics.ActiveLobbies.Dec()
	}
}
