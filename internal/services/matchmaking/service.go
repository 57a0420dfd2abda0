// Package matchmaking creates lobbies, seats players and spectators, and
// releases seats on leave or disconnect.
package matchmaking

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/codeduel-go/internal/broadcast"
	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/dependencies/ids"
	"github.com/mcoot/codeduel-go/internal/dependencies/random"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/problem"
	"github.com/mcoot/codeduel-go/internal/registry"
	"github.com/mcoot/codeduel-go/internal/services/match"
)

const (
	// LobbyIDDigits is the number of digits after the lobby_ prefix
	LobbyIDDigits = 6
	// LobbiesPerPage is the page size of the public lobby listing
	LobbiesPerPage = 4
	// MaxSpectatorNameLength caps spectator names; longer names are cut
	MaxSpectatorNameLength = 24

	maxLobbyIDAttempts = 100
)

var errLobbyIDExhausted = errors.New("could not allocate a free lobby id")

// Directory receives fire-and-forget user and lobby records
type Directory interface {
	EnsureUser(name string, onResolved func(model.UserID))
	RecordLobby(rec model.LobbyRecord, credential string)
}

// CreateRequest is the input to CreateLobby
type CreateRequest struct {
	Name       string
	Visibility model.Visibility
	Credential string
	PlayerName string
}

// JoinRequest is the input to JoinLobby
type JoinRequest struct {
	LobbyID    model.LobbyID
	PlayerName string
	Credential string
}

// SpectateRequest is the input to JoinAsSpectator. Name may be empty.
type SpectateRequest struct {
	LobbyID model.LobbyID
	Name    string
}

// Service manages lobby membership
type Service struct {
	store     *lobbystore.Store
	engine    *match.Engine
	registry  *registry.Registry
	pub       broadcast.Publisher
	directory Directory
	catalog   *problem.Catalog
	clock     clock.Clock
	random    random.Random
	ids       ids.Generator
	logger    *slog.Logger
}

// New creates a matchmaking service. directory may be nil.
func New(
	store *lobbystore.Store,
	engine *match.Engine,
	reg *registry.Registry,
	pub broadcast.Publisher,
	directory Directory,
	catalog *problem.Catalog,
	clk clock.Clock,
	rnd random.Random,
	idGen ids.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		engine:    engine,
		registry:  reg,
		pub:       pub,
		directory: directory,
		catalog:   catalog,
		clock:     clk,
		random:    rnd,
		ids:       idGen,
		logger:    logger.With(slog.String("component", "matchmaking")),
	}
}

// CreateLobby opens a waiting lobby with the connection's player as host
func (s *Service) CreateLobby(connID string, req CreateRequest) (*model.Lobby, model.Player, error) {
	if err := s.requireUnbound(connID); err != nil {
		return nil, model.Player{}, err
	}

	now := s.clock.Now()
	host := model.Player{
		ID:          model.ParticipantID(s.ids.NewID()),
		DisplayName: req.PlayerName,
		JoinedAt:    now,
	}
	spec := model.LobbySpec{
		Name:       req.Name,
		Visibility: req.Visibility,
		Credential: req.Credential,
		Problem:    s.catalog.Default(),
		Host:       host,
		CreatedAt:  now,
	}

	var lobby *model.Lobby
	for attempt := 0; ; attempt++ {
		if attempt == maxLobbyIDAttempts {
			return nil, model.Player{}, errLobbyIDExhausted
		}
		spec.ID = model.LobbyID("lobby_" + random.Digits(s.random, LobbyIDDigits))
		if s.store.Exists(spec.ID) {
			continue
		}
		var err error
		lobby, err = s.store.Create(spec)
		if errors.Is(err, model.ErrDuplicateLobbyID) {
			continue
		}
		if err != nil {
			return nil, model.Player{}, err
		}
		break
	}
	host = lobby.Players[0]

	if err := s.registry.Bind(connID, lobby.ID, host.ID, model.RolePlayer); err != nil {
		s.abandon(host.ID)
		return nil, model.Player{}, err
	}

	s.pub.Reply(lobby.ID, connID, model.EventLobbyCreated, model.LobbyCreatedPayload{
		LobbyID:  lobby.ID,
		PlayerID: host.ID,
		Lobby:    model.ViewOf(lobby),
	})
	s.publishLobbyList()

	s.resolveUser(lobby.ID, host)
	if s.directory != nil {
		s.directory.RecordLobby(model.LobbyRecord{
			LobbyID:    lobby.ID,
			Name:       lobby.Name,
			HostName:   host.DisplayName,
			Visibility: lobby.Visibility,
			CreatedAt:  lobby.CreatedAt,
		}, lobby.Credential)
	}

	s.logger.Info("lobby created",
		slog.String("lobby_id", string(lobby.ID)),
		slog.String("visibility", string(lobby.Visibility)),
		slog.String("host", host.DisplayName))
	return lobby, host, nil
}

// JoinLobby seats the connection's player. Filling the second seat starts
// the match in the same update.
func (s *Service) JoinLobby(connID string, req JoinRequest) (*model.Lobby, model.Player, error) {
	if err := s.requireUnbound(connID); err != nil {
		return nil, model.Player{}, err
	}
	name, err := model.NormalizeDisplayName(req.PlayerName)
	if err != nil {
		return nil, model.Player{}, err
	}

	now := s.clock.Now()
	player := model.Player{
		ID:          model.ParticipantID(s.ids.NewID()),
		DisplayName: name,
		JoinedAt:    now,
	}
	started := false
	lobby, err := s.store.Update(req.LobbyID, func(l *model.Lobby) error {
		if l.IsPrivate() && subtle.ConstantTimeCompare([]byte(req.Credential), []byte(l.Credential)) != 1 {
			return model.ErrWrongCredential
		}
		if l.IsFull() {
			return model.ErrLobbyFull
		}
		if l.Status != model.StatusWaiting {
			return model.ErrAlreadyPlaying
		}
		if l.HasPlayerName(name) {
			return model.ErrDuplicateName
		}
		l.Players = append(l.Players, player)
		if l.IsFull() {
			if err := s.engine.Start(l, now); err != nil {
				return err
			}
			started = true
		}
		return nil
	})
	if err != nil {
		return nil, model.Player{}, err
	}
	player = *lobby.GetPlayer(player.ID)

	if err := s.registry.Bind(connID, lobby.ID, player.ID, model.RolePlayer); err != nil {
		s.abandon(player.ID)
		return nil, model.Player{}, err
	}

	view := model.ViewOf(lobby)
	s.pub.Reply(lobby.ID, connID, model.EventLobbyJoined, model.LobbyJoinedPayload{
		LobbyID:     lobby.ID,
		PlayerID:    player.ID,
		Lobby:       view,
		PlayerCount: len(lobby.Players),
	})
	s.pub.Publish(lobby.ID, model.EventLobbyUpdate, model.LobbyUpdatePayload{
		Lobby:   view,
		Players: view.Players,
	}, registry.Everyone)
	if started {
		s.engine.AnnounceStart(lobby)
	}
	s.publishLobbyList()
	s.resolveUser(lobby.ID, player)

	s.logger.Info("player joined lobby",
		slog.String("lobby_id", string(lobby.ID)),
		slog.String("player", player.DisplayName),
		slog.Int("player_count", len(lobby.Players)))
	return lobby, player, nil
}

// JoinAsSpectator adds the connection as a spectator. Any status is accepted.
func (s *Service) JoinAsSpectator(connID string, req SpectateRequest) (*model.Lobby, model.Spectator, error) {
	if err := s.requireUnbound(connID); err != nil {
		return nil, model.Spectator{}, err
	}

	spectator := model.Spectator{
		ID:          model.ParticipantID(s.ids.NewID()),
		DisplayName: s.spectatorName(req.Name),
		JoinedAt:    s.clock.Now(),
	}
	lobby, err := s.store.Update(req.LobbyID, func(l *model.Lobby) error {
		l.Spectators[spectator.ID] = spectator
		return nil
	})
	if err != nil {
		return nil, model.Spectator{}, err
	}

	if err := s.registry.Bind(connID, lobby.ID, spectator.ID, model.RoleSpectator); err != nil {
		s.abandon(spectator.ID)
		return nil, model.Spectator{}, err
	}

	view := model.ViewOf(lobby)
	s.pub.Reply(lobby.ID, connID, model.EventSpectating, model.SpectatingPayload{
		LobbyID:     lobby.ID,
		SpectatorID: spectator.ID,
		Lobby:       view,
	})
	s.pub.Publish(lobby.ID, model.EventSpectatorListUpdate, model.SpectatorListPayload{
		Spectators: view.Spectators,
	}, registry.Everyone)

	s.logger.Info("spectator joined lobby",
		slog.String("lobby_id", string(lobby.ID)),
		slog.String("spectator", spectator.DisplayName))
	return lobby, spectator, nil
}

// LeaveConnection releases whatever seat the connection holds
func (s *Service) LeaveConnection(connID string) error {
	c, err := s.registry.Lookup(connID)
	if err != nil {
		return err
	}
	b, ok := c.Binding()
	if !ok {
		return model.ErrNotInLobby
	}
	return s.Leave(b.ParticipantID)
}

// HandleDisconnect treats a lost transport as an immediate leave
func (s *Service) HandleDisconnect(connID string, b registry.Binding) {
	err := s.Leave(b.ParticipantID)
	if err != nil && !errors.Is(err, model.ErrUnknownParticipant) {
		s.logger.Warn("leave on disconnect failed",
			slog.String("conn_id", connID),
			slog.String("lobby_id", string(b.LobbyID)),
			slog.Any("error", err))
	}
}

// Leave removes a player or spectator. A player leaving a playing lobby
// forfeits to the opponent; the lobby is deleted once no players remain.
func (s *Service) Leave(participant model.ParticipantID) error {
	lobbyID, ok := s.store.LobbyOf(participant)
	if !ok {
		return model.ErrUnknownParticipant
	}

	var outcome *match.Outcome
	role := model.RolePlayer
	lobby, err := s.store.Update(lobbyID, func(l *model.Lobby) error {
		if _, ok := l.GetSpectator(participant); ok {
			role = model.RoleSpectator
			delete(l.Spectators, participant)
			return nil
		}
		if l.GetPlayer(participant) == nil {
			return model.ErrUnknownParticipant
		}
		if l.Status == model.StatusPlaying {
			o, err := s.engine.Forfeit(l, participant, s.clock.Now())
			if err != nil {
				return err
			}
			outcome = &o
		}
		l.RemovePlayer(participant)
		return nil
	})
	if err != nil {
		return err
	}

	if outcome != nil {
		s.engine.Announce(*outcome)
	}
	s.detach(lobbyID, participant)

	view := model.ViewOf(lobby)
	deleted := len(lobby.Players) == 0
	switch {
	case deleted:
		s.closeLobby(lobbyID)
	case role == model.RoleSpectator:
		s.pub.Publish(lobbyID, model.EventSpectatorListUpdate, model.SpectatorListPayload{
			Spectators: view.Spectators,
		}, registry.Everyone)
	default:
		s.pub.Publish(lobbyID, model.EventLobbyUpdate, model.LobbyUpdatePayload{
			Lobby:   view,
			Players: view.Players,
		}, registry.Everyone)
	}
	if role == model.RolePlayer {
		s.publishLobbyList()
	}

	s.logger.Info("participant left lobby",
		slog.String("lobby_id", string(lobbyID)),
		slog.String("participant_id", string(participant)),
		slog.String("role", string(role)),
		slog.Bool("lobby_deleted", deleted),
		slog.Bool("forfeit", outcome != nil))
	return nil
}

// ListLobbies returns one page of public waiting lobbies whose name or id
// contains search, newest first. Out of range pages are clamped.
func (s *Service) ListLobbies(search string, page int) model.LobbyListPayload {
	needle := strings.ToLower(strings.TrimSpace(search))
	summaries := make([]model.LobbySummary, 0)
	for _, l := range s.store.ListPublicWaiting() {
		if needle != "" &&
			!strings.Contains(strings.ToLower(l.Name), needle) &&
			!strings.Contains(strings.ToLower(string(l.ID)), needle) {
			continue
		}
		summaries = append(summaries, l.Summary())
	}

	total := len(summaries)
	totalPages := max(1, (total+LobbiesPerPage-1)/LobbiesPerPage)
	page = min(max(page, 1), totalPages)
	start := min((page-1)*LobbiesPerPage, total)
	end := min(start+LobbiesPerPage, total)

	return model.LobbyListPayload{
		Lobbies: summaries[start:end],
		Pagination: model.Pagination{
			Page:         page,
			PerPage:      LobbiesPerPage,
			TotalPages:   totalPages,
			TotalLobbies: total,
			HasNext:      page < totalPages,
			HasPrev:      page > 1,
		},
	}
}

// Lobby returns a snapshot of one lobby
func (s *Service) Lobby(id model.LobbyID) (*model.Lobby, error) {
	return s.store.Get(id)
}

func (s *Service) requireUnbound(connID string) error {
	c, err := s.registry.Lookup(connID)
	if err != nil {
		return err
	}
	if b, bound := c.Binding(); bound {
		return fmt.Errorf("%w: %s", model.ErrAlreadyInLobby, b.LobbyID)
	}
	return nil
}

// detach acknowledges the leave to the participant's connections and unbinds them
func (s *Service) detach(lobbyID model.LobbyID, participant model.ParticipantID) {
	for _, c := range s.registry.ConnectionsFor(lobbyID, registry.Only(participant)) {
		s.pub.Reply(lobbyID, c.ID(), model.EventLobbyLeft, model.LobbyLeftPayload{
			LobbyID: lobbyID,
			Message: "Left lobby successfully",
		})
		if _, err := s.registry.Unbind(c.ID()); err != nil {
			s.logger.Debug("unbind after leave failed",
				slog.String("conn_id", c.ID()),
				slog.Any("error", err))
		}
	}
}

// closeLobby tells remaining spectators the lobby is gone and drops its hub
func (s *Service) closeLobby(lobbyID model.LobbyID) {
	s.pub.Publish(lobbyID, model.EventLobbyLeft, model.LobbyLeftPayload{
		LobbyID: lobbyID,
		Message: "Lobby closed",
	}, registry.Spectators)
	s.registry.UnbindLobby(lobbyID)
	s.pub.CloseLobby(lobbyID)
}

// abandon undoes a seat whose connection vanished before it could be bound
func (s *Service) abandon(participant model.ParticipantID) {
	if err := s.Leave(participant); err != nil {
		s.logger.Warn("failed to release unbound seat",
			slog.String("participant_id", string(participant)),
			slog.Any("error", err))
	}
}

func (s *Service) publishLobbyList() {
	s.pub.PublishGlobal(model.EventLobbyListUpdate, s.ListLobbies("", 1))
}

// resolveUser links the player to a directory user once the lookup returns
func (s *Service) resolveUser(lobbyID model.LobbyID, p model.Player) {
	if s.directory == nil {
		return
	}
	s.directory.EnsureUser(p.DisplayName, func(uid model.UserID) {
		_, err := s.store.Update(lobbyID, func(l *model.Lobby) error {
			seated := l.GetPlayer(p.ID)
			if seated == nil {
				return model.ErrUnknownParticipant
			}
			seated.UserID = uid
			return nil
		})
		if err != nil {
			s.logger.Debug("user resolved after player left",
				slog.String("lobby_id", string(lobbyID)),
				slog.String("participant_id", string(p.ID)))
		}
	})
}

func (s *Service) spectatorName(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return "Spectator-" + random.Digits(s.random, 4)
	}
	if utf8.RuneCountInString(name) > MaxSpectatorNameLength {
		name = string([]rune(name)[:MaxSpectatorNameLength])
	}
	return name
}
