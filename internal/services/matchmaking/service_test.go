package matchmaking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/codeduel-go/internal/dependencies/mocks"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/problem"
	"github.com/mcoot/codeduel-go/internal/registry"
	"github.com/mcoot/codeduel-go/internal/services/directory"
	"github.com/mcoot/codeduel-go/internal/services/match"
	"github.com/mcoot/codeduel-go/internal/storage/memory"
	"github.com/mcoot/codeduel-go/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store     *lobbystore.Store
	registry  *registry.Registry
	publisher *mocks.MockPublisher
	matches   *mocks.MockRecorder
	storage   *memory.Storage
	directory *directory.Recorder
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	m := metrics.New()
	logger := testutil.NopLogger()
	s.store = lobbystore.New(m, logger)
	s.registry = registry.New(64, logger)
	s.publisher = mocks.NewMockPublisher()
	s.matches = &mocks.MockRecorder{}
	s.storage = memory.New()
	s.directory = directory.NewRecorder(s.storage, time.Second, m, logger)
	s.directory.SetHashCost(bcrypt.MinCost)
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()

	engine := match.NewEngine(s.store, mocks.NewMockGrader(), s.publisher, s.matches, s.clock, m, logger)
	s.service = New(s.store, engine, s.registry, s.publisher, s.directory,
		problem.NewCatalog(), s.clock, s.random, mocks.NewMockIDs("p"), logger)
	s.registry.SetDisconnectHandler(s.service.HandleDisconnect)
}

func (s *ServiceSuite) TearDownTest() {
	s.directory.Wait()
}

func (s *ServiceSuite) conn(id string) string {
	s.registry.Register(id, "")
	return id
}

func (s *ServiceSuite) binding(connID string) (registry.Binding, bool) {
	c, err := s.registry.Lookup(connID)
	s.Require().NoError(err)
	return c.Binding()
}

// duel creates a lobby hosted by alice and seats bob, starting the match
func (s *ServiceSuite) duel() (*model.Lobby, model.Player, model.Player) {
	l, alice, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{
		Name: "duel", Visibility: model.VisibilityPublic, PlayerName: "alice",
	})
	s.Require().NoError(err)
	l, bob, err := s.service.JoinLobby(s.conn("conn-b"), JoinRequest{LobbyID: l.ID, PlayerName: "bob"})
	s.Require().NoError(err)
	return l, alice, bob
}

func (s *ServiceSuite) TestCreateLobby() {
	l, host, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{
		Name:       "  Friday duel ",
		Visibility: model.VisibilityPrivate,
		Credential: "1234",
		PlayerName: "alice",
	})
	s.Require().NoError(err)

	s.Equal(model.LobbyID("lobby_000001"), l.ID)
	s.Equal("Friday duel", l.Name)
	s.Equal(model.StatusWaiting, l.Status)
	s.Require().Len(l.Players, 1)
	s.Equal(host.ID, l.Players[0].ID)
	s.Equal(problem.TwoSumID, l.Problem.ID)

	b, bound := s.binding("conn-a")
	s.Require().True(bound)
	s.Equal(registry.Binding{LobbyID: l.ID, ParticipantID: host.ID, Role: model.RolePlayer}, b)

	s.Equal([]model.EventKind{model.EventLobbyCreated, model.EventLobbyListUpdate}, s.publisher.Kinds())
	created := s.publisher.OfKind(model.EventLobbyCreated)[0]
	s.Equal("conn-a", created.ConnID)
	s.Equal(host.ID, created.Payload.(model.LobbyCreatedPayload).PlayerID)
	// private lobbies never show up in the listing
	s.Empty(s.publisher.OfKind(model.EventLobbyListUpdate)[0].Payload.(model.LobbyListPayload).Lobbies)
}

func (s *ServiceSuite) TestCreateLobbyWritesDirectories() {
	l, host, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{
		Name: "duel", Visibility: model.VisibilityPrivate, Credential: "4321", PlayerName: "alice",
	})
	s.Require().NoError(err)
	s.directory.Wait()

	rec, err := s.storage.GetLobbyRecord(context.Background(), l.ID)
	s.Require().NoError(err)
	s.Equal("alice", rec.HostName)
	s.NotEmpty(rec.HostID)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(rec.CredentialHash), []byte("4321")))

	snapshot, err := s.service.Lobby(l.ID)
	s.Require().NoError(err)
	s.Equal(rec.HostID, snapshot.GetPlayer(host.ID).UserID)
}

func (s *ServiceSuite) TestCreateLobbyValidation() {
	tests := []struct {
		name     string
		req      CreateRequest
		expected error
	}{
		{"empty name", CreateRequest{Name: "  ", Visibility: model.VisibilityPublic, PlayerName: "alice"}, model.ErrInvalidName},
		{"long name", CreateRequest{Name: strings.Repeat("x", 41), Visibility: model.VisibilityPublic, PlayerName: "alice"}, model.ErrInvalidName},
		{"private without credential", CreateRequest{Name: "duel", Visibility: model.VisibilityPrivate, PlayerName: "alice"}, model.ErrInvalidCredential},
		{"private with letters", CreateRequest{Name: "duel", Visibility: model.VisibilityPrivate, Credential: "12ab", PlayerName: "alice"}, model.ErrInvalidCredential},
		{"public with credential", CreateRequest{Name: "duel", Visibility: model.VisibilityPublic, Credential: "1234", PlayerName: "alice"}, model.ErrInvalidCredential},
		{"unknown visibility", CreateRequest{Name: "duel", Visibility: "secret", PlayerName: "alice"}, model.ErrInvalidVisibility},
		{"long display name", CreateRequest{Name: "duel", Visibility: model.VisibilityPublic, PlayerName: "abcdefghijklm"}, model.ErrInvalidDisplayName},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, _, err := s.service.CreateLobby(s.conn("conn-a"), tt.req)
			s.ErrorIs(err, tt.expected)
			_, bound := s.binding("conn-a")
			s.False(bound)
		})
	}
	s.Zero(s.store.Count())
}

func (s *ServiceSuite) TestCreateLobbySkipsTakenIDs() {
	s.random.QueueString("000007", "000007", "000008")

	first, _, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{Name: "one", Visibility: model.VisibilityPublic, PlayerName: "alice"})
	s.Require().NoError(err)
	second, _, err := s.service.CreateLobby(s.conn("conn-b"), CreateRequest{Name: "two", Visibility: model.VisibilityPublic, PlayerName: "bob"})
	s.Require().NoError(err)

	s.Equal(model.LobbyID("lobby_000007"), first.ID)
	s.Equal(model.LobbyID("lobby_000008"), second.ID)
}

func (s *ServiceSuite) TestCreateWhileInLobbyFails() {
	_, _, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{Name: "one", Visibility: model.VisibilityPublic, PlayerName: "alice"})
	s.Require().NoError(err)

	_, _, err = s.service.CreateLobby("conn-a", CreateRequest{Name: "two", Visibility: model.VisibilityPublic, PlayerName: "alice"})
	s.ErrorIs(err, model.ErrAlreadyInLobby)

	_, _, err = s.service.CreateLobby("ghost", CreateRequest{Name: "two", Visibility: model.VisibilityPublic, PlayerName: "alice"})
	s.ErrorIs(err, model.ErrConnectionNotFound)
	s.Equal(1, s.store.Count())
}

func (s *ServiceSuite) TestSecondJoinStartsMatch() {
	l, _, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{Name: "duel", Visibility: model.VisibilityPublic, PlayerName: "alice"})
	s.Require().NoError(err)
	s.publisher.Reset()

	l, bob, err := s.service.JoinLobby(s.conn("conn-b"), JoinRequest{LobbyID: l.ID, PlayerName: " bob "})
	s.Require().NoError(err)

	s.Equal("bob", bob.DisplayName)
	s.Equal(model.StatusPlaying, l.Status)
	s.Equal(s.clock.Now(), l.MatchStartedAt)
	s.Len(l.Players, 2)

	s.Equal([]model.EventKind{
		model.EventLobbyJoined,
		model.EventLobbyUpdate,
		model.EventGameStart,
		model.EventLobbyListUpdate,
	}, s.publisher.Kinds())
	joined := s.publisher.OfKind(model.EventLobbyJoined)[0]
	s.Equal("conn-b", joined.ConnID)
	s.Equal(2, joined.Payload.(model.LobbyJoinedPayload).PlayerCount)
	s.Empty(s.publisher.OfKind(model.EventLobbyListUpdate)[0].Payload.(model.LobbyListPayload).Lobbies)

	b, bound := s.binding("conn-b")
	s.Require().True(bound)
	s.Equal(bob.ID, b.ParticipantID)
}

func (s *ServiceSuite) TestJoinPrivateLobby() {
	l, _, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{
		Name: "secret", Visibility: model.VisibilityPrivate, Credential: "0042", PlayerName: "alice",
	})
	s.Require().NoError(err)

	_, _, err = s.service.JoinLobby(s.conn("conn-b"), JoinRequest{LobbyID: l.ID, PlayerName: "bob", Credential: "0043"})
	s.ErrorIs(err, model.ErrWrongCredential)
	_, _, err = s.service.JoinLobby("conn-b", JoinRequest{LobbyID: l.ID, PlayerName: "bob"})
	s.ErrorIs(err, model.ErrWrongCredential)

	l, _, err = s.service.JoinLobby("conn-b", JoinRequest{LobbyID: l.ID, PlayerName: "bob", Credential: "0042"})
	s.Require().NoError(err)
	s.Equal(model.StatusPlaying, l.Status)
}

func (s *ServiceSuite) TestJoinErrors() {
	s.Run("not found", func() {
		_, _, err := s.service.JoinLobby(s.conn("conn-x"), JoinRequest{LobbyID: "lobby_999999", PlayerName: "bob"})
		s.ErrorIs(err, model.ErrLobbyNotFound)
	})

	s.Run("duplicate name", func() {
		s.SetupTest()
		l, _, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{Name: "duel", Visibility: model.VisibilityPublic, PlayerName: "alice"})
		s.Require().NoError(err)
		_, _, err = s.service.JoinLobby(s.conn("conn-b"), JoinRequest{LobbyID: l.ID, PlayerName: "alice"})
		s.ErrorIs(err, model.ErrDuplicateName)
	})

	s.Run("full", func() {
		s.SetupTest()
		l, _, _ := s.duel()
		_, _, err := s.service.JoinLobby(s.conn("conn-c"), JoinRequest{LobbyID: l.ID, PlayerName: "carol"})
		s.ErrorIs(err, model.ErrLobbyFull)
	})

	s.Run("finished with a free seat", func() {
		s.SetupTest()
		l, _, bob := s.duel()
		s.Require().NoError(s.service.Leave(bob.ID))
		_, _, err := s.service.JoinLobby(s.conn("conn-c"), JoinRequest{LobbyID: l.ID, PlayerName: "carol"})
		s.ErrorIs(err, model.ErrAlreadyPlaying)
	})

	s.Run("invalid display name", func() {
		s.SetupTest()
		_, _, err := s.service.JoinLobby(s.conn("conn-c"), JoinRequest{LobbyID: "lobby_000001", PlayerName: ""})
		s.ErrorIs(err, model.ErrInvalidDisplayName)
	})
}

func (s *ServiceSuite) TestConcurrentJoinsSeatOnlyOne() {
	l, _, err := s.service.CreateLobby(s.conn("conn-host"), CreateRequest{Name: "duel", Visibility: model.VisibilityPublic, PlayerName: "host"})
	s.Require().NoError(err)

	const joiners = 10
	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i := 0; i < joiners; i++ {
		i := i
		connID := s.conn(fmt.Sprintf("conn-%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = s.service.JoinLobby(connID, JoinRequest{LobbyID: l.ID, PlayerName: fmt.Sprintf("p%d", i)})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrLobbyFull)
	}
	s.Equal(1, succeeded)
	s.Len(s.publisher.OfKind(model.EventGameStart), 1)

	snapshot, err := s.service.Lobby(l.ID)
	s.Require().NoError(err)
	s.Len(snapshot.Players, 2)
	s.Equal(model.StatusPlaying, snapshot.Status)
}

func (s *ServiceSuite) TestJoinAsSpectator() {
	l, _, _ := s.duel()
	s.publisher.Reset()

	l, spectator, err := s.service.JoinAsSpectator(s.conn("conn-s"), SpectateRequest{LobbyID: l.ID})
	s.Require().NoError(err)

	s.Equal("Spectator-0002", spectator.DisplayName)
	s.Equal(model.StatusPlaying, l.Status)
	s.Contains(l.Spectators, spectator.ID)
	s.Equal([]model.EventKind{model.EventSpectating, model.EventSpectatorListUpdate}, s.publisher.Kinds())

	b, bound := s.binding("conn-s")
	s.Require().True(bound)
	s.Equal(model.RoleSpectator, b.Role)

	_, named, err := s.service.JoinAsSpectator(s.conn("conn-t"), SpectateRequest{LobbyID: l.ID, Name: strings.Repeat("z", 30)})
	s.Require().NoError(err)
	s.Equal(strings.Repeat("z", MaxSpectatorNameLength), named.DisplayName)

	_, _, err = s.service.JoinAsSpectator(s.conn("conn-u"), SpectateRequest{LobbyID: "lobby_404404"})
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *ServiceSuite) TestHostLeavingWaitingLobbyDeletesIt() {
	l, host, err := s.service.CreateLobby(s.conn("conn-a"), CreateRequest{Name: "duel", Visibility: model.VisibilityPublic, PlayerName: "alice"})
	s.Require().NoError(err)
	s.publisher.Reset()

	s.Require().NoError(s.service.LeaveConnection("conn-a"))

	s.False(s.store.Exists(l.ID))
	_, inLobby := s.store.LobbyOf(host.ID)
	s.False(inLobby)
	_, bound := s.binding("conn-a")
	s.False(bound)
	s.Equal([]model.LobbyID{l.ID}, s.publisher.Closed())

	left := s.publisher.OfKind(model.EventLobbyLeft)
	s.Require().NotEmpty(left)
	s.Equal("conn-a", left[0].ConnID)
	s.Len(s.publisher.OfKind(model.EventLobbyListUpdate), 1)
}

func (s *ServiceSuite) TestLeaveDuringMatchForfeits() {
	l, alice, bob := s.duel()
	_, _, err := s.service.JoinAsSpectator(s.conn("conn-s"), SpectateRequest{LobbyID: l.ID, Name: "sam"})
	s.Require().NoError(err)
	s.clock.Advance(30 * time.Second)
	s.publisher.Reset()

	s.Require().NoError(s.service.LeaveConnection("conn-b"))

	snapshot, err := s.service.Lobby(l.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusFinished, snapshot.Status)
	s.Equal(model.FinishForfeit, snapshot.FinishReason)
	s.Equal(alice.ID, snapshot.Winner)
	s.Len(snapshot.Players, 1)

	finished := s.publisher.OfKind(model.EventGameFinished)
	s.Require().Len(finished, 1)
	s.Equal(registry.Everyone, finished[0].Audience)
	payload := finished[0].Payload.(model.GameFinishedPayload)
	s.Equal("alice", payload.Winner)
	_, ok := payload.ScoreOf(bob.ID)
	s.True(ok)
	s.Equal(int64(30000), payload.GameDuration)
	s.Len(s.matches.Matches(), 1)

	_, bound := s.binding("conn-b")
	s.False(bound)
	_, bound = s.binding("conn-s")
	s.True(bound)

	// the winner leaving empties the roster and closes the lobby
	s.Require().NoError(s.service.Leave(alice.ID))
	s.False(s.store.Exists(l.ID))
	s.Len(s.publisher.OfKind(model.EventGameFinished), 1)
	closed := s.publisher.OfKind(model.EventLobbyLeft)
	s.Equal(registry.Spectators, closed[len(closed)-1].Audience)
	_, bound = s.binding("conn-s")
	s.False(bound)
}

func (s *ServiceSuite) TestDisconnectIsImmediateForfeit() {
	l, alice, _ := s.duel()

	s.Require().NoError(s.registry.Unregister("conn-b"))

	snapshot, err := s.service.Lobby(l.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusFinished, snapshot.Status)
	s.Equal(alice.ID, snapshot.Winner)
	s.Len(s.publisher.OfKind(model.EventGameFinished), 1)
}

func (s *ServiceSuite) TestSpectatorLeavingNeverChangesStatus() {
	l, _, _ := s.duel()
	_, spectator, err := s.service.JoinAsSpectator(s.conn("conn-s"), SpectateRequest{LobbyID: l.ID})
	s.Require().NoError(err)
	s.publisher.Reset()

	s.Require().NoError(s.service.Leave(spectator.ID))

	snapshot, err := s.service.Lobby(l.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusPlaying, snapshot.Status)
	s.Empty(snapshot.Spectators)
	s.Equal([]model.EventKind{model.EventLobbyLeft, model.EventSpectatorListUpdate}, s.publisher.Kinds())
}

func (s *ServiceSuite) TestLeaveErrors() {
	s.ErrorIs(s.service.LeaveConnection(s.conn("conn-a")), model.ErrNotInLobby)
	s.ErrorIs(s.service.LeaveConnection("ghost"), model.ErrConnectionNotFound)
	s.ErrorIs(s.service.Leave("nobody"), model.ErrUnknownParticipant)
}

func (s *ServiceSuite) TestListLobbies() {
	for i := 0; i < 6; i++ {
		_, _, err := s.service.CreateLobby(s.conn(fmt.Sprintf("conn-%d", i)), CreateRequest{
			Name: fmt.Sprintf("Room %d", i), Visibility: model.VisibilityPublic, PlayerName: "host",
		})
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}
	_, _, err := s.service.CreateLobby(s.conn("conn-private"), CreateRequest{
		Name: "Room secret", Visibility: model.VisibilityPrivate, Credential: "1111", PlayerName: "host",
	})
	s.Require().NoError(err)

	first := s.service.ListLobbies("", 1)
	s.Require().Len(first.Lobbies, LobbiesPerPage)
	s.Equal("Room 5", first.Lobbies[0].Name)
	s.Equal(model.Pagination{Page: 1, PerPage: 4, TotalPages: 2, TotalLobbies: 6, HasNext: true}, first.Pagination)

	second := s.service.ListLobbies("", 2)
	s.Len(second.Lobbies, 2)
	s.Equal("Room 0", second.Lobbies[1].Name)
	s.True(second.Pagination.HasPrev)
	s.False(second.Pagination.HasNext)

	s.Equal(2, s.service.ListLobbies("", 99).Pagination.Page)
	s.Equal(1, s.service.ListLobbies("", -3).Pagination.Page)

	byName := s.service.ListLobbies("room 3", 1)
	s.Require().Len(byName.Lobbies, 1)
	s.Equal("Room 3", byName.Lobbies[0].Name)

	byID := s.service.ListLobbies(string(byName.Lobbies[0].ID), 1)
	s.Require().Len(byID.Lobbies, 1)

	none := s.service.ListLobbies("nothing", 1)
	s.NotNil(none.Lobbies)
	s.Empty(none.Lobbies)
	s.Equal(model.Pagination{Page: 1, PerPage: 4, TotalPages: 1}, none.Pagination)
}
