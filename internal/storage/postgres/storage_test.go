package postgres

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/codeduel-go/internal/model"
)

type StorageSuite struct {
	suite.Suite
	dsn     string
	schema  string
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip test db: TEST_POSTGRES_DSN not set")
	}
	suite.Run(t, &StorageSuite{dsn: dsn})
}

func (s *StorageSuite) SetupTest() {
	s.ctx = context.Background()
	s.schema = fmt.Sprintf("test_%d", time.Now().UnixNano())

	base, err := pgxpool.New(s.ctx, s.dsn)
	s.Require().NoError(err)
	_, err = base.Exec(s.ctx, "CREATE SCHEMA "+pgx.Identifier{s.schema}.Sanitize())
	base.Close()
	s.Require().NoError(err)

	s.storage, err = New(s.ctx, withSearchPath(s.dsn, s.schema))
	s.Require().NoError(err)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	base, err := pgxpool.New(s.ctx, s.dsn)
	if err != nil {
		return
	}
	defer base.Close()
	_, _ = base.Exec(s.ctx, "DROP SCHEMA "+pgx.Identifier{s.schema}.Sanitize()+" CASCADE")
}

func withSearchPath(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func (s *StorageSuite) TestMigrateIsIdempotent() {
	s.NoError(s.storage.Migrate(s.ctx))
}

func (s *StorageSuite) TestGetOrCreateIsStablePerName() {
	alice, err := s.storage.GetOrCreate(s.ctx, "alice")
	s.Require().NoError(err)
	again, err := s.storage.GetOrCreate(s.ctx, "alice")
	s.Require().NoError(err)
	bob, err := s.storage.GetOrCreate(s.ctx, "bob")
	s.Require().NoError(err)

	s.Equal(alice, again)
	s.NotEqual(alice, bob)

	u, err := s.storage.GetUser(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal("alice", u.Name)
}

func (s *StorageSuite) TestGetUserNotFound() {
	_, err := s.storage.GetUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestLobbyRecordUpsert() {
	rec := model.LobbyRecord{
		LobbyID:        "lobby_000001",
		Name:           "friday",
		HostID:         "u1",
		HostName:       "alice",
		Visibility:     model.VisibilityPrivate,
		CredentialHash: "$2a$10$abc",
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(s.storage.Record(s.ctx, rec))
	rec.Name = "renamed"
	s.Require().NoError(s.storage.Record(s.ctx, rec))

	got, err := s.storage.GetLobbyRecord(s.ctx, "lobby_000001")
	s.Require().NoError(err)
	s.Equal("renamed", got.Name)
	s.Equal(model.VisibilityPrivate, got.Visibility)
	s.True(rec.CreatedAt.Equal(got.CreatedAt))

	_, err = s.storage.GetLobbyRecord(s.ctx, "lobby_000002")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StorageSuite) TestRecentResults() {
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 1; i <= 3; i++ {
		s.Require().NoError(s.storage.RecordResult(s.ctx, model.MatchRecord{
			LobbyID:    model.LobbyID(fmt.Sprintf("lobby_00000%d", i)),
			ProblemID:  "two-sum",
			WinnerName: "alice",
			Reason:     model.FinishSolved,
			Players:    []model.MatchPlayerRecord{{Name: "alice", TestsPassed: 5}, {Name: "bob", TestsPassed: 3}},
			StartedAt:  base,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	s.Require().NoError(s.storage.RecordResult(s.ctx, model.MatchRecord{
		LobbyID:    "lobby_000009",
		ProblemID:  "two-sum",
		Reason:     model.FinishForfeit,
		Players:    []model.MatchPlayerRecord{{Name: "carol"}},
		FinishedAt: base,
	}))

	recent, err := s.storage.RecentResults(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(model.LobbyID("lobby_000003"), recent[0].LobbyID)
	s.Equal(3, recent[0].Players[1].TestsPassed)
	s.Equal(3*time.Minute, recent[0].Duration())

	all, err := s.storage.RecentResults(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.True(all[3].StartedAt.IsZero())
}
