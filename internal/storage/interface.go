package storage

import (
	"context"

	"github.com/mcoot/codeduel-go/internal/model"
)

// UserDirectory resolves display names to durable user ids
type UserDirectory interface {
	// GetOrCreate returns the user id for name, creating the user on first sight
	GetOrCreate(ctx context.Context, name string) (model.UserID, error)
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
}

// LobbyDirectory keeps a record of every lobby created
type LobbyDirectory interface {
	Record(ctx context.Context, rec model.LobbyRecord) error
	GetLobbyRecord(ctx context.Context, id model.LobbyID) (*model.LobbyRecord, error)
}

// MatchHistory stores finished match results
type MatchHistory interface {
	RecordResult(ctx context.Context, rec model.MatchRecord) error
	// RecentResults returns up to limit results, newest first
	RecentResults(ctx context.Context, limit int) ([]model.MatchRecord, error)
}

// Directories bundles the three directories behind one backend
type Directories interface {
	UserDirectory
	LobbyDirectory
	MatchHistory
	Close() error
}
