package model

import (
	"slices"
	"time"
)

// LobbyID identifies a lobby, formatted as lobby_NNNNNN
type LobbyID string

// LobbyStatus is the lifecycle state of a lobby
type LobbyStatus string

const (
	StatusWaiting  LobbyStatus = "waiting"  // Open seats, no match yet
	StatusPlaying  LobbyStatus = "playing"  // Match in progress
	StatusFinished LobbyStatus = "finished" // Terminal
)

// CanTransitionTo reports whether moving from s to next is a legal edge.
// Staying in the same status is always allowed.
func (s LobbyStatus) CanTransitionTo(next LobbyStatus) bool {
	switch {
	case s == next:
		return true
	case s == StatusWaiting && next == StatusPlaying:
		return true
	case s == StatusPlaying && next == StatusFinished:
		return true
	default:
		return false
	}
}

// Visibility controls whether a lobby shows up in the public listing
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// FinishReason records how a match ended
type FinishReason string

const (
	FinishSolved  FinishReason = "solved"
	FinishForfeit FinishReason = "forfeit"
)

const (
	MaxPlayers           = 2
	MaxLobbyNameLength   = 40
	MaxDisplayNameLength = 12
	CredentialLength     = 4
)

// Lobby is the root aggregate for a duel
type Lobby struct {
	ID             LobbyID                     `json:"id"`
	Name           string                      `json:"name"`
	Visibility     Visibility                  `json:"visibility"`
	Credential     string                      `json:"credential,omitempty"`
	Status         LobbyStatus                 `json:"status"`
	Problem        Problem                     `json:"problem"`
	Players        []Player                    `json:"players"`
	Spectators     map[ParticipantID]Spectator `json:"spectators"`
	Winner         ParticipantID               `json:"winner,omitempty"`
	FinishReason   FinishReason                `json:"finish_reason,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	MatchStartedAt time.Time                   `json:"match_started_at"`
	FinishedAt     time.Time                   `json:"finished_at"`
}

// IsPrivate reports whether joining requires a credential
func (l *Lobby) IsPrivate() bool {
	return l.Visibility == VisibilityPrivate
}

// IsFull reports whether both player seats are taken
func (l *Lobby) IsFull() bool {
	return len(l.Players) >= MaxPlayers
}

// GetPlayer returns the seated player with the given id, or nil
func (l *Lobby) GetPlayer(id ParticipantID) *Player {
	for i := range l.Players {
		if l.Players[i].ID == id {
			return &l.Players[i]
		}
	}
	return nil
}

// GetSpectator returns the spectator with the given id
func (l *Lobby) GetSpectator(id ParticipantID) (Spectator, bool) {
	s, ok := l.Spectators[id]
	return s, ok
}

// Opponent returns the other seated player, or nil
func (l *Lobby) Opponent(id ParticipantID) *Player {
	for i := range l.Players {
		if l.Players[i].ID != id {
			return &l.Players[i]
		}
	}
	return nil
}

// HasPlayerName reports whether a seated player already uses the display name
func (l *Lobby) HasPlayerName(name string) bool {
	for _, p := range l.Players {
		if p.DisplayName == name {
			return true
		}
	}
	return false
}

// RemovePlayer drops a player from the roster, keeping seat order
func (l *Lobby) RemovePlayer(id ParticipantID) bool {
	for i, p := range l.Players {
		if p.ID == id {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			return true
		}
	}
	return false
}

// Participants returns every player and spectator id in the lobby
func (l *Lobby) Participants() []ParticipantID {
	ids := make([]ParticipantID, 0, len(l.Players)+len(l.Spectators))
	for _, p := range l.Players {
		ids = append(ids, p.ID)
	}
	for id := range l.Spectators {
		ids = append(ids, id)
	}
	return ids
}

// SpectatorList returns spectators ordered by join time
func (l *Lobby) SpectatorList() []Spectator {
	list := make([]Spectator, 0, len(l.Spectators))
	for _, s := range l.Spectators {
		list = append(list, s)
	}
	slices.SortFunc(list, func(a, b Spectator) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return list
}

// Clone returns a deep copy safe to mutate independently
func (l *Lobby) Clone() *Lobby {
	c := *l
	c.Players = slices.Clone(l.Players)
	c.Problem.Tests = slices.Clone(l.Problem.Tests)
	c.Spectators = make(map[ParticipantID]Spectator, len(l.Spectators))
	for id, s := range l.Spectators {
		c.Spectators[id] = s
	}
	return &c
}

// Summary returns the browse-list view of the lobby
func (l *Lobby) Summary() LobbySummary {
	return LobbySummary{
		ID:          l.ID,
		Name:        l.Name,
		Visibility:  l.Visibility,
		PlayerCount: len(l.Players),
		MaxPlayers:  MaxPlayers,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
	}
}

// LobbySummary is the public listing view of a lobby
type LobbySummary struct {
	ID          LobbyID     `json:"id"`
	Name        string      `json:"name"`
	Visibility  Visibility  `json:"visibility"`
	PlayerCount int         `json:"playerCount"`
	MaxPlayers  int         `json:"maxPlayers"`
	Status      LobbyStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// LobbySpec holds the validated inputs for creating a lobby
type LobbySpec struct {
	ID         LobbyID
	Name       string
	Visibility Visibility
	Credential string
	Problem    Problem
	Host       Player
	CreatedAt  time.Time
}

func compareIDs(a, b ParticipantID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
