package response

import (
	"time"

	"github.com/mcoot/codeduel-go/internal/model"
)

// User represents a directory user in API responses
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts model.User
func UserFromModel(u *model.User) User {
	return User{
		ID:        string(u.ID),
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// MatchPlayer is one player's line in a match result
type MatchPlayer struct {
	UserID      string `json:"user_id,omitempty"`
	Name        string `json:"name"`
	TestsPassed int    `json:"tests_passed"`
}

// Match represents a finished match in API responses
type Match struct {
	LobbyID    string        `json:"lobby_id"`
	ProblemID  string        `json:"problem_id"`
	Winner     *string       `json:"winner"`
	Reason     string        `json:"reason"`
	Players    []MatchPlayer `json:"players"`
	DurationMs int64         `json:"duration_ms"`
	FinishedAt time.Time     `json:"finished_at"`
}

// MatchFromModel converts model.MatchRecord
func MatchFromModel(m model.MatchRecord) Match {
	players := make([]MatchPlayer, len(m.Players))
	for i, p := range m.Players {
		players[i] = MatchPlayer{
			UserID:      string(p.UserID),
			Name:        p.Name,
			TestsPassed: p.TestsPassed,
		}
	}

	var winner *string
	if m.WinnerName != "" {
		w := m.WinnerName
		winner = &w
	}

	return Match{
		LobbyID:    string(m.LobbyID),
		ProblemID:  string(m.ProblemID),
		Winner:     winner,
		Reason:     string(m.Reason),
		Players:    players,
		DurationMs: m.Duration().Milliseconds(),
		FinishedAt: m.FinishedAt,
	}
}

// MatchList is the response of GET /api/v1/matches
type MatchList struct {
	Matches []Match `json:"matches"`
}

// MatchListFromModel converts a page of match history
func MatchListFromModel(records []model.MatchRecord) MatchList {
	matches := make([]Match, len(records))
	for i, r := range records {
		matches[i] = MatchFromModel(r)
	}
	return MatchList{Matches: matches}
}

// Health is the response of GET /api/v1/health
type Health struct {
	Status      string `json:"status"`
	Lobbies     int    `json:"lobbies"`
	Connections int    `json:"connections"`
}
