package model

import "time"

// User is a directory record keyed by display name
type User struct {
	ID        UserID    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LobbyRecord is the durable trace of a created lobby. The credential is
// stored only as a bcrypt hash.
type LobbyRecord struct {
	LobbyID        LobbyID    `json:"lobby_id"`
	Name           string     `json:"name"`
	HostID         UserID     `json:"host_id"`
	HostName       string     `json:"host_name"`
	Visibility     Visibility `json:"visibility"`
	CredentialHash string     `json:"credential_hash,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MatchPlayerRecord is one player's line in a match result
type MatchPlayerRecord struct {
	UserID      UserID `json:"user_id,omitempty"`
	Name        string `json:"name"`
	TestsPassed int    `json:"tests_passed"`
}

// MatchRecord is a finished match as written to match history
type MatchRecord struct {
	LobbyID    LobbyID             `json:"lobby_id"`
	ProblemID  ProblemID           `json:"problem_id"`
	WinnerID   UserID              `json:"winner_id,omitempty"`
	WinnerName string              `json:"winner_name,omitempty"`
	Reason     FinishReason        `json:"reason"`
	Players    []MatchPlayerRecord `json:"players"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Duration is how long the match ran
func (r MatchRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
