package model

import "time"

// ParticipantID identifies a player or spectator seat across all lobbies
type ParticipantID string

// UserID identifies a user record in the external user directory
type UserID string

// Role distinguishes players from spectators
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Player is a seated duelist
type Player struct {
	ID               ParticipantID `json:"id"`
	UserID           UserID        `json:"user_id,omitempty"`
	DisplayName      string        `json:"display_name"`
	TestsPassed      int           `json:"tests_passed"`
	Correct          bool          `json:"correct"`
	Ammo             int           `json:"ammo"`
	CooldownUntil    time.Time     `json:"cooldown_until"`
	LastSubmissionAt time.Time     `json:"last_submission_at"`
	JoinedAt         time.Time     `json:"joined_at"`
}

// OnCooldown reports whether the player's attack cooldown is still running at now
func (p *Player) OnCooldown(now time.Time) bool {
	return now.Before(p.CooldownUntil)
}

// Spectator is a read-only observer of a lobby
type Spectator struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"display_name"`
	JoinedAt    time.Time     `json:"joined_at"`
}
