package model

import "time"

// AttackType is the cosmetic disruption a player can send
type AttackType string

const (
	AttackFlashbang    AttackType = "flashbang"
	AttackCursorVanish AttackType = "cursor-vanish"
	AttackShake        AttackType = "shake"
	AttackZoomChaos    AttackType = "zoom-chaos"
	AttackCodeBlur     AttackType = "code-blur"
	AttackNuke         AttackType = "nuke"
)

const (
	// DefaultAttackCooldown is the wait between attacks from one player
	DefaultAttackCooldown = 15 * time.Second
	// DefaultMaxAmmo caps how much ammo a player can hold
	DefaultMaxAmmo = 5
)

var attackDurations = map[AttackType]time.Duration{
	AttackFlashbang:    500 * time.Millisecond,
	AttackCursorVanish: 3 * time.Second,
	AttackShake:        2 * time.Second,
	AttackZoomChaos:    3 * time.Second,
	AttackCodeBlur:     4 * time.Second,
	AttackNuke:         2 * time.Second,
}

// Valid reports whether t is a known attack type
func (t AttackType) Valid() bool {
	_, ok := attackDurations[t]
	return ok
}

// Duration is how long the effect is shown on the target's client
func (t AttackType) Duration() time.Duration {
	return attackDurations[t]
}
