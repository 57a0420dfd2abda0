package model

import "errors"

// Common errors used across the application
var (
	// Validation errors
	ErrInvalidName        = errors.New("invalid lobby name")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrInvalidVisibility  = errors.New("invalid lobby visibility")
	ErrInvalidCredential  = errors.New("private lobbies require a 4 digit credential")
	ErrDuplicateName      = errors.New("display name already taken in lobby")
	ErrInvalidAttackType  = errors.New("unknown attack type")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrInvalidAmount      = errors.New("invalid amount")

	// Conflict errors
	ErrWrongCredential     = errors.New("wrong lobby credential")
	ErrLobbyFull           = errors.New("lobby is full")
	ErrAlreadyPlaying      = errors.New("lobby is not accepting players")
	ErrAlreadyInLobby      = errors.New("connection is already in a lobby")
	ErrNotPlaying          = errors.New("lobby is not playing")
	ErrGameAlreadyFinished = errors.New("game already finished")
	ErrNoAmmo              = errors.New("no attack ammo")
	ErrOnCooldown          = errors.New("attack on cooldown")
	ErrDuplicateLobbyID    = errors.New("lobby id already exists")

	// Not-found errors
	ErrLobbyNotFound      = errors.New("lobby not found")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrNotInLobby         = errors.New("connection is not in a lobby")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrUserNotFound       = errors.New("user not found")

	// Invariant errors
	ErrInvalidTransition  = errors.New("invalid lobby status transition")
	ErrInvariantViolation = errors.New("lobby invariant violated")
)
