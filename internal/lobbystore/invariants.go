package lobbystore

import (
	"fmt"

	"github.com/mcoot/codeduel-go/internal/model"
)

// checkInvariants validates a working copy against the committed lobby
func checkInvariants(before, after *model.Lobby) error {
	if after.ID != before.ID {
		return fmt.Errorf("%w: lobby id changed", model.ErrInvariantViolation)
	}
	if !before.Status.CanTransitionTo(after.Status) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, before.Status, after.Status)
	}
	if before.Status == model.StatusWaiting && after.Status != model.StatusWaiting && len(after.Players) < model.MaxPlayers {
		return fmt.Errorf("%w: leaving waiting with %d players", model.ErrInvalidTransition, len(after.Players))
	}
	if len(after.Players) > model.MaxPlayers {
		return fmt.Errorf("%w: %d players", model.ErrLobbyFull, len(after.Players))
	}
	if after.Winner != "" && after.Status != model.StatusFinished {
		return fmt.Errorf("%w: winner set while %s", model.ErrInvariantViolation, after.Status)
	}
	if before.Winner != "" && after.Winner != before.Winner {
		return fmt.Errorf("%w: winner changed", model.ErrInvariantViolation)
	}
	if after.Status == model.StatusFinished && after.FinishReason == "" {
		return fmt.Errorf("%w: finished without reason", model.ErrInvariantViolation)
	}

	names := make(map[string]bool, len(after.Players))
	seen := make(map[model.ParticipantID]bool, len(after.Players)+len(after.Spectators))
	for _, p := range after.Players {
		if names[p.DisplayName] {
			return fmt.Errorf("%w: %q", model.ErrDuplicateName, p.DisplayName)
		}
		names[p.DisplayName] = true
		if seen[p.ID] {
			return fmt.Errorf("%w: participant %s seated twice", model.ErrInvariantViolation, p.ID)
		}
		seen[p.ID] = true
		if p.Ammo < 0 {
			return fmt.Errorf("%w: negative ammo for %s", model.ErrInvariantViolation, p.ID)
		}
		if p.TestsPassed < 0 || p.TestsPassed > len(after.Problem.Tests) {
			return fmt.Errorf("%w: tests passed out of range for %s", model.ErrInvariantViolation, p.ID)
		}
	}
	for id := range after.Spectators {
		if seen[id] {
			return fmt.Errorf("%w: participant %s is player and spectator", model.ErrInvariantViolation, id)
		}
	}
	return nil
}
