// Package attack implements the cosmetic attack layer: ammo, cooldown and
// delivery to the opponent. Attacks never touch scoring or status.
package attack

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/codeduel-go/internal/broadcast"
	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/registry"
)

// Config tunes the attack economy
type Config struct {
	Cooldown time.Duration
	MaxAmmo  int
}

// DefaultConfig returns a 15s cooldown and an ammo cap of 5
func DefaultConfig() Config {
	return Config{Cooldown: model.DefaultAttackCooldown, MaxAmmo: model.DefaultMaxAmmo}
}

// Service sends attacks and grants ammo
type Service struct {
	store   *lobbystore.Store
	pub     broadcast.Publisher
	clock   clock.Clock
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an attack service
func New(store *lobbystore.Store, pub broadcast.Publisher, clk clock.Clock, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		pub:     pub,
		clock:   clk,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With(slog.String("component", "attack")),
	}
}

// SendAttack spends one ammo and starts the attacker's cooldown, then
// notifies the opponent. Checks run in a fixed order: finished, not
// playing, unknown participant, attack type, ammo, cooldown.
func (s *Service) SendAttack(attacker model.ParticipantID, attackType model.AttackType) error {
	lobbyID, ok := s.store.LobbyOf(attacker)
	if !ok {
		return model.ErrUnknownParticipant
	}

	var attackerName, targetName string
	var target model.ParticipantID
	var ammo model.AmmoUpdatePayload
	_, err := s.store.Update(lobbyID, func(l *model.Lobby) error {
		switch l.Status {
		case model.StatusFinished:
			return model.ErrGameAlreadyFinished
		case model.StatusWaiting:
			return model.ErrNotPlaying
		}
		p := l.GetPlayer(attacker)
		if p == nil {
			return model.ErrUnknownParticipant
		}
		if !attackType.Valid() {
			return fmt.Errorf("%w: %q", model.ErrInvalidAttackType, attackType)
		}
		if p.Ammo <= 0 {
			return model.ErrNoAmmo
		}
		now := s.clock.Now()
		if p.OnCooldown(now) {
			return model.ErrOnCooldown
		}
		opp := l.Opponent(attacker)
		if opp == nil {
			return model.ErrUnknownParticipant
		}

		p.Ammo--
		p.CooldownUntil = now.Add(s.cfg.Cooldown)

		attackerName, targetName, target = p.DisplayName, opp.DisplayName, opp.ID
		ammo = model.AmmoUpdatePayload{Ammo: p.Ammo, CooldownUntil: p.CooldownUntil}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Attacks.WithLabelValues(string(attackType)).Inc()
	s.pub.Publish(lobbyID, model.EventAmmoUpdate, ammo, registry.Only(attacker))
	s.pub.Publish(lobbyID, model.EventAttackReceived, model.AttackReceivedPayload{
		AttackType: attackType,
		Attacker:   attackerName,
		DurationMs: attackType.Duration().Milliseconds(),
	}, registry.Only(target))
	s.pub.Publish(lobbyID, model.EventAttackFeed, model.AttackFeedPayload{
		AttackType: attackType,
		Attacker:   attackerName,
		Target:     targetName,
	}, registry.Spectators)

	s.logger.Debug("attack sent",
		slog.String("lobby_id", string(lobbyID)),
		slog.String("attacker", string(attacker)),
		slog.String("type", string(attackType)))
	return nil
}

// GrantAmmo awards ammo earned out of band, capped at MaxAmmo
func (s *Service) GrantAmmo(participant model.ParticipantID, amount int) (int, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}
	lobbyID, ok := s.store.LobbyOf(participant)
	if !ok {
		return 0, model.ErrUnknownParticipant
	}

	var ammo model.AmmoUpdatePayload
	_, err := s.store.Update(lobbyID, func(l *model.Lobby) error {
		switch l.Status {
		case model.StatusFinished:
			return model.ErrGameAlreadyFinished
		case model.StatusWaiting:
			return model.ErrNotPlaying
		}
		p := l.GetPlayer(participant)
		if p == nil {
			return model.ErrUnknownParticipant
		}
		p.Ammo = min(p.Ammo+amount, s.cfg.MaxAmmo)
		ammo = model.AmmoUpdatePayload{Ammo: p.Ammo, CooldownUntil: p.CooldownUntil}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.pub.Publish(lobbyID, model.EventAmmoUpdate, ammo, registry.Only(participant))
	return ammo.Ammo, nil
}
