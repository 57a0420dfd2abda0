// Package relay forwards spectator chat, emoji reactions and live code.
// It only reads lobby state.
package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/codeduel-go/internal/broadcast"
	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/registry"
)

const (
	MaxChatLength  = 500
	MaxEmojiLength = 16
	// MaxCodeLength bounds a live code snapshot in bytes
	MaxCodeLength = 64 * 1024
)

// Service relays spectator and live-code traffic
type Service struct {
	store   *lobbystore.Store
	pub     broadcast.Publisher
	clock   clock.Clock
	metrics *metrics.Metrics
}

// New creates a relay service
func New(store *lobbystore.Store, pub broadcast.Publisher, clk clock.Clock, m *metrics.Metrics) *Service {
	return &Service{store: store, pub: pub, clock: clk, metrics: m}
}

// Chat relays a spectator chat line to everyone in the lobby
func (s *Service) Chat(participant model.ParticipantID, text string) error {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxChatLength {
		return fmt.Errorf("%w: chat must be 1-%d characters", model.ErrInvalidMessage, MaxChatLength)
	}
	lobbyID, spectator, err := s.spectator(participant)
	if err != nil {
		return err
	}

	s.metrics.RelayMessages.WithLabelValues("chat").Inc()
	s.pub.Publish(lobbyID, model.EventSpectatorChatMessage, model.SpectatorChatPayload{
		SpectatorName: spectator.DisplayName,
		Message:       text,
		Timestamp:     s.clock.Now(),
	}, registry.Everyone)
	return nil
}

// Emoji relays a spectator reaction to everyone in the lobby
func (s *Service) Emoji(participant model.ParticipantID, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if n := utf8.RuneCountInString(emoji); n == 0 || n > MaxEmojiLength {
		return fmt.Errorf("%w: emoji must be 1-%d characters", model.ErrInvalidMessage, MaxEmojiLength)
	}
	lobbyID, spectator, err := s.spectator(participant)
	if err != nil {
		return err
	}

	s.metrics.RelayMessages.WithLabelValues("emoji").Inc()
	s.pub.Publish(lobbyID, model.EventSpectatorEmojiReaction, model.SpectatorEmojiPayload{
		SpectatorName: spectator.DisplayName,
		Emoji:         emoji,
		Timestamp:     s.clock.Now(),
	}, registry.Everyone)
	return nil
}

// CodeUpdate relays a player's editor contents to spectators only
func (s *Service) CodeUpdate(participant model.ParticipantID, code string) error {
	if len(code) > MaxCodeLength {
		return fmt.Errorf("%w: code snapshot over %d bytes", model.ErrInvalidMessage, MaxCodeLength)
	}
	lobbyID, ok := s.store.LobbyOf(participant)
	if !ok {
		return model.ErrUnknownParticipant
	}
	err := s.store.View(lobbyID, func(l *model.Lobby) error {
		if l.GetPlayer(participant) == nil {
			return model.ErrUnknownParticipant
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RelayMessages.WithLabelValues("code").Inc()
	s.pub.Publish(lobbyID, model.EventLiveCodeUpdate, model.LiveCodePayload{
		PlayerID: participant,
		Code:     code,
	}, registry.Spectators)
	return nil
}

func (s *Service) spectator(participant model.ParticipantID) (model.LobbyID, model.Spectator, error) {
	lobbyID, ok := s.store.LobbyOf(participant)
	if !ok {
		return "", model.Spectator{}, model.ErrUnknownParticipant
	}
	var spectator model.Spectator
	err := s.store.View(lobbyID, func(l *model.Lobby) error {
		sp, ok := l.GetSpectator(participant)
		if !ok {
			return model.ErrUnknownParticipant
		}
		spectator = sp
		return nil
	})
	return lobbyID, spectator, err
}
