package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/codeduel-go/internal/api/apierr"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/protocol"
	"github.com/mcoot/codeduel-go/internal/registry"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
)

var errSubmissionInFlight = apierr.NewInvalidRequestError("A submission is already being graded")

// session is the per-connection dispatch state
type session struct {
	conn *registry.Connection
	// cancelled when the transport closes
	ctx context.Context
	// holds a token while a submission is grading
	grading chan struct{}
}

func (s *Server) dispatch(sess *session, raw []byte) {
	defer s.recoverPanic(sess.conn.ID())

	cmd, err := protocol.Decode(raw)
	if err != nil {
		s.sendError(sess.conn.ID(), false, err)
		return
	}
	if err := s.handle(sess, cmd); err != nil {
		s.sendError(sess.conn.ID(), isJoin(cmd), err)
	}
}

func (s *Server) handle(sess *session, cmd protocol.Command) error {
	connID := sess.conn.ID()
	mm := s.services.Matchmaking

	switch cmd := cmd.(type) {
	case protocol.CreateLobby:
		_, _, err := mm.CreateLobby(connID, matchmaking.CreateRequest{
			Name:       cmd.Name,
			Visibility: cmd.Visibility,
			Credential: cmd.Credential,
			PlayerName: cmd.PlayerName,
		})
		return err

	case protocol.JoinLobby:
		_, _, err := mm.JoinLobby(connID, matchmaking.JoinRequest{
			LobbyID:    cmd.LobbyID,
			PlayerName: cmd.PlayerName,
			Credential: cmd.Credential,
		})
		return err

	case protocol.JoinAsSpectator:
		_, _, err := mm.JoinAsSpectator(connID, matchmaking.SpectateRequest{
			LobbyID: cmd.LobbyID,
			Name:    cmd.SpectatorName,
		})
		return err

	case protocol.ListLobbies:
		s.pub.Reply("", connID, model.EventLobbyList, mm.ListLobbies(cmd.Search, cmd.Page))
		return nil

	case protocol.LeaveLobby:
		return mm.LeaveConnection(connID)

	case protocol.Ping:
		s.pub.Reply("", connID, model.EventPong, model.PongPayload{Timestamp: s.clock.Now()})
		return nil

	case protocol.SubmitCode:
		participant, err := boundParticipant(sess.conn)
		if err != nil {
			return err
		}
		return s.submit(sess, participant, cmd.Code)

	case protocol.SendAttack:
		participant, err := boundParticipant(sess.conn)
		if err != nil {
			return err
		}
		return s.services.Attacks.SendAttack(participant, cmd.AttackType)

	case protocol.GrantAmmo:
		participant, err := boundParticipant(sess.conn)
		if err != nil {
			return err
		}
		_, err = s.services.Attacks.GrantAmmo(participant, cmd.Amount)
		return err

	case protocol.SpectatorChat:
		participant, err := boundParticipant(sess.conn)
		if err != nil {
			return err
		}
		return s.services.Relay.Chat(participant, cmd.Message)

	case protocol.SpectatorEmoji:
		participant, err := boundParticipant(sess.conn)
		if err != nil {
			return err
		}
		return s.services.Relay.Emoji(participant, cmd.Emoji)

	case protocol.CodeUpdate:
		participant, err := boundParticipant(sess.conn)
		if err != nil {
			return err
		}
		return s.services.Relay.CodeUpdate(participant, cmd.Code)

	default:
		return protocol.ErrUnknownCommand
	}
}

// submit grades in the background so the read pump keeps serving the
// connection. One submission per connection may be in flight.
func (s *Server) submit(sess *session, participant model.ParticipantID, code string) error {
	select {
	case sess.grading <- struct{}{}:
	default:
		return errSubmissionInFlight
	}

	s.grading.Add(1)
	go func() {
		defer s.grading.Done()
		defer func() { <-sess.grading }()
		defer s.recoverPanic(sess.conn.ID())

		if _, err := s.services.Engine.Submit(sess.ctx, participant, code); err != nil {
			s.sendError(sess.conn.ID(), false, err)
		}
	}()
	return nil
}

func (s *Server) sendError(connID string, join bool, err error) {
	status, apiErr := apierr.From(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("command failed",
			slog.String("conn_id", connID),
			slog.Any("error", err))
	} else {
		s.logger.Debug("command rejected",
			slog.String("conn_id", connID),
			slog.String("code", apiErr.Code),
			slog.Any("error", err))
	}

	kind := model.EventError
	if join {
		kind = model.EventJoinError
	}
	s.pub.Reply("", connID, kind, model.ErrorPayload{Code: apiErr.Code, Message: apiErr.Message})
}

func boundParticipant(c *registry.Connection) (model.ParticipantID, error) {
	b, ok := c.Binding()
	if !ok {
		return "", model.ErrNotInLobby
	}
	return b.ParticipantID, nil
}

func isJoin(cmd protocol.Command) bool {
	switch cmd.(type) {
	case protocol.CreateLobby, protocol.JoinLobby, protocol.JoinAsSpectator:
		return true
	default:
		return false
	}
}
