package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/protocol"
)

// playOptions control how a session reacts to the match
type playOptions struct {
	// submitted once when the match starts
	codeFile string
	// keep streaming after game_finished until interrupted
	follow bool
}

func (o *playOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.codeFile, "code-file", "", "Submit this file when the match starts")
	cmd.Flags().BoolVar(&o.follow, "follow", false, "Keep streaming after the match finishes")
}

func newCreateCmd() *cobra.Command {
	var (
		name       string
		playerName string
		private    bool
		pin        string
		opts       playOptions
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lobby and wait for an opponent",
		Long: `Create a lobby over the WebSocket and stream its events.

The match starts when a second player joins. Private lobbies need a 4 digit
pin that the opponent passes to join. Press Ctrl+C to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			visibility := model.VisibilityPublic
			if private {
				visibility = model.VisibilityPrivate
			}
			return runSession(cmd, protocol.CreateLobby{
				Name:       name,
				Visibility: visibility,
				Credential: pin,
				PlayerName: playerName,
			}, opts)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Lobby name (required)")
	cmd.Flags().StringVar(&playerName, "player", "", "Your display name (required)")
	cmd.Flags().BoolVar(&private, "private", false, "Hide the lobby from the public list")
	cmd.Flags().StringVar(&pin, "pin", "", "4 digit pin for a private lobby")
	opts.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newJoinCmd() *cobra.Command {
	var (
		playerName string
		pin        string
		opts       playOptions
	)

	cmd := &cobra.Command{
		Use:   "join <lobby-id>",
		Short: "Join a lobby as the second player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, protocol.JoinLobby{
				LobbyID:    model.LobbyID(args[0]),
				PlayerName: playerName,
				Credential: pin,
			}, opts)
		},
	}

	cmd.Flags().StringVar(&playerName, "player", "", "Your display name (required)")
	cmd.Flags().StringVar(&pin, "pin", "", "Pin of a private lobby")
	opts.bind(cmd)
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newSpectateCmd() *cobra.Command {
	var (
		name string
		opts playOptions
	)

	cmd := &cobra.Command{
		Use:   "spectate <lobby-id>",
		Short: "Watch a lobby's match live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, protocol.JoinAsSpectator{
				LobbyID:       model.LobbyID(args[0]),
				SpectatorName: name,
			}, opts)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Spectator name (default: generated)")
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "Keep streaming after the match finishes")

	return cmd
}

// runSession sends the entry command and prints events until the match
// finishes, the lobby closes or the user interrupts
func runSession(cmd *cobra.Command, entry protocol.Command, opts playOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code string
	if opts.codeFile != "" {
		data, err := os.ReadFile(opts.codeFile)
		if err != nil {
			return fmt.Errorf("read code file: %w", err)
		}
		code = string(data)
	}

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}
	sess, err := Dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	if err := sess.Send(entry); err != nil {
		return fmt.Errorf("send %s: %w", entry.Kind(), err)
	}

	out := newOutput(cmd)
	for {
		select {
		case <-ctx.Done():
			_ = sess.Send(protocol.LeaveLobby{})
			return nil
		case env, ok := <-sess.Events():
			if !ok {
				return errors.New("connection closed by server")
			}
			out.PrintEvent(env)

			switch model.EventKind(env.Event) {
			case model.EventJoinError:
				return EventError(env)
			case model.EventGameStart:
				if code != "" {
					if err := sess.Send(protocol.SubmitCode{Code: code}); err != nil {
						return fmt.Errorf("submit code: %w", err)
					}
				}
			case model.EventGameFinished:
				if !opts.follow {
					return nil
				}
			case model.EventLobbyLeft:
				return nil
			}
		}
	}
}
