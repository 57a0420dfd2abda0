package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcoot/codeduel-go/internal/model"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownCommand   = errors.New("unknown command")
)

// CommandKind names a client to server message
type CommandKind string

const (
	CmdCreateLobby     CommandKind = "create_lobby"
	CmdJoinLobby       CommandKind = "join_lobby"
	CmdJoinAsSpectator CommandKind = "join_as_spectator"
	CmdListLobbies     CommandKind = "list_lobbies"
	CmdSubmitCode      CommandKind = "submit_code"
	CmdSendAttack      CommandKind = "send_attack"
	CmdGrantAmmo       CommandKind = "grant_ammo"
	CmdSpectatorChat   CommandKind = "spectator_chat"
	CmdSpectatorEmoji  CommandKind = "spectator_emoji"
	CmdCodeUpdate      CommandKind = "code_update"
	CmdLeaveLobby      CommandKind = "leave_lobby"
	CmdPing            CommandKind = "ping"
)

// Envelope is the wire frame in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Command is the closed set of decoded client messages
type Command interface {
	Kind() CommandKind
	isCommand()
}

type CreateLobby struct {
	Name       string           `json:"name"`
	Visibility model.Visibility `json:"visibility"`
	Credential string           `json:"credential,omitempty"`
	PlayerName string           `json:"playerName"`
}

type JoinLobby struct {
	LobbyID    model.LobbyID `json:"lobbyId"`
	PlayerName string        `json:"playerName"`
	Credential string        `json:"credential,omitempty"`
}

type JoinAsSpectator struct {
	LobbyID       model.LobbyID `json:"lobbyId"`
	SpectatorName string        `json:"spectatorName,omitempty"`
}

type ListLobbies struct {
	Search string `json:"search,omitempty"`
	Page   int    `json:"page,omitempty"`
}

type SubmitCode struct {
	Code string `json:"code"`
}

type SendAttack struct {
	AttackType model.AttackType `json:"attackType"`
}

type GrantAmmo struct {
	Amount int `json:"amount"`
}

type SpectatorChat struct {
	Message string `json:"message"`
}

type SpectatorEmoji struct {
	Emoji string `json:"emoji"`
}

type CodeUpdate struct {
	Code string `json:"code"`
}

type LeaveLobby struct{}

type Ping struct{}

func (CreateLobby) Kind() CommandKind     { return CmdCreateLobby }
func (JoinLobby) Kind() CommandKind       { return CmdJoinLobby }
func (JoinAsSpectator) Kind() CommandKind { return CmdJoinAsSpectator }
func (ListLobbies) Kind() CommandKind     { return CmdListLobbies }
func (SubmitCode) Kind() CommandKind      { return CmdSubmitCode }
func (SendAttack) Kind() CommandKind      { return CmdSendAttack }
func (GrantAmmo) Kind() CommandKind       { return CmdGrantAmmo }
func (SpectatorChat) Kind() CommandKind   { return CmdSpectatorChat }
func (SpectatorEmoji) Kind() CommandKind  { return CmdSpectatorEmoji }
func (CodeUpdate) Kind() CommandKind      { return CmdCodeUpdate }
func (LeaveLobby) Kind() CommandKind      { return CmdLeaveLobby }
func (Ping) Kind() CommandKind            { return CmdPing }

func (CreateLobby) isCommand()     {}
func (JoinLobby) isCommand()       {}
func (JoinAsSpectator) isCommand() {}
func (ListLobbies) isCommand()     {}
func (SubmitCode) isCommand()      {}
func (SendAttack) isCommand()      {}
func (GrantAmmo) isCommand()       {}
func (SpectatorChat) isCommand()   {}
func (SpectatorEmoji) isCommand()  {}
func (CodeUpdate) isCommand()      {}
func (LeaveLobby) isCommand()      {}
func (Ping) isCommand()            {}

// Decode parses one client frame into a typed Command
func Decode(raw []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch CommandKind(env.Event) {
	case CmdCreateLobby:
		return decodeData[CreateLobby](env.Data)
	case CmdJoinLobby:
		return decodeData[JoinLobby](env.Data)
	case CmdJoinAsSpectator:
		return decodeData[JoinAsSpectator](env.Data)
	case CmdListLobbies:
		return decodeData[ListLobbies](env.Data)
	case CmdSubmitCode:
		return decodeData[SubmitCode](env.Data)
	case CmdSendAttack:
		return decodeData[SendAttack](env.Data)
	case CmdGrantAmmo:
		return decodeData[GrantAmmo](env.Data)
	case CmdSpectatorChat:
		return decodeData[SpectatorChat](env.Data)
	case CmdSpectatorEmoji:
		return decodeData[SpectatorEmoji](env.Data)
	case CmdCodeUpdate:
		return decodeData[CodeUpdate](env.Data)
	case CmdLeaveLobby:
		return LeaveLobby{}, nil
	case CmdPing:
		return Ping{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Event)
	}
}

func decodeData[T Command](data json.RawMessage) (Command, error) {
	var cmd T
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return cmd, nil
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, cmd.Kind(), err)
	}
	return cmd, nil
}

// Encode frames a server event
func Encode(kind model.EventKind, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Event model.EventKind `json:"event"`
		Data  any             `json:"data"`
	}{Event: kind, Data: payload})
}

// EncodeCommand frames a client command, used by the CLI and tests
func EncodeCommand(cmd Command) ([]byte, error) {
	return json.Marshal(struct {
		Event CommandKind `json:"event"`
		Data  Command     `json:"data"`
	}{Event: cmd.Kind(), Data: cmd})
}
