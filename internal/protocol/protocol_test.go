package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/codeduel-go/internal/model"
)

func TestDecodeCommands(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Command
	}{
		{
			name: "create lobby",
			raw:  `{"event":"create_lobby","data":{"name":"Duel","visibility":"private","credential":"1234","playerName":"alice"}}`,
			expected: CreateLobby{
				Name:       "Duel",
				Visibility: model.VisibilityPrivate,
				Credential: "1234",
				PlayerName: "alice",
			},
		},
		{
			name:     "join lobby",
			raw:      `{"event":"join_lobby","data":{"lobbyId":"lobby_123456","playerName":"bob"}}`,
			expected: JoinLobby{LobbyID: "lobby_123456", PlayerName: "bob"},
		},
		{
			name:     "spectate",
			raw:      `{"event":"join_as_spectator","data":{"lobbyId":"lobby_123456"}}`,
			expected: JoinAsSpectator{LobbyID: "lobby_123456"},
		},
		{
			name:     "list without data",
			raw:      `{"event":"list_lobbies"}`,
			expected: ListLobbies{},
		},
		{
			name:     "list with null data",
			raw:      `{"event":"list_lobbies","data":null}`,
			expected: ListLobbies{},
		},
		{
			name:     "attack",
			raw:      `{"event":"send_attack","data":{"attackType":"shake"}}`,
			expected: SendAttack{AttackType: model.AttackShake},
		},
		{
			name:     "leave ignores data",
			raw:      `{"event":"leave_lobby","data":{"anything":true}}`,
			expected: LeaveLobby{},
		},
		{
			name:     "code update",
			raw:      `{"event":"code_update","data":{"code":"print(1)"}}`,
			expected: CodeUpdate{Code: "print(1)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected error
	}{
		{name: "not json", raw: `hello`, expected: ErrMalformedMessage},
		{name: "missing event", raw: `{"data":{}}`, expected: ErrMalformedMessage},
		{name: "unknown event", raw: `{"event":"player_ready"}`, expected: ErrUnknownCommand},
		{name: "bad payload", raw: `{"event":"grant_ammo","data":{"amount":"lots"}}`, expected: ErrMalformedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestEncodeFramesEvent(t *testing.T) {
	raw, err := Encode(model.EventAttackReceived, model.AttackReceivedPayload{
		AttackType: model.AttackNuke,
		Attacker:   "alice",
		DurationMs: 2000,
	})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "attack_received", env.Event)
	assert.JSONEq(t, `{"attackType":"nuke","attacker":"alice","durationMs":2000}`, string(env.Data))
}

func TestEncodeCommandDecodes(t *testing.T) {
	raw, err := EncodeCommand(SubmitCode{Code: "def f(): pass"})
	require.NoError(t, err)

	cmd, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, SubmitCode{Code: "def f(): pass"}, cmd)
}
