package cli_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/codeduel-go/internal/api"
	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/cli"
	"github.com/mcoot/codeduel-go/internal/factory"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
	"github.com/mcoot/codeduel-go/internal/testutil"
)

type cliEnv struct {
	app    *factory.TestApp
	server *httptest.Server
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	app := factory.NewTestApp()
	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Matchmaking: app.Matchmaking,
		Store:       app.Store,
		Registry:    app.Registry,
		Directories: app.Directories,
		Metrics:     app.Metrics,
		WebSocket:   app.WS,
	}))
	t.Cleanup(func() {
		_ = app.Close()
		server.Close()
	})
	return &cliEnv{app: app, server: server}
}

// run executes one CLI invocation in process with JSON output
func (e *cliEnv) run(ctx context.Context, args ...string) (string, error) {
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", e.server.URL, "--output", "json"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (e *cliEnv) seedLobby(t *testing.T, name string) *model.Lobby {
	t.Helper()
	connID := "conn-" + name
	e.app.Registry.Register(connID, "")
	l, _, err := e.app.Matchmaking.CreateLobby(connID, matchmaking.CreateRequest{
		Name:       name,
		Visibility: model.VisibilityPublic,
		PlayerName: "host",
	})
	require.NoError(t, err)
	return l
}

func TestHealth(t *testing.T) {
	env := newCLIEnv(t)

	output, err := env.run(testContext(t), "health")
	require.NoError(t, err, output)

	var health response.Health
	require.NoError(t, json.Unmarshal([]byte(output), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestLobbyCommands(t *testing.T) {
	env := newCLIEnv(t)
	l := env.seedLobby(t, "lunch duel")
	env.seedLobby(t, "evening duel")

	output, err := env.run(testContext(t), "lobby", "list", "--search", "lunch")
	require.NoError(t, err, output)
	var list model.LobbyListPayload
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	require.Len(t, list.Lobbies, 1)
	assert.Equal(t, l.ID, list.Lobbies[0].ID)

	output, err = env.run(testContext(t), "lobby", "get", string(l.ID))
	require.NoError(t, err, output)
	var view model.LobbyView
	require.NoError(t, json.Unmarshal([]byte(output), &view))
	assert.Equal(t, "lunch duel", view.Name)

	output, err = env.run(testContext(t), "lobby", "get", "lobby_000000")
	require.Error(t, err)
	assert.Contains(t, output, "LOBBY_NOT_FOUND")
}

func TestMatchesCommand(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, env.app.Storage.RecordResult(testContext(t), model.MatchRecord{
		LobbyID:    "lobby_123456",
		WinnerName: "alice",
		Reason:     model.FinishSolved,
	}))

	output, err := env.run(testContext(t), "matches", "--limit", "5")
	require.NoError(t, err, output)
	var list response.MatchList
	require.NoError(t, json.Unmarshal([]byte(output), &list))
	require.Len(t, list.Matches, 1)
	assert.Equal(t, "alice", *list.Matches[0].Winner)
}

func TestCreateSubmitsCodeAndWins(t *testing.T) {
	env := newCLIEnv(t)
	codeFile := filepath.Join(t.TempDir(), "solution.py")
	require.NoError(t, os.WriteFile(codeFile, []byte("def two_sum(nums, target): ..."), 0o600))
	env.app.MockGrader.SetPassed("def two_sum(nums, target): ...", 5)

	ctx, cancel := context.WithTimeout(testContext(t), 5*time.Second)
	defer cancel()

	type result struct {
		output string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := env.run(ctx, "create", "--name", "cli duel", "--player", "alice", "--code-file", codeFile)
		done <- result{output, err}
	}()

	// The opponent joins directly through matchmaking once the lobby is listed
	var lobbyID model.LobbyID
	require.Eventually(t, func() bool {
		page := env.app.Matchmaking.ListLobbies("cli duel", 1)
		if len(page.Lobbies) == 0 {
			return false
		}
		lobbyID = page.Lobbies[0].ID
		return true
	}, 2*time.Second, 10*time.Millisecond)

	env.app.Registry.Register("conn-bob", "")
	_, _, err := env.app.Matchmaking.JoinLobby("conn-bob", matchmaking.JoinRequest{LobbyID: lobbyID, PlayerName: "bob"})
	require.NoError(t, err)

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		t.Fatal("create command did not finish")
	}
	require.NoError(t, res.err, res.output)

	var events []string
	var finished model.GameFinishedPayload
	scanner := bufio.NewScanner(strings.NewReader(res.output))
	for scanner.Scan() {
		var ev cli.StreamedEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev.Event)
		if ev.Event == string(model.EventGameFinished) {
			require.NoError(t, json.Unmarshal(ev.Data, &finished))
		}
	}
	assert.Contains(t, events, string(model.EventLobbyCreated))
	assert.Contains(t, events, string(model.EventGameStart))
	assert.Contains(t, events, string(model.EventTestResults))
	assert.Equal(t, string(model.EventGameFinished), events[len(events)-1])
	assert.Equal(t, "alice", finished.Winner)
}

func TestJoinReportsJoinError(t *testing.T) {
	env := newCLIEnv(t)

	output, err := env.run(testContext(t), "join", "lobby_000000", "--player", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOBBY_NOT_FOUND")
	assert.Contains(t, output, string(model.EventJoinError))
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://duel.example/", "wss://duel.example/ws"},
		{"http://proxy.example/duel", "ws://proxy.example/duel/ws"},
	}
	for _, tt := range tests {
		cfg := cli.DefaultConfig()
		cfg.ServerURL = tt.server
		got, err := cfg.WebSocketURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	cfg := cli.DefaultConfig()
	cfg.ServerURL = "ftp://duel.example"
	_, err := cfg.WebSocketURL()
	assert.Error(t, err)
}

// testContext returns a context that is cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
