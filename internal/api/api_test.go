package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/codeduel-go/internal/api"
	"github.com/mcoot/codeduel-go/internal/api/apierr"
	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/factory"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/protocol"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
	"github.com/mcoot/codeduel-go/internal/testutil"
)

// testServer bundles the router with the app behind it
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Matchmaking: app.Matchmaking,
		Store:       app.Store,
		Registry:    app.Registry,
		Directories: app.Directories,
		Metrics:     app.Metrics,
		WebSocket:   app.WS,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// createLobby seats a host over a registry connection, skipping the socket
func (ts *testServer) createLobby(t *testing.T, name string) *model.Lobby {
	t.Helper()
	connID := "conn-" + name
	ts.app.Registry.Register(connID, "")
	l, _, err := ts.app.Matchmaking.CreateLobby(connID, matchmaking.CreateRequest{
		Name:       name,
		Visibility: model.VisibilityPublic,
		PlayerName: "host",
	})
	require.NoError(t, err)
	return l
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.createLobby(t, "room")

	rr := ts.request(http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rr.Code)

	health := decode[response.Health](t, rr)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Lobbies)
	assert.Equal(t, 1, health.Connections)
}

func TestListLobbies(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 5; i++ {
		ts.createLobby(t, fmt.Sprintf("room %d", i))
		ts.app.MockClock.Advance(time.Second)
	}

	rr := ts.request(http.MethodGet, "/api/v1/lobbies")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[model.LobbyListPayload](t, rr)
	assert.Len(t, page.Lobbies, 4)
	assert.Equal(t, "room 4", page.Lobbies[0].Name)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)

	rr = ts.request(http.MethodGet, "/api/v1/lobbies?page=2")
	page = decode[model.LobbyListPayload](t, rr)
	assert.Len(t, page.Lobbies, 1)
	assert.True(t, page.Pagination.HasPrev)

	rr = ts.request(http.MethodGet, "/api/v1/lobbies?search=ROOM%203")
	page = decode[model.LobbyListPayload](t, rr)
	require.Len(t, page.Lobbies, 1)
	assert.Equal(t, "room 3", page.Lobbies[0].Name)
}

func TestListLobbies_InvalidPage(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/lobbies?page=zero")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestGetLobby(t *testing.T) {
	ts := newTestServer(t)
	l := ts.createLobby(t, "room")

	rr := ts.request(http.MethodGet, "/api/v1/lobbies/"+string(l.ID))
	require.Equal(t, http.StatusOK, rr.Code)

	view := decode[model.LobbyView](t, rr)
	assert.Equal(t, l.ID, view.ID)
	assert.Equal(t, model.StatusWaiting, view.Status)
	require.Len(t, view.Players, 1)
	assert.Equal(t, "host", view.Players[0].Name)
	assert.NotContains(t, rr.Body.String(), "credential")
}

func TestGetLobby_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/lobbies/lobby_000000")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeLobbyNotFound, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestRecentMatches(t *testing.T) {
	ts := newTestServer(t)
	ctx := testContext(t)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, winner := range []string{"alice", "bob", ""} {
		require.NoError(t, ts.app.Storage.RecordResult(ctx, model.MatchRecord{
			LobbyID:    model.LobbyID(fmt.Sprintf("lobby_00000%d", i)),
			ProblemID:  "two-sum",
			WinnerName: winner,
			Reason:     model.FinishSolved,
			Players:    []model.MatchPlayerRecord{{Name: "alice", TestsPassed: 5}, {Name: "bob", TestsPassed: 2}},
			StartedAt:  start,
			FinishedAt: start.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	rr := ts.request(http.MethodGet, "/api/v1/matches?limit=2")
	require.Equal(t, http.StatusOK, rr.Code)

	list := decode[response.MatchList](t, rr)
	require.Len(t, list.Matches, 2)
	assert.Equal(t, "lobby_000002", list.Matches[0].LobbyID)
	assert.Nil(t, list.Matches[0].Winner)
	assert.Equal(t, int64(180000), list.Matches[0].DurationMs)
	require.NotNil(t, list.Matches[1].Winner)
	assert.Equal(t, "bob", *list.Matches[1].Winner)
}

func TestRecentMatches_InvalidLimit(t *testing.T) {
	ts := newTestServer(t)

	for _, limit := range []string{"0", "101", "many"} {
		rr := ts.request(http.MethodGet, "/api/v1/matches?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rr.Code, limit)
	}
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t)
	id, err := ts.app.Storage.GetOrCreate(testContext(t), "alice")
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/users/"+string(id))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", decode[response.User](t, rr).Name)

	rr = ts.request(http.MethodGet, "/api/v1/users/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeUserNotFound, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createLobby(t, "room")

	rr := ts.request(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "codeduel_lobbies_created_total 1")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_FOUND")
}

func TestWebSocketUpgradeThroughRouter(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	raw, err := protocol.EncodeCommand(protocol.Ping{})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testutil.DefaultWait)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, string(model.EventPong), env.Event)
}

// testContext returns a context that is cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
