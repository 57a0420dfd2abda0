package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/codeduel-go/internal/api/request"
	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
)

// LobbyHandler serves read-only lobby endpoints. Lobby changes go over the WebSocket.
type LobbyHandler struct {
	matchmaking *matchmaking.Service
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(mm *matchmaking.Service) *LobbyHandler {
	return &LobbyHandler{matchmaking: mm}
}

// List handles GET /api/v1/lobbies
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := request.ParseListLobbies(r)
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}
	response.JSON(w, http.StatusOK, h.matchmaking.ListLobbies(q.Search, q.Page))
}

// Get handles GET /api/v1/lobbies/{id}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.LobbyID(mux.Vars(r)["id"])

	l, err := h.matchmaking.Lobby(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, model.ViewOf(l))
}
