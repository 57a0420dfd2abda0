package handler

import (
	"net/http"

	"github.com/mcoot/codeduel-go/internal/api/request"
	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/storage"
)

// MatchHandler serves match history
type MatchHandler struct {
	history storage.MatchHistory
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(history storage.MatchHistory) *MatchHandler {
	return &MatchHandler{history: history}
}

// Recent handles GET /api/v1/matches
func (h *MatchHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := request.ParseMatchLimit(r)
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	records, err := h.history.RecentResults(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MatchListFromModel(records))
}
