package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/storage"
)

// UserHandler serves the user directory
type UserHandler struct {
	users storage.UserDirectory
}

// NewUserHandler creates a new user handler
func NewUserHandler(users storage.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), model.UserID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}
