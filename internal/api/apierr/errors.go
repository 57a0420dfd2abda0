package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/codeduel-go/internal/model"
	"github.com/mcoot/codeduel-go/internal/protocol"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes shared by the HTTP API and the WebSocket error events
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnknownCommand      = "UNKNOWN_COMMAND"
	CodeInvalidName         = "INVALID_NAME"
	CodeInvalidDisplayName  = "INVALID_DISPLAY_NAME"
	CodeInvalidVisibility   = "INVALID_VISIBILITY"
	CodeInvalidCredential   = "INVALID_CREDENTIAL"
	CodeInvalidAttackType   = "INVALID_ATTACK_TYPE"
	CodeInvalidMessage      = "INVALID_MESSAGE"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeWrongCredential     = "WRONG_CREDENTIAL"
	CodeLobbyFull           = "LOBBY_FULL"
	CodeDuplicateName       = "DUPLICATE_NAME"
	CodeAlreadyPlaying      = "ALREADY_PLAYING"
	CodeAlreadyInLobby      = "ALREADY_IN_LOBBY"
	CodeNotPlaying          = "NOT_PLAYING"
	CodeGameAlreadyFinished = "GAME_ALREADY_FINISHED"
	CodeNoAmmo              = "NO_AMMO"
	CodeOnCooldown          = "ON_COOLDOWN"
	CodeLobbyNotFound       = "LOBBY_NOT_FOUND"
	CodeUnknownParticipant  = "UNKNOWN_PARTICIPANT"
	CodeNotInLobby          = "NOT_IN_LOBBY"
	CodeConnectionNotFound  = "CONNECTION_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

var mappings = []struct {
	target error
	status int
	code   string
	msg    string
}{
	{model.ErrInvalidName, http.StatusBadRequest, CodeInvalidName, "Lobby name must be 1-40 characters"},
	{model.ErrInvalidDisplayName, http.StatusBadRequest, CodeInvalidDisplayName, "Display name must be 1-12 characters"},
	{model.ErrInvalidVisibility, http.StatusBadRequest, CodeInvalidVisibility, "Visibility must be public or private"},
	{model.ErrInvalidCredential, http.StatusBadRequest, CodeInvalidCredential, "Private lobbies need a 4 digit pin; public lobbies take none"},
	{model.ErrInvalidAttackType, http.StatusBadRequest, CodeInvalidAttackType, "Unknown attack type"},
	{model.ErrInvalidMessage, http.StatusBadRequest, CodeInvalidMessage, "Message is empty or too long"},
	{model.ErrInvalidAmount, http.StatusBadRequest, CodeInvalidAmount, "Amount must be positive"},
	{model.ErrWrongCredential, http.StatusForbidden, CodeWrongCredential, "Incorrect pin"},
	{model.ErrLobbyFull, http.StatusConflict, CodeLobbyFull, "Lobby is full"},
	{model.ErrDuplicateName, http.StatusConflict, CodeDuplicateName, "Name already taken in this lobby"},
	{model.ErrAlreadyPlaying, http.StatusConflict, CodeAlreadyPlaying, "Game already in progress"},
	{model.ErrAlreadyInLobby, http.StatusConflict, CodeAlreadyInLobby, "You are already in a lobby"},
	{model.ErrNotPlaying, http.StatusConflict, CodeNotPlaying, "Game is not in progress"},
	{model.ErrGameAlreadyFinished, http.StatusConflict, CodeGameAlreadyFinished, "Game already finished"},
	{model.ErrNoAmmo, http.StatusConflict, CodeNoAmmo, "No attacks available"},
	{model.ErrOnCooldown, http.StatusTooManyRequests, CodeOnCooldown, "Attack on cooldown"},
	{model.ErrLobbyNotFound, http.StatusNotFound, CodeLobbyNotFound, "Lobby not found"},
	{model.ErrUnknownParticipant, http.StatusNotFound, CodeUnknownParticipant, "Not a participant of this lobby"},
	{model.ErrNotInLobby, http.StatusNotFound, CodeNotInLobby, "You are not in a lobby"},
	{model.ErrConnectionNotFound, http.StatusNotFound, CodeConnectionNotFound, "Connection not found"},
	{model.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{protocol.ErrUnknownCommand, http.StatusBadRequest, CodeUnknownCommand, "Unknown command"},
	{protocol.ErrMalformedMessage, http.StatusBadRequest, CodeInvalidRequest, "Malformed message"},
}

// From converts any error to its API representation and HTTP status.
// Unmapped errors become INTERNAL_ERROR without leaking their text.
func From(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return &httpError{m.status, APIError{m.code, m.msg}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
