package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/codeduel-go/internal/api/handler"
	"github.com/mcoot/codeduel-go/internal/api/middleware"
	"github.com/mcoot/codeduel-go/internal/api/response"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/metrics"
	logging "github.com/mcoot/codeduel-go/internal/middleware"
	"github.com/mcoot/codeduel-go/internal/registry"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
	"github.com/mcoot/codeduel-go/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Matchmaking *matchmaking.Service
	Store       *lobbystore.Store
	Registry    *registry.Registry
	Directories storage.Directories
	Metrics     *metrics.Metrics
	// WebSocket serves GET /ws
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	lobbyHandler := handler.NewLobbyHandler(cfg.Matchmaking)
	matchHandler := handler.NewMatchHandler(cfg.Directories)
	userHandler := handler.NewUserHandler(cfg.Directories)

	loggingMiddleware := logging.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/lobbies", lobbyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{id}", lobbyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/matches", matchHandler.Recent).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler(cfg.Store, cfg.Registry)).Methods(http.MethodGet)

	r.Handle("/ws", recoveryMiddleware(loggingMiddleware(cfg.WebSocket))).Methods(http.MethodGet)
	r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{"code": "NOT_FOUND", "message": "Route not found"},
		})
	})

	return r
}

func healthHandler(store *lobbystore.Store, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{
			Status:      "ok",
			Lobbies:     store.Count(),
			Connections: reg.Count(),
		})
	}
}
