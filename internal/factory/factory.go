package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/codeduel-go/internal/broadcast"
	"github.com/mcoot/codeduel-go/internal/config"
	"github.com/mcoot/codeduel-go/internal/dependencies/clock"
	"github.com/mcoot/codeduel-go/internal/dependencies/ids"
	"github.com/mcoot/codeduel-go/internal/dependencies/random"
	"github.com/mcoot/codeduel-go/internal/grader"
	"github.com/mcoot/codeduel-go/internal/lobbystore"
	"github.com/mcoot/codeduel-go/internal/metrics"
	"github.com/mcoot/codeduel-go/internal/problem"
	"github.com/mcoot/codeduel-go/internal/registry"
	"github.com/mcoot/codeduel-go/internal/services/attack"
	"github.com/mcoot/codeduel-go/internal/services/directory"
	"github.com/mcoot/codeduel-go/internal/services/match"
	"github.com/mcoot/codeduel-go/internal/services/matchmaking"
	"github.com/mcoot/codeduel-go/internal/services/relay"
	"github.com/mcoot/codeduel-go/internal/storage"
	"github.com/mcoot/codeduel-go/internal/storage/memory"
	"github.com/mcoot/codeduel-go/internal/storage/postgres"
	redisstorage "github.com/mcoot/codeduel-go/internal/storage/redis"
	"github.com/mcoot/codeduel-go/internal/ws"
)

// App contains all wired application components
type App struct {
	Config  config.AppConfig
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// External dependencies
	Clock       clock.Clock
	Random      random.Random
	IDs         ids.Generator
	Directories storage.Directories
	Grader      grader.Grader

	// Core
	Registry  *registry.Registry
	Hubs      *broadcast.HubManager
	Publisher broadcast.Publisher
	Store     *lobbystore.Store
	Catalog   *problem.Catalog

	// Services
	Recorder    *directory.Recorder
	Engine      *match.Engine
	Matchmaking *matchmaking.Service
	Attacks     *attack.Service
	Relay       *relay.Service
	WS          *ws.Server
}

// New creates a new application with all dependencies wired. A nil logger
// discards output.
func New(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	dirs, err := openDirectories(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	rnd := random.New()
	g := grader.New(cfg.Grader, rnd, logger)
	return newWithDependencies(cfg, dirs, g, clock.New(), rnd, ids.New(), logger), nil
}

// openDirectories connects the configured directory backend
func openDirectories(ctx context.Context, cfg config.StorageConfig) (storage.Directories, error) {
	switch cfg.Type {
	case "", config.StorageTypeMemory:
		return memory.New(), nil
	case config.StorageTypeRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL required when STORAGE_TYPE is redis")
		}
		rcfg := redisstorage.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		return redisstorage.New(rcfg)
	case config.StorageTypePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN required when STORAGE_TYPE is postgres")
		}
		pg, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or postgres", cfg.Type)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg config.AppConfig,
	dirs storage.Directories,
	g grader.Grader,
	clk clock.Clock,
	rnd random.Random,
	idGen ids.Generator,
	logger *slog.Logger,
) *App {
	m := metrics.New()
	reg := registry.New(cfg.Server.SendBuffer, logger)
	store := lobbystore.New(m, logger)
	hubs := broadcast.NewHubManager(m, logger, broadcast.WithLobbyCheck(store.Exists))
	pub := broadcast.NewBroadcaster(hubs, reg, logger)
	catalog := problem.NewCatalog()

	recorder := directory.NewRecorder(dirs, cfg.Storage.WriteTimeout, m, logger)
	engine := match.NewEngine(store, g, pub, recorder, clk, m, logger)
	mm := matchmaking.New(store, engine, reg, pub, recorder, catalog, clk, rnd, idGen, logger)
	attacks := attack.New(store, pub, clk, attack.Config{
		Cooldown: cfg.Match.AttackCooldown,
		MaxAmmo:  cfg.Match.MaxAmmo,
	}, m, logger)
	relaySvc := relay.New(store, pub, clk, m)
	reg.SetDisconnectHandler(mm.HandleDisconnect)

	wsServer := ws.NewServer(reg, pub, ws.Services{
		Matchmaking: mm,
		Engine:      engine,
		Attacks:     attacks,
		Relay:       relaySvc,
	}, idGen, clk, cfg.Server.AllowedOrigins, m, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Clock:       clk,
		Random:      rnd,
		IDs:         idGen,
		Directories: dirs,
		Grader:      g,
		Registry:    reg,
		Hubs:        hubs,
		Publisher:   pub,
		Store:       store,
		Catalog:     catalog,
		Recorder:    recorder,
		Engine:      engine,
		Matchmaking: mm,
		Attacks:     attacks,
		Relay:       relaySvc,
		WS:          wsServer,
	}
}

// Close drops connections, waits for pending work and closes the directories
func (a *App) Close() error {
	a.WS.Close()
	a.WS.Wait()
	a.Recorder.Wait()
	a.Hubs.Close()
	return a.Directories.Close()
}
