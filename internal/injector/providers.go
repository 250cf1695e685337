package injector

import (
	"github.com/google/wire"

	"github.com/safarnama/safarnama/internal/api"
	"github.com/safarnama/safarnama/internal/config"
	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/core/systems/loop"
	"github.com/safarnama/safarnama/internal/server"
	"github.com/safarnama/safarnama/internal/session"
)

// App is everything the commands need, built from one Config.
type App struct {
	Config   config.Config
	Logger   log.Log
	Events   bus.EventBus
	Sessions *session.Cache
	Gate     *session.Gate
	API      *api.Client
	Server   *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideEventBus,
	ProvideSessionStore,
	ProvideSessionCache,
	ProvideAPIClient,
	ProvideGate,
	ProvideGenreLister,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg config.Config) log.Log {
	return log.New(log.ParseLevel(cfg.Log.Level))
}

// ProvideEventBus returns a bus that logs every delivery at debug level.
func ProvideEventBus(logger log.Log) bus.EventBus {
	b := bus.New()
	b.AddObserver(bus.NewLogObserver(logger))
	return b
}

// ProvideSessionStore opens the SQLite store when a path is configured and
// falls back to memory otherwise.
func ProvideSessionStore(cfg config.Config, logger log.Log) (session.Store, func(), error) {
	if cfg.Session.Path == "" {
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.OpenSQLiteStore(cfg.Session.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Session store opened", log.String("path", store.Path()))
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close session store", log.Error(err))
		}
	}, nil
}

func ProvideSessionCache(store session.Store, events bus.EventBus, logger log.Log) *session.Cache {
	return session.NewCache(store, events, logger)
}

func ProvideAPIClient(cfg config.Config, sessions *session.Cache, logger log.Log) (*api.Client, error) {
	return api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, sessions, logger)
}

func ProvideGate(sessions *session.Cache, client *api.Client, logger log.Log) *session.Gate {
	return session.NewGate(sessions, client.Auth, logger)
}

func ProvideGenreLister(client *api.Client) server.GenreLister {
	return client.Genres
}

func ProvideServer(cfg config.Config, events bus.EventBus, genres server.GenreLister, logger log.Log) *server.Server {
	sc := server.DefaultServerConfig()
	sc.ListenAddr = cfg.Server.ListenAddr
	sc.MaxClients = cfg.Server.MaxConnections
	sc.WriteTimeout = cfg.Server.WriteTimeout
	sc.ReadLimit = cfg.Server.ReadLimit
	sc.AllowedOrigins = cfg.Server.AllowedOrigins
	sc.DefaultWidth = cfg.Field.Width
	sc.DefaultHeight = cfg.Field.Height
	sc.Seed = cfg.Field.Seed
	sc.Loop = loop.Config{FrameRate: cfg.Field.FrameRate}
	return server.NewServer(sc, events, genres, logger)
}
