// Package cairn assembles the world: a model registry, a layout-driven
// storage engine, and an HTTP surface over a shared word-addressed substrate.
package cairn

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/cairn-engine/cairn/log"
	"github.com/cairn-engine/cairn/server"
	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/types"
	"github.com/cairn-engine/cairn/worldstate"
)

const redisDialTimeout = 15 * time.Second

var _ log.Loggable = &World{}

type World struct {
	cfg  WorldConfig
	mode RunMode

	// Storage
	dbStorage storage.WordStorage

	// Core modules
	perms    *worldstate.PermissionStore
	registry *worldstate.Registry
	manager  *worldstate.StateManager
	access   worldstate.AccessControl
	policy   worldstate.UpgradePolicy

	// Networking
	server        *server.Server
	serverOptions []server.Option
}

// NewWorld creates a world from the environment config. Production mode
// requires a reachable redis; development mode defaults to an in-memory
// substrate unless WithStorage overrides it.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	zerolog.SetGlobalLevel(level)

	zerologlog.Info().Msgf("Creating a new world in %s mode", cfg.Mode)

	world := &World{
		cfg:  cfg,
		mode: RunMode(cfg.Mode),
	}
	for _, opt := range opts {
		opt(world)
	}

	if world.dbStorage == nil {
		if world.mode == RunModeProd {
			client := redis.NewClient(&redis.Options{
				Addr:        cfg.RedisAddress,
				Password:    cfg.RedisPassword,
				DB:          0, // use default DB
				DialTimeout: redisDialTimeout,
			})
			world.dbStorage = storage.NewRedisStorage(client)
		} else {
			world.dbStorage = storage.NewMapStorage()
		}
	}

	world.perms = worldstate.NewPermissionStore(world.dbStorage)
	if world.access == nil {
		world.access = world.perms
	}
	world.registry = worldstate.NewRegistry(world.dbStorage, world.perms, world.policy)
	world.manager = worldstate.NewStateManager(world.dbStorage, world.registry, world.access)

	world.server, err = server.New(world.manager, append(
		[]server.Option{server.WithPort(cfg.Port)}, world.serverOptions...,
	)...)
	if err != nil {
		return nil, err
	}

	return world, nil
}

func (w *World) Registry() *worldstate.Registry           { return w.registry }
func (w *World) StateManager() *worldstate.StateManager   { return w.manager }
func (w *World) Permissions() *worldstate.PermissionStore { return w.perms }

// Serve runs the HTTP server until the context is canceled or a termination
// signal arrives, then shuts everything down.
func (w *World) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		select {
		case sig := <-signals:
			zerologlog.Info().Msgf("Received signal %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.World(&zerologlog.Logger, w, zerolog.InfoLevel)

	err := w.server.Serve(ctx)
	if closeErr := w.dbStorage.Close(context.Background()); err == nil {
		err = closeErr
	}
	return err
}

// RegisteredNamespaces implements log.Loggable.
func (w *World) RegisteredNamespaces() []string {
	namespaces, err := w.registry.Namespaces(context.Background())
	if err != nil {
		return nil
	}
	return namespaces
}

// RegisteredModels implements log.Loggable.
func (w *World) RegisteredModels() []log.ModelInfo {
	models, err := w.registry.Models(context.Background())
	if err != nil {
		return nil
	}
	infos := make([]log.ModelInfo, 0, len(models))
	for _, m := range models {
		infos = append(infos, log.ModelInfo{
			Selector:  m.Selector.Hex(),
			Namespace: m.Namespace,
			Name:      m.Name,
			Version:   m.Version,
			Packed:    m.Packed,
		})
	}
	return infos
}

// RegisterNamespace registers a namespace and grants the caller ownership.
func RegisterNamespace(w *World, caller types.Address, name string) (types.Selector, error) {
	return w.registry.RegisterNamespace(context.Background(), caller, name)
}

// RegisterModel registers a model, or upgrades it when the caller owns the
// existing registration.
func RegisterModel(w *World, caller types.Address, def worldstate.ModelDefinition) (types.Selector, error) {
	return w.registry.RegisterModel(context.Background(), caller, def)
}

// SetEntity writes a full record of a registered model.
func SetEntity(w *World, caller types.Address, model types.Selector, keys, values []types.Word) error {
	return w.manager.SetEntity(context.Background(), caller, model, keys, values, nil)
}

// GetEntity reads a full record of a registered model.
func GetEntity(w *World, model types.Selector, keys []types.Word) ([]types.Word, error) {
	return w.manager.Entity(context.Background(), model, keys, nil)
}

// DeleteEntity zeroes a record of a registered model.
func DeleteEntity(w *World, caller types.Address, model types.Selector, keys []types.Word) error {
	return w.manager.DeleteEntity(context.Background(), caller, model, keys, nil)
}

// SetMember writes one member of a record.
func SetMember(w *World, caller types.Address, model types.Selector, keys []types.Word, member string, values []types.Word) error {
	id := worldstate.EntityIDFromKeys(keys)
	return w.manager.SetMember(context.Background(), caller, model, id, types.FieldSelector(member), values)
}

// GetMember reads one member of a record.
func GetMember(w *World, model types.Selector, keys []types.Word, member string) ([]types.Word, error) {
	id := worldstate.EntityIDFromKeys(keys)
	return w.manager.Member(context.Background(), model, id, types.FieldSelector(member))
}
