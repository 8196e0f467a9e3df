// Package app wires the engine together: registry, store, connector
// pool, vm, and the optional metrics server and resource watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SmartX-Team/OpenARK-sub002/internal/connector"
	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
	"github.com/SmartX-Team/OpenARK-sub002/internal/metrics"
	"github.com/SmartX-Team/OpenARK-sub002/internal/registry"
	"github.com/SmartX-Team/OpenARK-sub002/internal/runner"
	"github.com/SmartX-Team/OpenARK-sub002/internal/store"
	"github.com/SmartX-Team/OpenARK-sub002/internal/vm"
	"github.com/SmartX-Team/OpenARK-sub002/modules/fake"
	"github.com/SmartX-Team/OpenARK-sub002/modules/file"
	"github.com/SmartX-Team/OpenARK-sub002/modules/httpconn"
	"github.com/SmartX-Team/OpenARK-sub002/modules/promconn"
)

var errEmptyResources = errors.New("ResourcesPath is a required configuration field and cannot be empty")

// coreConnectors are the kinds available without explicit wiring.
func coreConnectors() []connector.Connector {
	return []connector.Connector{
		fake.New(),
		file.New(),
		httpconn.New(),
		promconn.New(),
	}
}

// App encapsulates the engine's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	db       store.GraphDB
	metrics  *metrics.Metrics
	pool     *connector.Pool
	vm       *vm.VM
	watcher  *registry.Watcher
}

// NewApp is the constructor for the engine. It returns a fully
// initialized App instance with its own isolated logger, registry, and
// store. Startup errors are fatal and surface as panics; main recovers
// them into a clean exit.
func NewApp(outW io.Writer, cfg *Config, connectors ...connector.Connector) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if err := reg.LoadDir(ctx, cfg.ResourcesPath); err != nil {
		panic(fmt.Errorf("failed to load resources: %w", err))
	}
	logger.Debug("Resources loaded.", "path", cfg.ResourcesPath)

	var db store.GraphDB
	var err error
	if cfg.StorePath != "" {
		badgerCfg := store.DefaultBadgerConfig(cfg.StorePath)
		badgerCfg.Logger = logger
		if db, err = store.OpenBadger(badgerCfg); err != nil {
			panic(fmt.Errorf("failed to open store: %w", err))
		}
		logger.Debug("Badger store opened.", "path", cfg.StorePath)
	} else {
		db = store.NewMemory()
		logger.Debug("In-memory store selected.")
	}

	m := metrics.New()
	if len(connectors) == 0 {
		connectors = coreConnectors()
	}
	logger.Debug("Connectors registered.", "count", len(connectors))

	var watcher *registry.Watcher
	if cfg.Watch {
		if watcher, err = registry.NewWatcher(reg, cfg.ResourcesPath); err != nil {
			db.Close()
			panic(fmt.Errorf("failed to watch resources: %w", err))
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		db:       db,
		metrics:  m,
		pool:     connector.NewPool(reg, db, m, connectors...),
		vm:       vm.New(reg, db, runner.New(db), m, cfg.TickInterval),
		watcher:  watcher,
	}
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Store returns the application's graph store. This is primarily for
// testing.
func (a *App) Store() store.GraphDB {
	return a.db
}
