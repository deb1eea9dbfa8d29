// Package agentcore is the top-level convenience entry point: it bundles
// the logger, metrics collector, telemetry providers and snapshot store
// configured from one Config, so callers can stand up both engines without
// wiring each dependency by hand.
//
// Usage:
//
//	import "github.com/BaSui01/agentcore"
//
//	rt, err := agentcore.NewRuntime(cfg)
//	defer rt.Close(context.Background())
//	executor := behaviortree.NewExecutor[*myContext](rt.Logger, rt.Collector)
//
// The engine packages (behaviortree, statemachine, registry, declarative)
// remain fully usable without a Runtime.
package agentcore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/internal/telemetry"
	"github.com/BaSui01/agentcore/persistence"
)

// Version is the library version, overridable at build time.
var Version = "dev"

// Runtime bundles the shared dependencies both engines consume.
type Runtime struct {
	Logger    *zap.Logger
	Collector *metrics.Collector
	Store     persistence.Store

	providers *telemetry.Providers
}

// NewRuntime builds a runtime from configuration: logger, OTel providers,
// Prometheus collector and the snapshot store named by
// Engine.SnapshotStore (memory, redis or database).
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Logger:    logger,
		Collector: metrics.NewCollector(cfg.Engine.MetricsNamespace, nil, logger),
		Store:     store,
		providers: providers,
	}, nil
}

func newStore(cfg *config.Config, logger *zap.Logger) (persistence.Store, error) {
	switch cfg.Engine.SnapshotStore {
	case "redis":
		return persistence.NewRedisStoreFromConfig(cfg.Redis, logger), nil
	case "database":
		db, err := persistence.OpenDatabase(cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return persistence.NewGormStore(db, logger)
	default:
		return persistence.NewMemoryStore(), nil
	}
}

// Close flushes telemetry and the logger.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.providers.Shutdown(ctx)
	_ = r.Logger.Sync()
	return err
}
