package bootstrap

import (
	"context"

	"go.uber.org/dig"

	"pagekv/internal/application/service"
	"pagekv/internal/domain"
	"pagekv/internal/platform/config"
	"pagekv/internal/platform/pagestore/engine"
	"pagekv/internal/platform/pagestore/loader"
	"pagekv/internal/platform/server"
	"pagekv/internal/platform/server/handler/kv"
)

// Run wires config, the bulk loader, the storage engine, the
// application services, the HTTP handler, and the server through a dig
// container, then starts the server.
func Run() (bool, error) {
	container := dig.New()
	constructors := []interface{}{
		config.LoadConfig,
		buildEngine,
		service.NewGetEntryService,
		service.NewPutEntryService,
		service.NewDeleteEntryService,
		service.NewRangeService,
		kv.NewHandler,
		server.NewServer,
	}
	for _, ctor := range constructors {
		if err := container.Provide(ctor); err != nil {
			return false, err
		}
	}

	err := container.Invoke(func(s server.Server) error {
		return s.Run()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// buildEngine runs the reference bulk loader over an empty key
// population, since this engine carries no write-ahead log or recovery
// path: every run starts from an empty store (spec.md's explicit
// recovery/WAL Non-goal).
func buildEngine(cfg config.Config) (*engine.Engine, error) {
	idx, mgr, mdl, err := loader.NewLinear().Build(context.Background(), []domain.Key{}, cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, idx, mgr, mdl), nil
}
