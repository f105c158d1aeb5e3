package main

import (
	"context"
	"fmt"

	"github.com/harentsoaR/clinic-reception-api/internal/config"
	"github.com/harentsoaR/clinic-reception-api/internal/handlers"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
	"github.com/harentsoaR/clinic-reception-api/internal/store/memstore"
	"go.uber.org/zap"
)

// backend is the selected store together with the views of it that the
// services and handlers need.
type backend struct {
	repos  services.Repositories
	health handlers.HealthChecker
	failed handlers.FailedEvents
	mongo  *store.Store
	close  func(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	if cfg.Store.Driver == config.DriverMemory {
		mem := memstore.New()
		log.Warn("using in-memory store; data is lost on exit")
		return &backend{
			repos:  services.MemoryRepositories(mem),
			health: mem,
			failed: mem.Outbox(),
			close:  mem.Close,
		}, nil
	}

	s, err := store.Open(ctx, store.Options{
		URI:          cfg.Store.URI,
		Database:     cfg.Store.Database,
		Timeout:      cfg.Store.Timeout,
		Transactions: cfg.Store.Transactions,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &backend{
		repos:  services.MongoRepositories(s),
		health: s,
		failed: s.Outbox(),
		mongo:  s,
		close:  s.Close,
	}, nil
}
