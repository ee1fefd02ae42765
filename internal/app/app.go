// Package app wires configuration into a running numbering service.
// cmd/server and cmd/numctl share it.
package app

import (
	"context"
	"fmt"

	"serialgen/internal/config"
	"serialgen/internal/core/numerator"
	"serialgen/internal/domain/numbering"
	"serialgen/internal/domain/prefixrule"
	issuer "serialgen/internal/infrastructure/numerator"
	"serialgen/internal/infrastructure/storage"
	"serialgen/internal/infrastructure/storage/bolt"
	"serialgen/internal/infrastructure/storage/memory"
	"serialgen/internal/infrastructure/storage/postgres"
	"serialgen/internal/infrastructure/storage/redis"
	"serialgen/pkg/logger"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Backend  numerator.Backend
	Registry *prefixrule.Registry
	Issuer   numerator.Issuer
	Service  *numbering.Service
}

// New opens the configured backend and builds the service on top of it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := Build(cfg, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return a, nil
}

// Build assembles the service over an already opened backend.
// The backend is wrapped with timeouts, tracing and metrics.
func Build(cfg *config.Config, backend numerator.Backend) (*App, error) {
	policy, err := prefixrule.ParsePolicy(cfg.Registry.Policy)
	if err != nil {
		return nil, err
	}

	store := storage.Instrument(backend, cfg.Store.Timeout)
	keys := numerator.Keyspace{Namespace: cfg.Keyspace.Namespace}

	registry := prefixrule.NewRegistry(store, keys, prefixrule.Config{
		Policy:   policy,
		CacheTTL: cfg.Registry.CacheTTL,
		Retry:    cfg.RegistryRetry(),
	})

	iss := issuer.New(store, keys, cfg.IssuerOptions())

	service := numbering.NewService(numbering.ServiceConfig{
		Rules:         registry,
		Issuer:        iss,
		Assembler:     numerator.NewAssembler(numerator.WithBlockedMarker(cfg.Assembler.BlockedMarker)),
		TryAgainAfter: cfg.Issuer.TryAgainAfter,
	})

	return &App{
		Config:   cfg,
		Backend:  store,
		Registry: registry,
		Issuer:   iss,
		Service:  service,
	}, nil
}

// OpenBackend connects to the store named by cfg.Store.Backend.
func OpenBackend(ctx context.Context, cfg *config.Config) (numerator.Backend, error) {
	var (
		backend numerator.Backend
		err     error
	)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		backend = memory.New()
	case config.BackendRedis:
		rc := redis.DefaultConfig()
		rc.Addrs = cfg.Redis.Addrs
		rc.Username = cfg.Redis.Username
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.MasterName = cfg.Redis.MasterName
		if cfg.Redis.PoolSize > 0 {
			rc.PoolSize = cfg.Redis.PoolSize
		}
		backend, err = redis.New(ctx, rc)
	case config.BackendPostgres:
		pc := postgres.DefaultPoolConfig(cfg.Postgres.DSN)
		if cfg.Postgres.MaxConns > 0 {
			pc.MaxConns = cfg.Postgres.MaxConns
		}
		backend, err = postgres.Open(ctx, pc)
	case config.BackendBolt:
		backend, err = bolt.Open(bolt.Config{Path: cfg.Bolt.Path})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Store.Backend, err)
	}

	logger.Info(ctx, "store backend opened", "backend", backend.Name())
	return backend, nil
}

// Close releases the backend.
func (a *App) Close() error {
	return a.Backend.Close()
}
