// Package app assembles storage backends, use cases and the HTTP router into a running
// ledger service.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/handler"
	"github.com/AlexShrike/nexum-sub002/internal/adapter/repository/memory"
	pgrepo "github.com/AlexShrike/nexum-sub002/internal/adapter/repository/postgres"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/config"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/postgres"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// Backend is one storage implementation of every repository port.
type Backend struct {
	Name         string
	Scopes       usecase.ScopeManager
	Accounts     usecase.AccountRepository
	Entries      usecase.EntryRepository
	Transactions usecase.TransactionRepository
	Audit        usecase.AuditRepository
	Checks       map[string]handler.Pinger
	close        func()
}

// Close releases backend resources.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// NewMemoryBackend returns a process-local backend. Its contents do not survive restarts.
func NewMemoryBackend(opts ...memory.Option) *Backend {
	store := memory.NewStore(opts...)
	return &Backend{
		Name:         config.StorageMemory,
		Scopes:       store,
		Accounts:     memory.NewAccountRepository(store),
		Entries:      memory.NewEntryRepository(store),
		Transactions: memory.NewTransactionRepository(store),
		Audit:        memory.NewAuditRepository(store),
		Checks:       map[string]handler.Pinger{},
	}
}

// NewPostgresBackend connects to Postgres, applies migrations when configured and
// returns the pgx backend.
func NewPostgresBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("connected to postgres")

	return &Backend{
		Name:         config.StoragePostgres,
		Scopes:       pgrepo.NewTxManager(pool, logger),
		Accounts:     pgrepo.NewAccountRepository(pool),
		Entries:      pgrepo.NewEntryRepository(pool),
		Transactions: pgrepo.NewTransactionRepository(pool),
		Audit:        pgrepo.NewAuditRepository(pool),
		Checks:       map[string]handler.Pinger{"postgres": pool.Ping},
		close:        pool.Close,
	}, nil
}

// NewBackend selects the backend named in cfg.
func NewBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		return NewMemoryBackend(), nil
	case config.StoragePostgres:
		return NewPostgresBackend(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
