// File: cmd/store_provider.go
package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
	"github.com/xkilldash9x/phpflow/internal/config"
	"github.com/xkilldash9x/phpflow/internal/observability"
	"github.com/xkilldash9x/phpflow/internal/store"
)

// resultStore is the subset of *store.Store the commands use.
type resultStore interface {
	SaveResult(ctx context.Context, result *taint.Result, source string) error
	GetResult(ctx context.Context, runID uuid.UUID) (*taint.Result, error)
}

// storeProvider creates a result store. Tests inject a mock instead of a
// live database connection.
type storeProvider interface {
	// Create returns the store and a cleanup function that releases it.
	Create(ctx context.Context, cfg config.Interface) (resultStore, func(), error)
}

type defaultStoreProvider struct{}

func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to PostgreSQL, verifies the connection and makes sure the
// schema exists.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (resultStore, func(), error) {
	logger := observability.GetLogger()
	dbCfg := cfg.Database()
	if dbCfg.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (PHPFLOW_DATABASE_URL)")
	}

	connectCtx := ctx
	if dbCfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, dbCfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.New(connectCtx, dbCfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(connectCtx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := s.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}
