package repository

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"portfolio/internal/config"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
	"portfolio/internal/repository/localfs"
	"portfolio/internal/repository/postgres"
	postgresPortfolio "portfolio/internal/repository/postgres/portfolio"
	"portfolio/internal/repository/remote"
)

// OpenDirectory builds the directory service selected by DIRECTORY_BACKEND.
// The returned cleanup releases backend resources (the Postgres pool) and is never nil.
func OpenDirectory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portfolioSvc.DirectoryService, func(), error) {
	noop := func() {}

	switch cfg.DirectoryBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("DATABASE_URL is required for the %s backend", config.BackendPostgres)
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create connection pool: %w", err)
		}
		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		txManager := postgres.NewTransactionManager(pool, logger)
		logger.Info("directory backend ready",
			"backend", cfg.DirectoryBackend,
			"table_prefix", cfg.TablePrefix,
		)
		return postgresPortfolio.NewDirectory(repoConfig, txManager), pool.Close, nil

	case config.BackendRemote:
		if cfg.DirectoryURL == "" {
			return nil, noop, fmt.Errorf("DIRECTORY_URL is required for the %s backend", config.BackendRemote)
		}
		logger.Info("directory backend ready",
			"backend", cfg.DirectoryBackend,
			"url", cfg.DirectoryURL,
		)
		return remote.NewDirectory(cfg.DirectoryURL, &http.Client{Timeout: remote.DefaultTimeout}, logger), noop, nil

	case config.BackendLocalFS:
		logger.Info("directory backend ready",
			"backend", cfg.DirectoryBackend,
			"root", cfg.LocalRoot,
		)
		return localfs.NewDirectory(cfg.LocalRoot, logger), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown DIRECTORY_BACKEND %q (want %s, %s or %s)",
			cfg.DirectoryBackend, config.BackendPostgres, config.BackendRemote, config.BackendLocalFS)
	}
}
