// Package app assembles the postil service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blackmichael/postily/internal/cache"
	"github.com/blackmichael/postily/internal/config"
	"github.com/blackmichael/postily/internal/domain"
	"github.com/blackmichael/postily/internal/postgres"
	"github.com/blackmichael/postily/internal/sqlite"
)

// App holds the wired service and the resources it owns.
type App struct {
	Service *domain.PostilService
	closers []func() error
}

// New opens the configured repository and, when REDIS_ADDR is set, the match
// cache, and builds the service over them. An unreachable cache is logged
// and matching runs uncached.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, repo.Close)
	logger.Info("connected to database", "driver", cfg.DatabaseDriver)

	extractor, err := cfg.Extractor()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	opts := []domain.ServiceOption{
		domain.WithExtractor(extractor),
		domain.WithBatchSize(cfg.ImportBatchSize),
	}

	if cfg.RedisAddr != "" {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.CacheTTL,
		}, logger)
		if err != nil {
			logger.Warn("match cache unavailable, continuing without it", "addr", cfg.RedisAddr, "error", err)
		} else {
			a.closers = append(a.closers, c.Close)
			opts = append(opts, domain.WithMatchCache(c))
			logger.Info("match cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	a.Service = domain.NewPostilService(repo, logger, opts...)
	return a, nil
}

// Close releases the repository and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

type repository interface {
	domain.PostilRepository
	Close() error
}

func openRepository(ctx context.Context, cfg *config.Config) (repository, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create repository: %w", err)
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	case config.DriverSQLite, "":
		repo, err := sqlite.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create repository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}
