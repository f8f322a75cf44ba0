// Package ledger opens the job repository selected by database.driver.
package ledger

import (
	"context"
	"fmt"
	"time"

	"road-boundary-service/internal/config"
	"road-boundary-service/internal/domain/ports/repository"
	"road-boundary-service/internal/infra/db/memory"
	pg "road-boundary-service/internal/infra/db/postgres"
	"road-boundary-service/internal/infra/db/sqlite"

	"github.com/rs/zerolog"
)

// Open returns the job repository and a function releasing its resources.
// For postgres, pool gauges are reported until ctx ends.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (repository.JobRepository, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info().Msg("job ledger: memory")
		return memory.NewJobRepo(), func() {}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.URL).Msg("job ledger: sqlite")
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("close sqlite")
			}
		}
		return sqlite.NewJobRepo(db), closeFn, nil
	case "postgres":
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)
		logger.Info().Int32("max_conns", cfg.MaxConns).Msg("job ledger: postgres")
		return pg.NewJobRepo(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
