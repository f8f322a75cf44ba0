package postgres

import (
	"context"
	"fmt"
	"time"

	"road-boundary-service/internal/config"
	"road-boundary-service/internal/infra/metrics"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// Connect returns a live *pgxpool.Pool for the job ledger.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres: database url is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}
	return pool, nil
}

// ReportPoolStats publishes pool gauges until ctx ends.
func ReportPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration, logger *zerolog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	logger.Debug().Dur("interval", interval).Msg("reporting postgres pool stats")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := pool.Stat()
			metrics.SetLedgerPool(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}

// schema mirrors deploy/postgres/init.sql so a fresh database works without
// running the init script.
const schema = `
CREATE TABLE IF NOT EXISTS detection_jobs (
  id           TEXT PRIMARY KEY,
  status       TEXT NOT NULL,
  model        TEXT NOT NULL,
  confidence   DOUBLE PRECISION NOT NULL,
  display_mode TEXT NOT NULL,
  upload_name  TEXT NOT NULL,
  result_name  TEXT NOT NULL DEFAULT '',
  media_kind   TEXT NOT NULL,
  size_bytes   BIGINT NOT NULL DEFAULT 0,
  last_error   TEXT NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL,
  updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detection_jobs_created_at ON detection_jobs (created_at);`
