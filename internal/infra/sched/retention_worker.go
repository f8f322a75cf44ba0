package sched

import (
	"context"
	"errors"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/infra/metrics"
	red "road-boundary-service/internal/infra/redis"

	"github.com/rs/zerolog"
)

// Sweeper is the slice of the detection use case the worker drives.
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time) (files, jobs int, err error)
}

// RetentionWorker periodically deletes artifacts and ledger rows older than maxAge.
type RetentionWorker struct {
	interval time.Duration
	maxAge   time.Duration
	sweeper  Sweeper
	locker   red.Locker // optional, one replica sweeps at a time
	now      func() time.Time
	log      *zerolog.Logger
}

func NewRetentionWorker(interval, maxAge time.Duration, sweeper Sweeper, locker red.Locker, logger *zerolog.Logger) *RetentionWorker {
	retLog := logger.With().Str("component", "RetentionWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionWorker{
		interval: interval,
		maxAge:   maxAge,
		sweeper:  sweeper,
		locker:   locker,
		now:      time.Now,
		log:      &retLog,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("max_age", w.maxAge).Dur("interval", w.interval).Msg("Starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one sweep.
func (w *RetentionWorker) Tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, red.RetentionLockKey, w.interval)
		if err != nil {
			if !errors.Is(err, domain.ErrAlreadyExists) {
				w.log.Warn().Err(err).Msg("retention lock unavailable")
			}
			return
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), red.RetentionLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("retention unlock failed")
			}
		}()
	}

	files, jobs, err := w.sweeper.Sweep(ctx, w.now().Add(-w.maxAge))
	if err != nil {
		w.log.Error().Err(err).Msg("retention sweep error")
	}
	if files > 0 || jobs > 0 {
		metrics.AddSwept("files", files)
		metrics.AddSwept("jobs", jobs)
		w.log.Info().Int("files", files).Int("jobs", jobs).Msg("retention sweep removed expired data")
	}
}
