package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/repository"
	"road-boundary-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ repository.JobRepository = (*jobRepoCacheDecorator)(nil)

// jobRepoCacheDecorator serves FindByID from Redis and writes through on Save.
// Only finished jobs are cached since processing rows change soon.
type jobRepoCacheDecorator struct {
	inner repository.JobRepository
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewJobRepoCacheDecorator(inner repository.JobRepository, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.JobRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cacheLog := logger.With().Str("component", "JobCache").Logger()
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &cacheLog}
}

func jobKey(id string) string { return "job:" + id }

func (d *jobRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.Job, error) {
	val, err := d.cache.Get(ctx, jobKey(id))
	if err == nil {
		var job model.Job
		if json.Unmarshal([]byte(val), &job) == nil {
			metrics.IncLedgerCache("hit")
			return &job, nil
		}
	} else if !errors.Is(err, Nil) {
		d.log.Warn().Err(err).Str("job_id", id).Msg("cache get failed")
	}

	metrics.IncLedgerCache("miss")
	job, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, job)
	return job, nil
}

func (d *jobRepoCacheDecorator) Save(ctx context.Context, job *model.Job) error {
	if err := d.inner.Save(ctx, job); err != nil {
		return err
	}
	if job.Status == model.JobStatusProcessing {
		if err := d.cache.Del(ctx, jobKey(job.ID)); err != nil {
			d.log.Warn().Err(err).Str("job_id", job.ID).Msg("cache invalidate failed")
		}
		return nil
	}
	d.store(ctx, job)
	return nil
}

// DeleteBefore evicts every swept id so a deleted job is never served from cache.
func (d *jobRepoCacheDecorator) DeleteBefore(ctx context.Context, t time.Time) ([]string, error) {
	ids, err := d.inner.DeleteBefore(ctx, t)
	for start := 0; start < len(ids); start += evictBatch {
		end := min(start+evictBatch, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, jobKey(id))
		}
		if derr := d.cache.Del(ctx, keys...); derr != nil {
			d.log.Warn().Err(derr).Int("keys", len(keys)).Msg("cache evict after sweep failed")
		}
	}
	return ids, err
}

// evictBatch caps the keys sent in one DEL.
const evictBatch = 500

func (d *jobRepoCacheDecorator) store(ctx context.Context, job *model.Job) {
	if job == nil || job.Status == model.JobStatusProcessing {
		return
	}
	b, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, jobKey(job.ID), b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("job_id", job.ID).Msg("cache set failed")
	}
}
