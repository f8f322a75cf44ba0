// Package memory holds the process-local job ledger used when no database
// is configured. Records vanish on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]model.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]model.Job)}
}

func (r *JobRepo) Save(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now()
	}
	r.mu.Lock()
	r.jobs[job.ID] = *job
	r.mu.Unlock()
	return nil
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

func (r *JobRepo) DeleteBefore(ctx context.Context, t time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, j := range r.jobs {
		if j.CreatedAt.Before(t) {
			delete(r.jobs, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}
