package repository

import (
	"context"
	"time"

	"road-boundary-service/internal/domain/model"
)

// JobRepository is the port for the job ledger.
type JobRepository interface {
	// Save inserts or updates a job keyed by ID.
	Save(ctx context.Context, job *model.Job) error
	// FindByID returns domain.ErrNotFound when no job exists.
	FindByID(ctx context.Context, id string) (*model.Job, error)
	// DeleteBefore removes records created before t and returns their ids.
	DeleteBefore(ctx context.Context, t time.Time) ([]string, error)
}
