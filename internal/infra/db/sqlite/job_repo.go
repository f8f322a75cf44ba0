package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	db *sql.DB
}

func NewJobRepo(db *sql.DB) *jobRepo {
	return &jobRepo{db: db}
}

func (r *jobRepo) Save(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidArgument
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now()
	}

	const q = `
INSERT INTO detection_jobs (id, status, model, confidence, display_mode, upload_name, result_name, media_kind, size_bytes, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  status = excluded.status,
  result_name = excluded.result_name,
  last_error = excluded.last_error,
  updated_at = excluded.updated_at;`

	_, err := r.db.ExecContext(ctx, q,
		job.ID, string(job.Status), job.Params.Model, job.Params.Confidence, string(job.Params.DisplayMode),
		job.UploadName, job.ResultName, string(job.Kind), job.SizeBytes, job.LastError,
		job.CreatedAt.UnixNano(), job.UpdatedAt.UnixNano())
	return err
}

func (r *jobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	const q = `
SELECT id, status, model, confidence, display_mode, upload_name, result_name, media_kind, size_bytes, last_error, created_at, updated_at
FROM detection_jobs WHERE id = ?;`

	var (
		j                  model.Job
		status, mode, kind string
		created, updated   int64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&j.ID, &status, &j.Params.Model, &j.Params.Confidence, &mode,
		&j.UploadName, &j.ResultName, &kind, &j.SizeBytes, &j.LastError, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Status = model.JobStatus(status)
	j.Params.DisplayMode = model.DisplayMode(mode)
	j.Kind = model.MediaKind(kind)
	j.CreatedAt = time.Unix(0, created)
	j.UpdatedAt = time.Unix(0, updated)
	return &j, nil
}

func (r *jobRepo) DeleteBefore(ctx context.Context, t time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM detection_jobs WHERE created_at < ? RETURNING id;`, t.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
