package postgres

import (
	"context"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
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
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  result_name = EXCLUDED.result_name,
  last_error = EXCLUDED.last_error,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, nil, q,
		job.ID, string(job.Status), job.Params.Model, job.Params.Confidence, string(job.Params.DisplayMode),
		job.UploadName, job.ResultName, string(job.Kind), job.SizeBytes, job.LastError, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *jobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	const q = `
SELECT id, status, model, confidence, display_mode, upload_name, result_name, media_kind, size_bytes, last_error, created_at, updated_at
FROM detection_jobs
WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, nil, q, id)
	if err != nil {
		return nil, err
	}
	var (
		j                  model.Job
		status, mode, kind string
	)
	if err := row.Scan(
		&j.ID, &status, &j.Params.Model, &j.Params.Confidence, &mode,
		&j.UploadName, &j.ResultName, &kind, &j.SizeBytes, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, translateNoRows(err)
	}
	j.Status = model.JobStatus(status)
	j.Params.DisplayMode = model.DisplayMode(mode)
	j.Kind = model.MediaKind(kind)
	return &j, nil
}

func (r *jobRepo) DeleteBefore(ctx context.Context, t time.Time) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, nil, `DELETE FROM detection_jobs WHERE created_at < $1 RETURNING id;`, t)
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
