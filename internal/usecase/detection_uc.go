package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/adapter"
	"road-boundary-service/internal/domain/ports/repository"
	"road-boundary-service/internal/infra/logging"
	"road-boundary-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ DetectionUseCase = (*detectionUC)(nil)

// Upload is one incoming file plus its processing parameters.
type Upload struct {
	Filename  string
	MediaType string
	Body      io.Reader
	Params    model.JobParams
}

type DetectionUseCase interface {
	// Submit persists the upload, runs inference to completion and returns
	// the finished job. Inference failures come back as *domain.InferenceError.
	Submit(ctx context.Context, up Upload) (*model.Job, error)
	// Result locates and reads the result artifact for id.
	Result(ctx context.Context, id string) (*repository.Artifact, error)
	Job(ctx context.Context, id string) (*model.Job, error)
	// Sweep removes artifacts and ledger rows created before t.
	Sweep(ctx context.Context, before time.Time) (files, jobs int, err error)
}

type detectionUC struct {
	store  repository.ArtifactStore
	jobs   repository.JobRepository
	infer  adapter.InferenceAdapter
	newID  func() string
	models []string
	log    *zerolog.Logger
}

func NewDetectionUseCase(
	store repository.ArtifactStore,
	jobs repository.JobRepository,
	infer adapter.InferenceAdapter,
	newID func() string,
	models []string,
	logger *zerolog.Logger,
) *detectionUC {
	if len(models) == 0 {
		models = model.DefaultModels
	}
	ucLog := logger.With().Str("component", "DetectionUseCase").Logger()
	return &detectionUC{
		store:  store,
		jobs:   jobs,
		infer:  infer,
		newID:  newID,
		models: models,
		log:    &ucLog,
	}
}

func (u *detectionUC) Submit(ctx context.Context, up Upload) (*model.Job, error) {
	if up.Body == nil {
		return nil, domain.ErrNoFile
	}
	if err := up.Params.Validate(u.models); err != nil {
		return nil, err
	}

	id := u.newID()
	ctx = logging.WithJobID(ctx, id)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "DetectionUC.Submit")()

	ext := model.InferExt(up.Filename, up.MediaType)
	inPath, size, err := u.store.SaveUpload(ctx, id, ext, up.Body)
	if err != nil {
		log.Error().Err(err).Str("ext", ext).Msg("failed to persist upload")
		return nil, err
	}

	job, err := model.NewJob(id, up.Params, ext, size)
	if err != nil {
		return nil, fmt.Errorf("new job: %w", err)
	}
	metrics.ObserveUpload(string(job.Kind), size)
	log.Info().
		Str("path", inPath).
		Int64("size", size).
		Str("model", up.Params.Model).
		Float64("confidence", up.Params.Confidence).
		Str("display_mode", string(up.Params.DisplayMode)).
		Msg("upload persisted")
	u.record(ctx, job)

	res, err := u.infer.Run(ctx, adapter.InferenceRequest{
		JobID:      id,
		InputPath:  inPath,
		OutputPath: u.store.ResultPath(id, ext),
		Params:     up.Params,
	})
	if err != nil {
		job.Fail(err)
		u.record(ctx, job)
		metrics.IncJob(string(model.JobStatusFailed))
		return nil, err
	}

	resultName, ok := u.store.InResults(res.OutputPath)
	if !ok {
		log.Warn().Str("output", res.OutputPath).Msg("process reported an output outside the results area")
		resultName = model.ResultName(id, ext)
	}
	job.Complete(resultName)
	u.record(ctx, job)
	metrics.IncJob(string(model.JobStatusCompleted))
	log.Info().Str("result", resultName).Dur("duration", res.Duration).Msg("job completed")
	return job, nil
}

// record writes the ledger entry even when the caller has gone away. Ledger
// failures never fail the request.
func (u *detectionUC) record(ctx context.Context, job *model.Job) {
	if err := u.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("status", string(job.Status)).Msg("failed to record job")
	}
}

func (u *detectionUC) Result(ctx context.Context, id string) (*repository.Artifact, error) {
	if err := model.ValidateJobID(id); err != nil {
		metrics.IncResultFetch("invalid_id")
		return nil, err
	}
	ctx = logging.WithJobID(ctx, id)
	log := logging.With(ctx, u.log)

	var hint string
	if job, err := u.jobs.FindByID(ctx, id); err == nil {
		hint = job.ResultName
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("job ledger lookup failed")
	}

	name, err := u.store.FindResult(ctx, id, hint)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			metrics.IncResultFetch("not_found")
		default:
			metrics.IncResultFetch("error")
			log.Error().Err(err).Msg("result lookup failed")
		}
		return nil, err
	}

	art, err := u.store.ReadResult(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedKind) {
			metrics.IncResultFetch("invalid_type")
		} else {
			metrics.IncResultFetch("error")
			log.Error().Err(err).Str("result", name).Msg("result read failed")
		}
		return nil, err
	}
	metrics.IncResultFetch("served")
	return art, nil
}

func (u *detectionUC) Job(ctx context.Context, id string) (*model.Job, error) {
	if err := model.ValidateJobID(id); err != nil {
		return nil, err
	}
	return u.jobs.FindByID(ctx, id)
}

func (u *detectionUC) Sweep(ctx context.Context, before time.Time) (int, int, error) {
	files, ferr := u.store.Sweep(ctx, before)
	ids, jerr := u.jobs.DeleteBefore(ctx, before)
	return files, len(ids), errors.Join(ferr, jerr)
}
