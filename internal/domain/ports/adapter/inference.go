package adapter

import (
	"context"
	"time"

	"road-boundary-service/internal/domain/model"
)

// InferenceRequest is everything the external process needs for one job.
type InferenceRequest struct {
	JobID      string
	InputPath  string
	OutputPath string
	Params     model.JobParams
}

// InferenceResult describes a successful run.
type InferenceResult struct {
	// OutputPath is the file the process actually wrote. It may differ from
	// the requested path when the process rewrites the extension.
	OutputPath string
	Duration   time.Duration
}

// InferenceAdapter is the port for the external detection process.
// Failed runs return a *domain.InferenceError.
type InferenceAdapter interface {
	Run(ctx context.Context, req InferenceRequest) (*InferenceResult, error)
}
