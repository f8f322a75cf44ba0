package inference

import (
	"context"
	"fmt"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.InferenceAdapter = (*limitedInference)(nil)

type limitedInference struct {
	inner adapter.InferenceAdapter
	sem   chan struct{}
}

// NewLimitedInference caps how many processes run at once. Waiting callers
// give up when their context ends.
func NewLimitedInference(inner adapter.InferenceAdapter, maxConcurrent int) adapter.InferenceAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedInference{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedInference) Run(ctx context.Context, req adapter.InferenceRequest) (*adapter.InferenceResult, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceBusy, ctx.Err())
	}
	defer func() { <-l.sem }()
	return l.inner.Run(ctx, req)
}
