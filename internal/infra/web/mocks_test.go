package web

import (
	"context"
	"io"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/adapter"
	"road-boundary-service/internal/domain/ports/repository"
	"road-boundary-service/internal/infra/storage"
	"road-boundary-service/internal/usecase"
)

// fakeInference writes a result next to where the real process would.
type fakeInference struct {
	err  error
	body []byte
	runs atomic.Int32
}

func (f *fakeInference) calls() int { return int(f.runs.Load()) }

func (f *fakeInference) Run(ctx context.Context, req adapter.InferenceRequest) (*adapter.InferenceResult, error) {
	f.runs.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	body := f.body
	if body == nil {
		body = []byte("annotated:" + req.JobID)
	}
	if err := os.WriteFile(req.OutputPath, body, 0o644); err != nil {
		return nil, err
	}
	return &adapter.InferenceResult{OutputPath: req.OutputPath, Duration: time.Millisecond}, nil
}

// countingFS records every filesystem call made through the artifact store.
type countingFS struct {
	storage.OSFS
	mu    sync.Mutex
	calls int
}

func (c *countingFS) hit() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingFS) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingFS) MkdirAll(p string, perm fs.FileMode) error {
	c.hit()
	return c.OSFS.MkdirAll(p, perm)
}
func (c *countingFS) Create(name string) (io.WriteCloser, error) {
	c.hit()
	return c.OSFS.Create(name)
}
func (c *countingFS) Stat(name string) (fs.FileInfo, error) {
	c.hit()
	return c.OSFS.Stat(name)
}
func (c *countingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	c.hit()
	return c.OSFS.ReadDir(name)
}
func (c *countingFS) ReadFile(name string) ([]byte, error) {
	c.hit()
	return c.OSFS.ReadFile(name)
}
func (c *countingFS) Remove(name string) error {
	c.hit()
	return c.OSFS.Remove(name)
}

type fakeLimiter struct{ allow bool }

func (f fakeLimiter) Allow(ctx context.Context, key string) (bool, error) { return f.allow, nil }

// panicUC blows up on every call.
type panicUC struct{}

var _ usecase.DetectionUseCase = panicUC{}

func (panicUC) Submit(ctx context.Context, up usecase.Upload) (*model.Job, error) { panic("boom") }
func (panicUC) Result(ctx context.Context, id string) (*repository.Artifact, error) {
	panic("boom")
}
func (panicUC) Job(ctx context.Context, id string) (*model.Job, error) { panic("boom") }
func (panicUC) Sweep(ctx context.Context, before time.Time) (int, int, error) {
	panic("boom")
}
