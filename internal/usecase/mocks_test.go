package usecase

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/adapter"
	"road-boundary-service/internal/domain/ports/repository"
)

// memJobRepo is a small in-memory JobRepository used by unit tests.
type memJobRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Job
	saves   []model.JobStatus
	saveErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) Save(ctx context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, job.Status)
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) DeleteBefore(ctx context.Context, t time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, j := range m.store {
		if j.CreatedAt.Before(t) {
			delete(m.store, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// memStore is an ArtifactStore over two in-memory maps.
type memStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	results map[string][]byte
	calls   int
	noDir   bool
}

func newMemStore() *memStore {
	return &memStore{uploads: map[string][]byte{}, results: map[string][]byte{}}
}

func (s *memStore) EnsureLayout(ctx context.Context) {}

func (s *memStore) SaveUpload(ctx context.Context, id, ext string, r io.Reader) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", 0, domain.ErrWriteUpload
	}
	s.uploads[id+ext] = buf.Bytes()
	return "/up/" + id + ext, n, nil
}

func (s *memStore) ResultPath(id, ext string) string { return "/res/" + model.ResultName(id, ext) }

func (s *memStore) InResults(path string) (string, bool) {
	const dir = "/res/"
	if !strings.HasPrefix(path, dir) || len(path) == len(dir) {
		return "", false
	}
	return strings.TrimPrefix(path, dir), true
}

func (s *memStore) FindResult(ctx context.Context, id, hint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.noDir {
		return "", domain.ErrStorageMissing
	}
	if _, ok := s.results[hint]; ok && hint != "" {
		return hint, nil
	}
	prefix := model.ResultPrefix(id)
	for name := range s.results {
		if strings.HasPrefix(name, prefix) {
			return name, nil
		}
	}
	return "", domain.ErrNotFound
}

func (s *memStore) ReadResult(ctx context.Context, name string) (*repository.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	data, ok := s.results[name]
	if !ok {
		return nil, domain.ErrReadResult
	}
	ct := model.ContentTypeForExt(filepath.Ext(name))
	if !model.Servable(ct) {
		return nil, domain.ErrUnsupportedKind
	}
	return &repository.Artifact{Name: name, ContentType: ct, Data: data}, nil
}

func (s *memStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.uploads) + len(s.results)
	s.uploads = map[string][]byte{}
	s.results = map[string][]byte{}
	return n, nil
}

// fakeInference writes into the memStore results map the way the real
// process writes into the results directory.
type fakeInference struct {
	store   *memStore
	err     error
	output  string
	lastReq adapter.InferenceRequest
}

func (f *fakeInference) Run(ctx context.Context, req adapter.InferenceRequest) (*adapter.InferenceResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := req.OutputPath
	if f.output != "" {
		out = f.output
	}
	if name, ok := f.store.InResults(out); ok {
		f.store.mu.Lock()
		f.store.results[name] = []byte("annotated")
		f.store.mu.Unlock()
	}
	return &adapter.InferenceResult{OutputPath: out, Duration: time.Millisecond}, nil
}
