package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
)

// fakeRedis is a map-backed RedisClient. Expiry is recorded, not enforced.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	expires map[string]time.Duration
	getErr  error
}

var _ RedisClient = (*fakeRedis)(nil)

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return ""
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = toString(value)
	f.expires[key] = exp
	return nil
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = toString(value)
	f.expires[key] = exp
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (f *fakeRedis) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	if n == 1 {
		f.expires[key] = ttl
	}
	return n, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) DelIfEqual(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[key] == value {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

type mockJobRepo struct {
	jobs  map[string]*model.Job
	finds int
}

func (m *mockJobRepo) Save(ctx context.Context, job *model.Job) error {
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	m.finds++
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobRepo) DeleteBefore(ctx context.Context, t time.Time) ([]string, error) {
	var ids []string
	for id, j := range m.jobs {
		if j.CreatedAt.Before(t) {
			delete(m.jobs, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}
