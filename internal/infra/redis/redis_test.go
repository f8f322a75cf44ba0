//go:build !integration

package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"

	"github.com/rs/zerolog"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	rl := NewRateLimiter(fr, 3, time.Minute)
	at := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return at }
	key := UploadKey("10.0.0.1")
	counter := key + ":" + strconv.FormatInt(at.UnixNano()/int64(time.Minute), 10)

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key); ok {
		t.Fatal("fourth request should be limited")
	}
	if fr.expires[counter] != 2*time.Minute {
		t.Fatalf("window not applied: %v", fr.expires[counter])
	}
	if ok, _ := rl.Allow(ctx, UploadKey("10.0.0.2")); !ok {
		t.Fatal("other clients must not share the counter")
	}

	at = at.Add(time.Minute)
	if ok, _ := rl.Allow(ctx, key); !ok {
		t.Fatal("a new window must reset the counter")
	}
}

func TestJobRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	nop := zerolog.Nop()

	t.Run("finished jobs are served from cache", func(t *testing.T) {
		inner := &mockJobRepo{jobs: map[string]*model.Job{}}
		fr := newFakeRedis()
		repo := NewJobRepoCacheDecorator(inner, fr, time.Minute, &nop)

		job := &model.Job{ID: "abc", Status: model.JobStatusCompleted, ResultName: "abc_result.jpg", CreatedAt: time.Now()}
		if err := repo.Save(ctx, job); err != nil {
			t.Fatal(err)
		}
		got, err := repo.FindByID(ctx, "abc")
		if err != nil || got.ResultName != "abc_result.jpg" {
			t.Fatalf("got %+v, %v", got, err)
		}
		if inner.finds != 0 {
			t.Fatalf("inner repo hit %d times on a cached job", inner.finds)
		}
	})

	t.Run("processing jobs are not cached", func(t *testing.T) {
		inner := &mockJobRepo{jobs: map[string]*model.Job{}}
		fr := newFakeRedis()
		repo := NewJobRepoCacheDecorator(inner, fr, time.Minute, &nop)

		_ = repo.Save(ctx, &model.Job{ID: "p", Status: model.JobStatusProcessing})
		if _, ok := fr.data[jobKey("p")]; ok {
			t.Fatal("processing job cached on save")
		}
		_, _ = repo.FindByID(ctx, "p")
		_, _ = repo.FindByID(ctx, "p")
		if inner.finds != 2 {
			t.Fatalf("expected 2 inner lookups, got %d", inner.finds)
		}
	})

	t.Run("redis failure falls back to inner", func(t *testing.T) {
		inner := &mockJobRepo{jobs: map[string]*model.Job{"x": {ID: "x", Status: model.JobStatusFailed}}}
		fr := newFakeRedis()
		fr.getErr = errors.New("connection refused")
		repo := NewJobRepoCacheDecorator(inner, fr, time.Minute, &nop)

		got, err := repo.FindByID(ctx, "x")
		if err != nil || got.ID != "x" {
			t.Fatalf("got %+v, %v", got, err)
		}
	})

	t.Run("not found propagates", func(t *testing.T) {
		inner := &mockJobRepo{jobs: map[string]*model.Job{}}
		repo := NewJobRepoCacheDecorator(inner, newFakeRedis(), time.Minute, &nop)
		if _, err := repo.FindByID(ctx, "none"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("sweep evicts cached jobs", func(t *testing.T) {
		inner := &mockJobRepo{jobs: map[string]*model.Job{}}
		fr := newFakeRedis()
		repo := NewJobRepoCacheDecorator(inner, fr, time.Minute, &nop)

		old := &model.Job{ID: "old", Status: model.JobStatusCompleted, ResultName: "old_result.jpg", CreatedAt: time.Now().Add(-2 * time.Hour)}
		fresh := &model.Job{ID: "fresh", Status: model.JobStatusCompleted, ResultName: "fresh_result.jpg", CreatedAt: time.Now()}
		for _, j := range []*model.Job{old, fresh} {
			if err := repo.Save(ctx, j); err != nil {
				t.Fatal(err)
			}
		}

		ids, err := repo.DeleteBefore(ctx, time.Now().Add(-time.Hour))
		if err != nil || len(ids) != 1 || ids[0] != "old" {
			t.Fatalf("DeleteBefore: ids=%v err=%v", ids, err)
		}
		if _, ok := fr.data[jobKey("old")]; ok {
			t.Fatal("swept job still cached")
		}
		if _, err := repo.FindByID(ctx, "old"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("swept job: got %v", err)
		}
		if _, ok := fr.data[jobKey("fresh")]; !ok {
			t.Fatal("unswept job evicted")
		}
	})
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	fr := newFakeRedis()
	l := NewLocker(fr)

	token, err := l.TryLock(ctx, RetentionLockKey, time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if _, err := l.TryLock(ctx, RetentionLockKey, time.Minute); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("second TryLock: got %v", err)
	}
	if err := l.Unlock(ctx, RetentionLockKey, "someone-else"); err != nil {
		t.Fatal(err)
	}
	if _, ok := fr.data[RetentionLockKey]; !ok {
		t.Fatal("foreign token released the lock")
	}
	if err := l.Unlock(ctx, RetentionLockKey, token); err != nil {
		t.Fatal(err)
	}
	if _, err := l.TryLock(ctx, RetentionLockKey, time.Minute); err != nil {
		t.Fatalf("relock after unlock: %v", err)
	}
}
