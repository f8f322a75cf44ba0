package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"road-boundary-service/internal/config"
	"road-boundary-service/internal/domain/model"

	"github.com/rs/zerolog"
)

func TestOpen(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("memory and sqlite round trip", func(t *testing.T) {
		for _, cfg := range []config.DatabaseConfig{
			{Driver: "memory"},
			{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "ledger", "jobs.db")},
		} {
			repo, closeFn, err := Open(ctx, cfg, &logger)
			if err != nil {
				t.Fatalf("%s: %v", cfg.Driver, err)
			}
			job := &model.Job{
				ID:        "a1",
				Status:    model.JobStatusProcessing,
				Params:    model.JobParams{Model: "daytime", Confidence: 0.35, DisplayMode: model.DisplayDraw},
				Kind:      model.MediaKindImage,
				CreatedAt: time.Now().UTC(),
			}
			if err := repo.Save(ctx, job); err != nil {
				t.Fatalf("%s save: %v", cfg.Driver, err)
			}
			got, err := repo.FindByID(ctx, "a1")
			if err != nil || got.Params.Model != "daytime" {
				t.Fatalf("%s find: %+v %v", cfg.Driver, got, err)
			}
			closeFn()
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, _, err := Open(ctx, config.DatabaseConfig{Driver: "mysql"}, &logger); err == nil {
			t.Fatal("expected error")
		}
	})
}
