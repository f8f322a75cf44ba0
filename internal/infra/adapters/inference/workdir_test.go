package inference

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/adapter"
	"road-boundary-service/internal/infra/storage"

	"github.com/rs/zerolog"
)

// The server runs from serverDir with relative storage dirs while the
// process runs from a different work dir.
func TestRun_WorkDirWithRelativeStore(t *testing.T) {
	serverDir := realDir(t, t.TempDir())
	procDir := realDir(t, t.TempDir())
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(serverDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	nop := zerolog.Nop()
	store := storage.NewDiskStore(storage.OSFS{}, "public/uploads", "public/results", &nop)
	if !filepath.IsAbs(store.UploadsDir()) || !filepath.IsAbs(store.ResultsDir()) {
		t.Fatalf("store dirs not absolute: %q %q", store.UploadsDir(), store.ResultsDir())
	}
	store.EnsureLayout(context.Background())

	in, _, err := store.SaveUpload(context.Background(), "wd1", ".jpg", strings.NewReader("raw"))
	if err != nil {
		t.Fatal(err)
	}

	p, err := NewProcessAdapter(
		[]string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		10*time.Second, &nop,
		WithEnv("GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=relative"),
		WithWorkDir(procDir),
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), adapter.InferenceRequest{
		JobID:      "wd1",
		InputPath:  in,
		OutputPath: store.ResultPath("wd1", ".jpg"),
		Params:     model.JobParams{Model: "daytime", Confidence: 0.35, DisplayMode: model.DisplayDraw},
	})
	if err != nil {
		t.Fatalf("Run with work dir: %v", err)
	}

	name, ok := store.InResults(res.OutputPath)
	if !ok || name != "wd1_result.jpg" {
		t.Fatalf("InResults(%q) = %q, %v", res.OutputPath, name, ok)
	}
	if _, err := os.Stat(filepath.Join(serverDir, "public", "results", "wd1_result.jpg")); err != nil {
		t.Fatalf("result not written under the server's results dir: %v", err)
	}

	t.Run("relative request paths", func(t *testing.T) {
		res, err := p.Run(context.Background(), adapter.InferenceRequest{
			JobID:      "wd1",
			InputPath:  filepath.Join("public", "uploads", "wd1.jpg"),
			OutputPath: filepath.Join("public", "results", "wd1_result.jpg"),
			Params:     model.JobParams{Model: "daytime", Confidence: 0.35, DisplayMode: model.DisplayDraw},
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, ok := store.InResults(res.OutputPath); !ok {
			t.Fatalf("output %q not recognised as a result", res.OutputPath)
		}
	})
}

func realDir(t *testing.T, dir string) string {
	t.Helper()
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return real
}
