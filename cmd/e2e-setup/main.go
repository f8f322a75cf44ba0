package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"time"

	"road-boundary-service/internal/config"
	"road-boundary-service/internal/infra/db/ledger"
	"road-boundary-service/internal/infra/logging"
	"road-boundary-service/internal/infra/storage"
)

// This script puts the upload and result directories, the job ledger and the
// sample gallery into a clean, predictable state for manual end-to-end testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Wiping uploads and results...")
	store := storage.NewDiskStore(storage.OSFS{}, cfg.Storage.UploadsDir, cfg.Storage.ResultsDir, logger)
	store.EnsureLayout(ctx)
	now := time.Now().Add(time.Second)
	files, err := store.Sweep(ctx, now)
	if err != nil {
		log.Printf("sweep finished with errors: %v", err)
	}
	log.Printf("      removed %d files", files)

	log.Println("[2/3] Wiping the job ledger...")
	jobs, closeLedger, err := ledger.Open(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("job ledger: %v", err)
	}
	defer closeLedger()
	ids, err := jobs.DeleteBefore(ctx, now)
	if err != nil {
		log.Fatalf("failed to clear jobs: %v", err)
	}
	log.Printf("      removed %d jobs", len(ids))

	log.Println("[3/3] Seeding sample images...")
	if cfg.Server.SamplesDir == "" {
		log.Println("      server.samples_dir not set, skipping")
	} else if err := seedSamples(cfg.Server.SamplesDir); err != nil {
		log.Fatalf("failed to seed samples: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete ---")
}

// seedSamples writes a few synthetic road scenes: a grey carriageway with
// white boundary strips, lit for day or night.
func seedSamples(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	scenes := []struct {
		name string
		sky  color.RGBA
		road color.RGBA
	}{
		{"sample1.jpg", color.RGBA{135, 190, 235, 255}, color.RGBA{90, 90, 90, 255}},
		{"sample2.jpg", color.RGBA{170, 200, 220, 255}, color.RGBA{110, 105, 100, 255}},
		{"sample3.jpg", color.RGBA{10, 12, 30, 255}, color.RGBA{35, 35, 40, 255}},
	}
	for _, sc := range scenes {
		if err := writeScene(filepath.Join(dir, sc.name), sc.sky, sc.road); err != nil {
			return err
		}
		log.Printf("      wrote %s", sc.name)
	}
	return nil
}

func writeScene(path string, sky, road color.RGBA) error {
	const w, h = 640, 360
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	line := color.RGBA{240, 240, 240, 255}
	for y := 0; y < h; y++ {
		// The road narrows towards the horizon at h/3.
		half := 0
		if y > h/3 {
			half = (y - h/3) * (w / 2) / (h - h/3)
		}
		for x := 0; x < w; x++ {
			c := sky
			if d := x - w/2; y > h/3 && d > -half && d < half {
				c = road
				if d < -half+6 || d > half-6 {
					c = line
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
