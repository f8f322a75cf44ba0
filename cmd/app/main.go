// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"road-boundary-service/internal/config"
	"road-boundary-service/internal/infra/adapters/inference"
	"road-boundary-service/internal/infra/db/ledger"
	"road-boundary-service/internal/infra/idgen"
	"road-boundary-service/internal/infra/logging"
	"road-boundary-service/internal/infra/metrics"
	red "road-boundary-service/internal/infra/redis"
	"road-boundary-service/internal/infra/sched"
	"road-boundary-service/internal/infra/storage"
	"road-boundary-service/internal/infra/web"
	"road-boundary-service/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	printToken := flag.String("print-token", "", "mint an upload token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var auth *web.AuthManager
	if cfg.Auth.HMACSecret != "" {
		auth = web.NewAuthManager(cfg.Auth.HMACSecret, cfg.Auth.TokenTTL)
	}
	if *printToken != "" {
		if auth == nil {
			log.Fatalf("print-token: auth.hmac_secret is not configured")
		}
		tok, err := auth.Mint(*printToken)
		if err != nil {
			log.Fatalf("print-token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Storage ----
	newID, err := idgen.ForStrategy(cfg.Storage.IDStrategy)
	if err != nil {
		logger.Fatal().Err(err).Msg("id strategy")
	}
	store := storage.NewDiskStore(storage.OSFS{}, cfg.Storage.UploadsDir, cfg.Storage.ResultsDir, logger)
	store.EnsureLayout(ctx)

	// ---- Job ledger ----
	jobs, closeLedger, err := ledger.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("job ledger")
	}
	defer closeLedger()

	// ---- Redis (optional) ----
	var (
		limiter web.Limiter
		locker  red.Locker
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		jobs = red.NewJobRepoCacheDecorator(jobs, redisClient, cfg.Redis.TTL, logger)
		if cfg.Redis.RateLimit > 0 {
			limiter = red.NewRateLimiter(redisClient, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		}
		locker = red.NewLocker(redisClient)
		logger.Info().Msg("redis enabled: job cache, rate limit and retention lock")
	}

	// ---- Inference ----
	var procOpts []inference.Option
	if cfg.Inference.WorkDir != "" {
		procOpts = append(procOpts, inference.WithWorkDir(cfg.Inference.WorkDir))
	}
	proc, err := inference.NewProcessAdapter(cfg.Inference.Command, cfg.Inference.Timeout, logger, procOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("inference adapter")
	}
	infer := inference.NewLimitedInference(proc, cfg.Inference.ConcurrentLimit)

	// ---- Use case ----
	detectUC := usecase.NewDetectionUseCase(store, jobs, infer, newID, cfg.Inference.Models, logger)

	// ---- Retention worker ----
	if cfg.Retention.MaxAge > 0 {
		worker := sched.NewRetentionWorker(cfg.Retention.Interval, cfg.Retention.MaxAge, detectUC, locker, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	// ---- HTTP server ----
	srv := web.NewServer(detectUC, web.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		SamplesDir:     cfg.Server.SamplesDir,
		CORSOrigin:     cfg.Server.CORSOrigin,
		Auth:           auth,
		Limiter:        limiter,
		RateWindow:     cfg.Redis.RateWindow,
	}, logger)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Strs("command", cfg.Inference.Command).
			Str("uploads", store.UploadsDir()).
			Str("results", store.ResultsDir()).
			Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
}
