package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"road-boundary-service/internal/infra/metrics"
	red "road-boundary-service/internal/infra/redis"
	"road-boundary-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

//go:embed static
var staticFiles embed.FS

type Options struct {
	MaxUploadBytes int64
	SamplesDir     string // empty disables /samples/
	CORSOrigin     string
	Auth           *AuthManager // nil disables upload auth
	Limiter        Limiter      // nil disables rate limiting
	RateWindow     time.Duration
	LookupTimeout  time.Duration
}

type Server struct {
	uc   usecase.DetectionUseCase
	opts Options
	log  *zerolog.Logger
}

func NewServer(uc usecase.DetectionUseCase, opts Options, logger *zerolog.Logger) *Server {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 30 * time.Second
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	webLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{uc: uc, opts: opts, log: &webLog}
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		CORS(s.opts.CORSOrigin),
	)

	upload := Chain(
		uploadHandler(s.uc, s.opts.MaxUploadBytes, s.log),
		RequireToken(s.opts.Auth),
		RateLimit(s.opts.Limiter, red.UploadKey, s.opts.RateWindow, s.log),
	)
	r.Method(http.MethodPost, "/api", upload)
	r.Method(http.MethodPost, "/api/process", upload)

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.opts.LookupTimeout))
		missing := resultHandler(s.uc)
		r.Get("/api/result", missing)
		r.Get("/api/result/", missing)
		r.Get("/api/result/{field}", resultHandler(s.uc))
		r.Head("/api/result/{field}", resultHandler(s.uc))
		r.Get("/api/jobs/{field}", jobHandler(s.uc))
	})

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())

	if s.opts.SamplesDir != "" {
		r.Handle("/samples/*", http.StripPrefix("/samples/", http.FileServer(http.Dir(s.opts.SamplesDir))))
	}

	ui, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.log.Error().Err(err).Msg("embedded UI unavailable")
	} else {
		r.Handle("/*", http.FileServer(http.FS(ui)))
	}
	return r
}
