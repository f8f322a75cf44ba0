package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/ports/adapter"
	"road-boundary-service/internal/infra/logging"
	"road-boundary-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ adapter.InferenceAdapter = (*ProcessAdapter)(nil)

// genericFailure is surfaced whenever the process output cannot be trusted.
const genericFailure = "Failed to process file"

// processStatus is the single JSON object the process prints on stdout.
type processStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Output  string `json:"output,omitempty"`
}

// ProcessAdapter runs the external inference executable once per request.
type ProcessAdapter struct {
	command []string
	workDir string
	timeout time.Duration
	env     []string
	log     *zerolog.Logger
}

type Option func(*ProcessAdapter)

// WithEnv appends extra KEY=VALUE pairs to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(p *ProcessAdapter) { p.env = append(p.env, kv...) }
}

func WithWorkDir(dir string) Option {
	return func(p *ProcessAdapter) { p.workDir = dir }
}

func NewProcessAdapter(command []string, timeout time.Duration, logger *zerolog.Logger, opts ...Option) (*ProcessAdapter, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errors.New("inference: empty command")
	}
	procLog := logger.With().Str("component", "ProcessAdapter").Logger()
	p := &ProcessAdapter{
		command: append([]string(nil), command...),
		timeout: timeout,
		log:     &procLog,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Args builds the argument vector handed to exec. Nothing is ever joined
// into a shell string.
func (p *ProcessAdapter) Args(req adapter.InferenceRequest) []string {
	args := append([]string(nil), p.command[1:]...)
	return append(args,
		"--input", req.InputPath,
		"--output", req.OutputPath,
		"--model", req.Params.Model,
		"--confidence", strconv.FormatFloat(req.Params.Confidence, 'f', -1, 64),
		"--display-mode", string(req.Params.DisplayMode),
	)
}

func (p *ProcessAdapter) Run(ctx context.Context, req adapter.InferenceRequest) (*adapter.InferenceResult, error) {
	log := logging.With(ctx, p.log)
	defer logging.TraceDuration(log, "ProcessAdapter.Run")()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req.InputPath = p.fromServer(req.InputPath)
	req.OutputPath = p.fromServer(req.OutputPath)

	cmd := exec.CommandContext(ctx, p.command[0], p.Args(req)...)
	cmd.Dir = p.workDir
	if len(p.env) > 0 {
		cmd.Env = append(cmd.Environ(), p.env...)
	}
	// Stop waiting on inherited pipes shortly after the process is killed.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	metrics.InferenceStarted()
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)
	metrics.InferenceFinished()

	if stderr.Len() > 0 {
		log.Warn().Str("stderr", truncate(stderr.String(), 4096)).Msg("inference process wrote to stderr")
	}

	res, err := p.interpret(ctx, runErr, stdout.Bytes(), stderr.String())
	metrics.ObserveInference(req.Params.Model, elapsed, err == nil)
	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Str("input", req.InputPath).Msg("inference failed")
		return nil, err
	}
	if res.Output == "" {
		res.Output = req.OutputPath
	} else if !filepath.IsAbs(res.Output) && p.workDir != "" {
		// A relative report is relative to the process, not to us.
		res.Output = filepath.Join(p.workDir, res.Output)
	}
	log.Info().Dur("duration", elapsed).Str("output", res.Output).Msg("inference completed")
	return &adapter.InferenceResult{OutputPath: res.Output, Duration: elapsed}, nil
}

// fromServer makes a relative path absolute against the server's working
// directory when the process runs somewhere else.
func (p *ProcessAdapter) fromServer(path string) string {
	if p.workDir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (p *ProcessAdapter) interpret(ctx context.Context, runErr error, stdout []byte, stderr string) (*processStatus, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := genericFailure
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "Processing timed out"
		}
		return nil, &domain.InferenceError{Message: msg, Stderr: stderr, Err: ctxErr}
	}

	st, parseErr := parseStatus(stdout)
	switch {
	case parseErr != nil:
		err := parseErr
		if runErr != nil {
			err = errors.Join(runErr, parseErr)
		}
		return nil, &domain.InferenceError{Message: genericFailure, Stderr: stderr, Err: err}
	case !st.Success:
		msg := st.Error
		if msg == "" {
			msg = genericFailure
		}
		return nil, &domain.InferenceError{Message: msg, Stderr: stderr, Err: runErr}
	case runErr != nil:
		return nil, &domain.InferenceError{Message: genericFailure, Stderr: stderr, Err: runErr}
	}
	return st, nil
}

// parseStatus accepts exactly one JSON object, ignoring surrounding whitespace.
func parseStatus(stdout []byte) (*processStatus, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(stdout)))
	var st processStatus
	if err := dec.Decode(&st); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after status object")
	}
	return &st, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
