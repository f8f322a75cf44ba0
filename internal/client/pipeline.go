package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"road-boundary-service/internal/domain/model"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSelected   Phase = "selected"
	PhaseSubmitting Phase = "submitting"
	PhaseReady      Phase = "result-ready"
	PhaseError      Phase = "error"
)

// DefaultMaxBytes mirrors the browser page's local file limit.
const DefaultMaxBytes = 10 << 20

// Source is either a local file path or the name of a server-side sample.
type Source struct {
	Path   string
	Sample string
}

func (s Source) name() string {
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return s.Sample
}

// State is a snapshot of the pipeline.
type State struct {
	Phase     Phase
	Source    Source
	ResultURL string
	Kind      model.MediaKind
	Error     string
	Progress  float64
}

type Pipeline struct {
	client   *Client
	params   model.JobParams
	maxBytes int64
	tick     time.Duration
	now      func() time.Time
	onChange func(State)

	mu    sync.Mutex
	state State
}

type PipelineOption func(*Pipeline)

// WithMaxBytes caps local files; 0 disables the check.
func WithMaxBytes(n int64) PipelineOption { return func(p *Pipeline) { p.maxBytes = n } }

// OnChange is called after every state transition and progress tick.
func OnChange(fn func(State)) PipelineOption { return func(p *Pipeline) { p.onChange = fn } }

func withTick(d time.Duration) PipelineOption { return func(p *Pipeline) { p.tick = d } }

func NewPipeline(c *Client, params model.JobParams, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:   c,
		params:   params,
		maxBytes: DefaultMaxBytes,
		tick:     ProgressTick,
		now:      time.Now,
		state:    State{Phase: PhaseIdle},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) update(fn func(*State)) {
	p.mu.Lock()
	fn(&p.state)
	snap := p.state
	p.mu.Unlock()
	if p.onChange != nil {
		p.onChange(snap)
	}
}

// Select picks the input and clears any previous result or error.
func (p *Pipeline) Select(src Source) {
	p.update(func(s *State) {
		*s = State{Phase: PhaseSelected, Source: src}
	})
}

// Submit uploads the selected source and waits for the service to finish.
func (p *Pipeline) Submit(ctx context.Context) (State, error) {
	cur := p.State()
	switch cur.Phase {
	case PhaseIdle:
		return cur, errors.New("no file selected")
	case PhaseSubmitting:
		return cur, errors.New("submission already in progress")
	}

	p.update(func(s *State) {
		s.Phase = PhaseSubmitting
		s.Progress = 0
		s.Error = ""
		s.ResultURL = ""
	})

	tickCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runProgress(tickCtx, p.tick, func(v float64) {
			p.update(func(s *State) { s.Progress = v })
		})
	}()

	resp, err := p.upload(ctx, cur.Source)
	stop()
	wg.Wait()

	p.update(func(s *State) {
		s.Progress = 100
		if err != nil {
			s.Phase = PhaseError
			s.Error = err.Error()
			return
		}
		s.Phase = PhaseReady
		s.Kind = resp.Type
		s.ResultURL = ResultURL(resp.FileID, p.now())
	})
	return p.State(), err
}

func (p *Pipeline) upload(ctx context.Context, src Source) (*UploadResponse, error) {
	if src.Path != "" {
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if p.maxBytes > 0 {
			if fi, err := f.Stat(); err == nil && fi.Size() > p.maxBytes {
				return nil, fmt.Errorf("file size exceeds %dMB limit", p.maxBytes>>20)
			}
		}
		return p.client.Upload(ctx, src.name(), f, p.params)
	}
	data, err := p.client.Sample(ctx, src.Sample)
	if err != nil {
		return nil, err
	}
	return p.client.Upload(ctx, src.name(), bytes.NewReader(data), p.params)
}

// Download fetches the ready result.
func (p *Pipeline) Download(ctx context.Context) (*Result, error) {
	st := p.State()
	if st.Phase != PhaseReady {
		return nil, errors.New("no result available")
	}
	return p.client.Result(ctx, st.ResultURL)
}
