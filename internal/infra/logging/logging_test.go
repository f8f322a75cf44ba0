package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"road-boundary-service/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "trc-1")
	ctx = WithJobID(ctx, "job-1")
	ctx = WithClientIP(ctx, "10.0.0.7")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for k, want := range map[string]string{"trace_id": "trc-1", "job_id": "job-1", "client_ip": "10.0.0.7", "message": "hello"} {
		if line[k] != want {
			t.Errorf("%s: got %v want %q", k, line[k], want)
		}
	}
	if TraceID(ctx) != "trc-1" {
		t.Errorf("TraceID: got %q", TraceID(ctx))
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should pass at warn level")
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(config.LogConfig{Level: "loud", Format: "json"}, false, &buf)
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Fatalf("expected exactly one line, got %q", buf.String())
	}
}
