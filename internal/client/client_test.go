package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"road-boundary-service/internal/domain/model"
)

func TestNextProgress(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 5},
		{25, 30},
		{30, 33},
		{58, 61},
		{60, 61},
		{84, 85},
		{85, 85.5},
		{94.8, 95},
		{95, 95},
		{99, 95},
	}
	for _, tc := range cases {
		if got := NextProgress(tc.in); got != tc.want {
			t.Errorf("NextProgress(%v) = %v want %v", tc.in, got, tc.want)
		}
	}

	p := 0.0
	for i := 0; i < 1000; i++ {
		p = NextProgress(p)
	}
	if p != 95 {
		t.Fatalf("progress settles at %v, want 95", p)
	}
}

func TestResultURL(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	if got := ResultURL("abc-1", at); got != "/api/result/abc-1?t=1700000000123" {
		t.Fatalf("got %q", got)
	}
}

// fakeService mimics the upload and retrieval routes.
func fakeService(t *testing.T, fail string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("model") != "nighttime" || r.FormValue("confidence") != "0.5" || r.FormValue("displayMode") != "outline" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "params not forwarded"})
			return
		}
		if fail != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": fail})
			return
		}
		_, hdr, _ := r.FormFile("file")
		kind := "image"
		if strings.HasSuffix(hdr.Filename, ".mp4") {
			kind = "video"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "fileId": "abc", "type": kind})
	})
	mux.HandleFunc("/api/result/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", `inline; filename="abc_result.jpg"`)
		_, _ = w.Write([]byte("annotated"))
	})
	mux.HandleFunc("/samples/sample1.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("sample-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var testParams = model.JobParams{Model: "nighttime", Confidence: 0.5, DisplayMode: model.DisplayOutline}

func writeTemp(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPipeline_HappyPath(t *testing.T) {
	srv := fakeService(t, "")
	var mu sync.Mutex
	var phases []Phase
	pl := NewPipeline(New(srv.URL), testParams, withTick(5*time.Millisecond), OnChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
	}))
	fixed := time.UnixMilli(42)
	pl.now = func() time.Time { return fixed }

	if _, err := pl.Submit(context.Background()); err == nil {
		t.Fatal("submit without selection must fail")
	}

	pl.Select(Source{Path: writeTemp(t, "road.jpg", 128)})
	st, err := pl.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if st.Phase != PhaseReady || st.Progress != 100 || st.ResultURL != "/api/result/abc?t=42" || st.Kind != model.MediaKindImage {
		t.Fatalf("state: %+v", st)
	}

	mu.Lock()
	got := append([]Phase(nil), phases...)
	mu.Unlock()
	want := []Phase{PhaseSelected, PhaseSubmitting, PhaseReady}
	if len(got) != len(want) {
		t.Fatalf("phases %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phases %v want %v", got, want)
		}
	}

	res, err := pl.Download(context.Background())
	if err != nil || string(res.Data) != "annotated" || res.Filename != "abc_result.jpg" {
		t.Fatalf("Download: %+v, %v", res, err)
	}

	// A new selection clears the previous result.
	pl.Select(Source{Sample: "sample1.jpg"})
	if st := pl.State(); st.ResultURL != "" || st.Error != "" || st.Phase != PhaseSelected {
		t.Fatalf("after reselect: %+v", st)
	}
	if _, err := pl.Submit(context.Background()); err != nil {
		t.Fatalf("sample submit: %v", err)
	}
}

func TestPipeline_ServerError(t *testing.T) {
	srv := fakeService(t, "model failed")
	pl := NewPipeline(New(srv.URL), testParams, withTick(time.Millisecond))
	pl.Select(Source{Path: writeTemp(t, "road.jpg", 16)})

	st, err := pl.Submit(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if st.Phase != PhaseError || st.Error != "model failed" || st.Progress != 100 {
		t.Fatalf("state: %+v", st)
	}
	if _, err := pl.Download(context.Background()); err == nil {
		t.Fatal("download must fail without a result")
	}
}

func TestPipeline_SizeLimit(t *testing.T) {
	srv := fakeService(t, "")
	pl := NewPipeline(New(srv.URL), testParams, WithMaxBytes(1<<20), withTick(time.Millisecond))
	pl.Select(Source{Path: writeTemp(t, "big.jpg", 2<<20)})
	st, err := pl.Submit(context.Background())
	if err == nil || st.Phase != PhaseError || !strings.Contains(st.Error, "exceeds 1MB") {
		t.Fatalf("state %+v err %v", st, err)
	}
}
