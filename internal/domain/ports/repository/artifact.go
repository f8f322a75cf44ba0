package repository

import (
	"context"
	"io"
	"time"
)

// Artifact is a fully read result file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ArtifactStore is the port for the uploads and results areas on disk.
type ArtifactStore interface {
	// EnsureLayout creates both areas; failures are logged, never returned.
	EnsureLayout(ctx context.Context)
	// SaveUpload persists the raw upload bytes as <id><ext>.
	SaveUpload(ctx context.Context, id, ext string, r io.Reader) (path string, size int64, err error)
	// ResultPath is where the external process must write its output.
	ResultPath(id, ext string) string
	// InResults reports the base name of path when it lies directly in the results area.
	InResults(path string) (name string, ok bool)
	// FindResult returns the result file name for id. A non-empty hint is
	// tried first; otherwise the first entry prefixed <id>_result wins.
	FindResult(ctx context.Context, id, hint string) (string, error)
	// ReadResult reads a result file fully and resolves its content type.
	ReadResult(ctx context.Context, name string) (*Artifact, error)
	// Sweep deletes files in both areas last modified before t.
	Sweep(ctx context.Context, before time.Time) (int, error)
}
