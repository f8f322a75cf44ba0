package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var _ repository.ArtifactStore = (*DiskStore)(nil)

// DiskStore keeps uploads and results as flat files in two directories.
type DiskStore struct {
	fs         FS
	uploadsDir string
	resultsDir string
	log        *zerolog.Logger
}

func NewDiskStore(fsys FS, uploadsDir, resultsDir string, logger *zerolog.Logger) *DiskStore {
	if fsys == nil {
		fsys = OSFS{}
	}
	storeLog := logger.With().Str("component", "DiskStore").Logger()
	return &DiskStore{
		fs:         fsys,
		uploadsDir: absDir(uploadsDir, &storeLog),
		resultsDir: absDir(resultsDir, &storeLog),
		log:        &storeLog,
	}
}

// absDir anchors dir at the server's working directory. Paths handed to the
// inference process must not depend on the process's own working directory.
func absDir(dir string, log *zerolog.Logger) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("cannot resolve absolute path")
		return filepath.Clean(dir)
	}
	return abs
}

func (s *DiskStore) UploadsDir() string { return s.uploadsDir }
func (s *DiskStore) ResultsDir() string { return s.resultsDir }

func (s *DiskStore) EnsureLayout(ctx context.Context) {
	for _, dir := range []string{s.uploadsDir, s.resultsDir} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			s.log.Warn().Err(err).Str("path", dir).Msg("failed to create directory")
		}
	}
}

func (s *DiskStore) SaveUpload(ctx context.Context, id, ext string, r io.Reader) (string, int64, error) {
	if err := model.ValidateJobID(id); err != nil {
		return "", 0, err
	}
	s.EnsureLayout(ctx)

	path := filepath.Join(s.uploadsDir, model.UploadName(id, ext))
	f, err := s.fs.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrWriteUpload, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(path)
		return "", 0, fmt.Errorf("%w: %v", domain.ErrWriteUpload, err)
	}
	return path, n, nil
}

func (s *DiskStore) ResultPath(id, ext string) string {
	return filepath.Join(s.resultsDir, model.ResultName(id, ext))
}

func (s *DiskStore) InResults(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if filepath.Dir(abs) != s.resultsDir {
		return "", false
	}
	return filepath.Base(abs), true
}

func (s *DiskStore) FindResult(ctx context.Context, id, hint string) (string, error) {
	if err := model.ValidateJobID(id); err != nil {
		return "", err
	}
	prefix := model.ResultPrefix(id)

	if _, err := s.fs.Stat(s.resultsDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrStorageMissing
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStorageList, err)
	}

	// The recorded name only counts when it still belongs to id.
	if hint != "" && hint == filepath.Base(hint) && strings.HasPrefix(hint, prefix) {
		if fi, err := s.fs.Stat(filepath.Join(s.resultsDir, hint)); err == nil && !fi.IsDir() {
			return hint, nil
		}
	}

	entries, err := s.fs.ReadDir(s.resultsDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStorageList, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return e.Name(), nil
		}
	}
	return "", domain.ErrNotFound
}

func (s *DiskStore) ReadResult(ctx context.Context, name string) (*repository.Artifact, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, domain.ErrInvalidArgument
	}
	ct := model.ContentTypeForExt(filepath.Ext(name))
	if !model.Servable(ct) {
		return nil, domain.ErrUnsupportedKind
	}
	data, err := s.fs.ReadFile(filepath.Join(s.resultsDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadResult, err)
	}
	return &repository.Artifact{Name: name, ContentType: ct, Data: data}, nil
}

func (s *DiskStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	var removed int
	var errs []error
	for _, dir := range []string{s.uploadsDir, s.resultsDir} {
		entries, err := s.fs.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		for _, e := range entries {
			if ctx.Err() != nil {
				return removed, ctx.Err()
			}
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(before) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := s.fs.Remove(path); err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("sweep: remove failed")
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
