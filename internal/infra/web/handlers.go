package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"road-boundary-service/internal/domain"
	"road-boundary-service/internal/domain/model"
	"road-boundary-service/internal/infra/logging"
	"road-boundary-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// multipartMemory is how much of a form is buffered before spilling to temp files.
const multipartMemory = 32 << 20

type uploadResponse struct {
	Success bool            `json:"success"`
	FileID  string          `json:"fileId"`
	Type    model.MediaKind `json:"type"`
}

// uploadHandler accepts the multipart form, runs the job to completion and
// answers with the job identifier.
func uploadHandler(uc usecase.DetectionUseCase, maxBytes int64, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logging.With(ctx, logger)

		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			log.Debug().Err(err).Msg("unreadable upload form")
			respondDomainError(w, formError(err), "")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			respondDomainError(w, domain.ErrNoFile, "")
			return
		}
		defer file.Close()

		params, err := parseParams(r.MultipartForm)
		if err != nil {
			respondDomainError(w, err, "")
			return
		}

		job, err := uc.Submit(ctx, usecase.Upload{
			Filename:  header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Body:      file,
			Params:    params,
		})
		if err != nil {
			respondDomainError(w, err, "")
			return
		}
		respondJSON(w, uploadResponse{Success: true, FileID: job.ID, Type: job.Kind}, http.StatusOK)
	}
}

// parseParams applies defaults for absent fields and rejects malformed ones.
// formError separates a body that could not be read from one that is not a
// usable form.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	var netErr net.Error
	switch {
	case errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large"):
		return domain.ErrFileTooLarge
	case errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		return domain.ErrUploadTimeout
	case errors.Is(err, io.ErrUnexpectedEOF):
		return domain.ErrUploadAborted
	}
	return domain.ErrNoFile
}

func parseParams(form *multipart.Form) (model.JobParams, error) {
	p := model.JobParams{
		Model:       model.DefaultModel,
		Confidence:  model.DefaultConfidence,
		DisplayMode: model.DefaultDisplayMode,
	}
	if v := formValue(form, "model"); v != "" {
		p.Model = v
	}
	if v := formValue(form, "confidence"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("%w: %q", domain.ErrInvalidConf, v)
		}
		p.Confidence = c
	}
	if v := formValue(form, "displayMode"); v != "" {
		p.DisplayMode = model.DisplayMode(v)
	}
	return p, nil
}

func formValue(form *multipart.Form, key string) string {
	if form == nil || len(form.Value[key]) == 0 {
		return ""
	}
	return strings.TrimSpace(form.Value[key][0])
}

// resultHandler streams the result artifact for the {field} identifier.
func resultHandler(uc usecase.DetectionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		art, err := uc.Result(r.Context(), chi.URLParam(r, "field"))
		if err != nil {
			respondDomainError(w, err, "Result not found")
			return
		}

		h := w.Header()
		h.Set("Content-Type", art.ContentType)
		h.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", art.Name))
		h.Set("Cache-Control", "public, max-age=300")
		h.Set("Content-Length", strconv.Itoa(len(art.Data)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(art.Data)
		}
	}
}

func jobHandler(uc usecase.DetectionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := uc.Job(r.Context(), chi.URLParam(r, "field"))
		if err != nil {
			respondDomainError(w, err, "Job not found")
			return
		}
		respondJSON(w, job, http.StatusOK)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
