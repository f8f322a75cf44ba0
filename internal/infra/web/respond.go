package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"road-boundary-service/internal/domain"
)

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// errorStatus is the single mapping from domain errors to HTTP responses.
// notFound is the message used for domain.ErrNotFound on the calling route.
func errorStatus(err error, notFound string) (int, string) {
	var ie *domain.InferenceError
	switch {
	case errors.As(err, &ie):
		return http.StatusInternalServerError, ie.Error()
	case errors.Is(err, domain.ErrNoFile):
		return http.StatusBadRequest, "No file provided"
	case errors.Is(err, domain.ErrMissingJobID):
		return http.StatusBadRequest, "Missing field ID"
	case errors.Is(err, domain.ErrInvalidJobID):
		return http.StatusBadRequest, "Invalid field ID"
	case errors.Is(err, domain.ErrInvalidModel):
		return http.StatusBadRequest, domain.ErrInvalidModel.Error()
	case errors.Is(err, domain.ErrInvalidConf):
		return http.StatusBadRequest, domain.ErrInvalidConf.Error()
	case errors.Is(err, domain.ErrInvalidDisplay):
		return http.StatusBadRequest, domain.ErrInvalidDisplay.Error()
	case errors.Is(err, domain.ErrUnsupportedKind):
		return http.StatusBadRequest, "Invalid file type"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, domain.ErrUploadTimeout):
		return http.StatusRequestTimeout, "Upload timed out"
	case errors.Is(err, domain.ErrUploadAborted):
		return http.StatusBadRequest, "Upload incomplete"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, notFound
	case errors.Is(err, domain.ErrStorageMissing):
		return http.StatusInternalServerError, "Results directory not found"
	case errors.Is(err, domain.ErrStorageList):
		return http.StatusInternalServerError, "Error accessing results"
	case errors.Is(err, domain.ErrReadResult):
		return http.StatusInternalServerError, "Error reading result file"
	case errors.Is(err, domain.ErrWriteUpload):
		return http.StatusInternalServerError, "Failed to save uploaded file"
	case errors.Is(err, domain.ErrInferenceBusy):
		return http.StatusInternalServerError, "Server busy, try again later"
	}
	return http.StatusInternalServerError, "Server error"
}

func respondDomainError(w http.ResponseWriter, err error, notFound string) {
	status, msg := errorStatus(err, notFound)
	respondError(w, msg, status)
}
