package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Upload / job errors
	ErrNoFile          = errors.New("no file provided")
	ErrMissingJobID    = errors.New("missing job id")
	ErrInvalidJobID    = errors.New("invalid job id")
	ErrInvalidModel    = errors.New("invalid model")
	ErrInvalidConf     = errors.New("confidence must be a number between 0 and 1")
	ErrInvalidDisplay  = errors.New("invalid display mode")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUploadTimeout   = errors.New("upload timed out")
	ErrUploadAborted   = errors.New("upload incomplete")
	ErrRateLimited     = errors.New("too many requests")
	ErrWriteUpload     = errors.New("failed to save uploaded file")
	ErrStorageMissing  = errors.New("results directory not found")
	ErrStorageList     = errors.New("error accessing results")
	ErrReadResult      = errors.New("error reading result file")
	ErrUnsupportedKind = errors.New("invalid file type")

	// Inference errors
	ErrInferenceFailed = errors.New("failed to process file")
	ErrInferenceBusy   = errors.New("inference capacity exhausted")
)

// InferenceError carries the message reported by the external process on a
// failed run. Message is forwarded to the caller verbatim.
type InferenceError struct {
	Message string
	Stderr  string
	Err     error
}

func (e *InferenceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrInferenceFailed.Error()
}

func (e *InferenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInferenceFailed}
	}
	return []error{ErrInferenceFailed, e.Err}
}
