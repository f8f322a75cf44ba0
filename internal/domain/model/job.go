package model

import (
	"math"
	"regexp"
	"time"

	"road-boundary-service/internal/domain"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

type DisplayMode string

const (
	DisplayDraw      DisplayMode = "draw"
	DisplayHighlight DisplayMode = "highlight"
	DisplayOutline   DisplayMode = "outline"
	DisplayNone      DisplayMode = "none"
)

const (
	DefaultModel       = "daytime"
	DefaultConfidence  = 0.35
	DefaultDisplayMode = DisplayDraw
)

// DefaultModels are the weights shipped with the inference script.
var DefaultModels = []string{"daytime", "nighttime"}

func (d DisplayMode) Valid() bool {
	switch d {
	case DisplayDraw, DisplayHighlight, DisplayOutline, DisplayNone:
		return true
	}
	return false
}

// JobParams are passed through to the inference process untouched.
type JobParams struct {
	Model       string      `json:"model"`
	Confidence  float64     `json:"confidence"`
	DisplayMode DisplayMode `json:"display_mode"`
}

// Validate checks params against the allowed model names.
func (p JobParams) Validate(models []string) error {
	if !containsString(models, p.Model) {
		return domain.ErrInvalidModel
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return domain.ErrInvalidConf
	}
	if !p.DisplayMode.Valid() {
		return domain.ErrInvalidDisplay
	}
	return nil
}

// Job is the ledger record of one upload-process cycle.
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Params     JobParams `json:"params"`
	UploadName string    `json:"upload_name"`
	ResultName string    `json:"result_name,omitempty"`
	Kind       MediaKind `json:"type"`
	SizeBytes  int64     `json:"size_bytes"`
	LastError  string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateJobID is the only guard between a caller-supplied identifier and
// the filesystem: anything outside [A-Za-z0-9_-] is rejected.
func ValidateJobID(id string) error {
	if id == "" {
		return domain.ErrMissingJobID
	}
	if !jobIDPattern.MatchString(id) {
		return domain.ErrInvalidJobID
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NewJob builds a ledger record in the processing state.
func NewJob(id string, params JobParams, ext string, size int64) (*Job, error) {
	if err := ValidateJobID(id); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	if ext == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Job{
		ID:         id,
		Status:     JobStatusProcessing,
		Params:     params,
		UploadName: UploadName(id, ext),
		Kind:       KindForExt(ext),
		SizeBytes:  size,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Complete marks the job done with the exact result file name.
func (j *Job) Complete(resultName string) {
	j.Status = JobStatusCompleted
	j.ResultName = resultName
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

func (j *Job) Fail(err error) {
	j.Status = JobStatusFailed
	if err != nil {
		j.LastError = err.Error()
	}
	j.UpdatedAt = time.Now()
}
