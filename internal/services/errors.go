package services

import (
	"errors"
	"fmt"
	"strings"
)

// Marker errors classify failures across jobs and capabilities. Callers match
// them with errors.Is to decide between retrying, surfacing, or marking a
// session failed.
var (
	// ErrNotFound reports a missing resource such as an object store key.
	ErrNotFound = errors.New("not found")

	// ErrSessionNotFound reports a session id with no matching row.
	ErrSessionNotFound = errors.New("session not found")

	// ErrExternalTool reports a failure in an external binary such as ffmpeg.
	ErrExternalTool = errors.New("external tool failure")

	// ErrDownloadFailed reports a failed fetch from the object store.
	ErrDownloadFailed = errors.New("download failed")

	// ErrUploadFailed reports a failed write to the object store.
	ErrUploadFailed = errors.New("upload failed")

	// ErrValidation reports malformed or inconsistent input data.
	ErrValidation = errors.New("validation failure")

	// ErrConfiguration reports invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration failure")

	// ErrTransient reports a failure likely to succeed on retry.
	ErrTransient = errors.New("transient failure")
)

// JobError carries the marker classification alongside job and operation
// identifiers, so logs and session error messages stay uniform.
type JobError struct {
	Marker    error
	Job       string
	Operation string
	Message   string
	Err       error
}

func (e *JobError) Error() string {
	var b strings.Builder
	if e.Job != "" {
		b.WriteString(e.Job)
	}
	if e.Operation != "" {
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(e.Operation)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Marker != nil {
		b.WriteString(e.Marker.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *JobError) Unwrap() []error {
	var errs []error
	if e.Marker != nil {
		errs = append(errs, e.Marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap builds a JobError classified by marker. err may be nil when the failure
// has no underlying cause.
func Wrap(marker error, job, operation, message string, err error) error {
	return &JobError{Marker: marker, Job: job, Operation: operation, Message: message, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(marker error, job, operation string, err error, format string, args ...any) error {
	return Wrap(marker, job, operation, fmt.Sprintf(format, args...), err)
}
