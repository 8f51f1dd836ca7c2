package upload

import (
	"errors"
	"fmt"

	"github.com/damkit/go-damclient/transport"
)

// Validation failures, each wrapped in a *ValidationError naming the offending field.
var (
	ErrMissingFilename = errors.New("filename is required")
	ErrMissingBody     = errors.New("body is required")
	ErrUnsupportedBody = errors.New("body must be a []byte or an io.Reader")
	ErrInvalidLength   = errors.New("length must be a positive number")
)

// ErrCanceled is wrapped by the error of an upload whose context was cancelled.
var ErrCanceled = errors.New("upload cancelled")

// ValidationError is the cause of an *UploadError with status 0, returned before any request is sent.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UploadError is the normalized failure of an upload past validation.
// Status is the HTTP status of the failing request, or 0 when no response was involved.
type UploadError struct {
	Status  int
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upload failed: %s", e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func normalizeError(filename string, err error) *UploadError {
	uploadErr := &UploadError{
		Message: fmt.Sprintf("failed to upload file %q", filename),
		Err:     err,
	}

	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		uploadErr.Status = transportErr.StatusCode
	}

	if msg := err.Error(); msg != "" {
		uploadErr.Message = msg
	}

	return uploadErr
}

func validate(req Request) error {
	if req.Filename == "" {
		return &ValidationError{Field: "filename", Err: ErrMissingFilename}
	}
	if req.Body == nil {
		return &ValidationError{Field: "body", Err: ErrMissingBody}
	}
	if Classify(req.Body) == BodyUnknown {
		return &ValidationError{Field: "body", Err: fmt.Errorf("%w, got %T", ErrUnsupportedBody, req.Body)}
	}
	if Length(req) <= 0 {
		return &ValidationError{Field: "length", Err: ErrInvalidLength}
	}
	return nil
}
