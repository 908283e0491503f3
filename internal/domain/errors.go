package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoImageLoaded        = errors.New("no image loaded")
	ErrMissingInput         = errors.New("missing input")
	ErrBusy                 = errors.New("an edit is already in progress")
	ErrSessionNotFound      = errors.New("session not found")
	ErrCropSelectionMissing = errors.New("crop selection missing")
	ErrCropFailed           = errors.New("crop processing failed")
	ErrExportFailed         = errors.New("export preparation failed")
	ErrUnknownStyle         = errors.New("unknown style")
)

// TransformError reports a failed call to the image transform provider.
// RateLimited distinguishes quota exhaustion from other provider failures so
// the UI can message the two cases differently.
type TransformError struct {
	RateLimited bool
	Message     string
	Err         error
}

func (e *TransformError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("transform rate limited: %s", e.Message)
	}
	return fmt.Sprintf("transform failed: %s", e.Message)
}

func (e *TransformError) Unwrap() error { return e.Err }

// AsTransformError unwraps err into a *TransformError when possible.
func AsTransformError(err error) (*TransformError, bool) {
	var te *TransformError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
