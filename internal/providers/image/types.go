package image

import (
	"context"
	"errors"
	"strings"

	"photoedit/internal/domain"
	"photoedit/internal/providers/genai"
)

// TransformRequest describes one edit to apply to a source image. Focus is
// optional and only meaningful for localized retouches; its coordinates are
// in the source image's native resolution.
type TransformRequest struct {
	Source      domain.Revision
	Instruction string
	Focus       *domain.FocusPoint
	RequestID   string
}

// Result is the edited image produced by a provider.
type Result struct {
	Data []byte
	MIME string
}

// Transformer is the contract implemented by all image-edit providers.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) (*Result, error)
}

// Classify wraps a provider failure into the domain's transform error,
// flagging quota/429-style failures as rate limited.
func Classify(err error) *domain.TransformError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	rateLimited := false

	var statusErr *genai.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == 429 {
		rateLimited = true
	}
	lower := strings.ToLower(msg)
	if strings.Contains(msg, "429") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted") {
		rateLimited = true
	}

	return &domain.TransformError{RateLimited: rateLimited, Message: msg, Err: err}
}
