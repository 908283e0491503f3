package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Revision is one immutable image snapshot in the edit timeline. The bytes
// are never mutated after construction; every edit produces a new Revision.
type Revision struct {
	ID   string
	Name string
	MIME string
	Data []byte
}

// NewRevision copies data so later writes by the caller cannot reach into the
// timeline.
func NewRevision(name, mime string, data []byte) Revision {
	return Revision{
		ID:   uuid.NewString(),
		Name: name,
		MIME: normalizeMIME(mime),
		Data: append([]byte(nil), data...),
	}
}

// Empty reports whether the revision carries no image bytes.
func (r Revision) Empty() bool { return len(r.Data) == 0 }

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return "image/png"
	}
	return mime
}

// FocusPoint marks where a localized retouch applies, in the source image's
// native pixel resolution.
type FocusPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// QualityTier selects the compression level used when exporting the current
// image.
type QualityTier string

const (
	QualityLow    QualityTier = "low"
	QualityMedium QualityTier = "medium"
	QualityHigh   QualityTier = "high"
)

// Compression returns the tier's compression parameter on a 0..1 scale.
func (t QualityTier) Compression() (float64, bool) {
	switch t {
	case QualityLow:
		return 0.50, true
	case QualityMedium:
		return 0.75, true
	case QualityHigh:
		return 0.92, true
	default:
		return 0, false
	}
}
