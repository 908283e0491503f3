package imaging

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"photoedit/internal/domain"
)

// Export re-encodes the current image for download at the requested quality
// tier. Output is always JPEG: it is the only format here where the tier's
// compression parameter is meaningful.
func Export(data []byte, tier domain.QualityTier) ([]byte, string, error) {
	compression, ok := tier.Compression()
	if !ok {
		return nil, "", fmt.Errorf("unknown quality tier %q", tier)
	}

	img, _, err := Decode(data)
	if err != nil {
		return nil, "", err
	}

	quality := int(math.Round(compression * 100))
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, "", fmt.Errorf("encode export: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// ExportFilename derives the download filename from the revision name and
// quality tier, normalizing the extension to .jpg.
func ExportFilename(revisionName string, tier domain.QualityTier) string {
	base := strings.TrimSpace(revisionName)
	if base == "" {
		base = "edited"
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return fmt.Sprintf("%s-%s.jpg", base, tier)
}
