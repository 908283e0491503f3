package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"photoedit/internal/domain"
)

// Rect is a crop selection in displayed-pixel space. The UI renders the
// image scaled to fit its viewport, so coordinates arrive relative to the
// displayed size, not the native resolution.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the selection has no usable area.
func (r Rect) Empty() bool { return r.Width < 1 || r.Height < 1 }

// Crop extracts the selected region from encoded image bytes. The rect is
// given in displayed pixels together with the displayed dimensions; the crop
// itself happens at native resolution so no detail is lost. The result is
// re-encoded in the source's format family.
func Crop(data []byte, sel Rect, displayedW, displayedH float64) ([]byte, string, error) {
	if sel.Empty() {
		return nil, "", fmt.Errorf("crop selection has no area")
	}
	if displayedW <= 0 || displayedH <= 0 {
		return nil, "", fmt.Errorf("displayed dimensions must be positive")
	}

	img, mime, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / displayedW
	scaleY := float64(bounds.Dy()) / displayedH

	x1 := int(math.Round(sel.X * scaleX))
	y1 := int(math.Round(sel.Y * scaleY))
	x2 := int(math.Round((sel.X + sel.Width) * scaleX))
	y2 := int(math.Round((sel.Y + sel.Height) * scaleY))

	// Selections drawn slightly past the edge are clamped rather than
	// rejected; the UI cannot guarantee sub-pixel accuracy.
	x1 = clamp(x1, bounds.Min.X, bounds.Max.X)
	y1 = clamp(y1, bounds.Min.Y, bounds.Max.Y)
	x2 = clamp(x2, bounds.Min.X, bounds.Max.X)
	y2 = clamp(y2, bounds.Min.Y, bounds.Max.Y)
	if x1 >= x2 || y1 >= y2 {
		return nil, "", fmt.Errorf("%w: region (%d,%d)-(%d,%d) empty after clamping to %dx%d",
			domain.ErrCropSelectionMissing, x1, y1, x2, y2, bounds.Dx(), bounds.Dy())
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))
	return encodeLike(cropped, mime)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
