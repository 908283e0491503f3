package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/anthonynsimon/bild/blur"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Demo identifies one of the built-in sample photos a session can start
// from when the user has nothing to upload.
type Demo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

var demos = []Demo{
	{ID: "sunset-coast", Title: "Sunset Coast"},
	{ID: "forest-mist", Title: "Forest Mist"},
	{ID: "city-dusk", Title: "City at Dusk"},
	{ID: "studio-still", Title: "Studio Still Life"},
}

// Demos lists the available sample images.
func Demos() []Demo {
	out := make([]Demo, len(demos))
	copy(out, demos)
	return out
}

// RenderDemo produces the encoded PNG for a built-in sample image. Unknown
// ids fail so a typo does not silently start a session on a blank canvas.
func RenderDemo(id string) ([]byte, error) {
	for _, d := range demos {
		if d.ID == id {
			return RenderSynthetic(d.ID, 1024, 768), nil
		}
	}
	return nil, fmt.Errorf("unknown demo image %q", id)
}

// RenderSynthetic renders a deterministic placeholder photo for a seed.
// The same seed always yields the same bytes, which keeps offline transform
// fallbacks and tests reproducible.
func RenderSynthetic(seed string, width, height int) []byte {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 768
	}

	baseHue, accentHue := huesFromSeed(seed)
	top := colorful.Hsv(baseHue, 0.55, 0.92)
	bottom := colorful.Hsv(accentHue, 0.70, 0.45)
	stripe := colorful.Hsv(accentHue, 0.30, 0.98)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		blend := top.BlendLuv(bottom, float64(y)/float64(height-1))
		r, g, b := blend.RGB255()
		row := color.RGBA{R: r, G: g, B: b, A: 255}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, row)
		}
	}

	// A few diagonal bands give undo/redo diffs something visible to flip
	// between.
	sr, sg, sb := stripe.RGB255()
	band := color.RGBA{R: sr, G: sg, B: sb, A: 255}
	step := width / 6
	if step < 16 {
		step = 16
	}
	for start := -height; start < width; start += step * 2 {
		for y := 0; y < height; y++ {
			for x := start + y; x < start+y+step/3; x++ {
				if x >= 0 && x < width {
					img.SetRGBA(x, y, band)
				}
			}
		}
	}

	soft := blur.Gaussian(img, 2.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, soft); err != nil {
		return nil
	}
	return buf.Bytes()
}

func huesFromSeed(seed string) (float64, float64) {
	sum := sha256.Sum256([]byte(seed))
	base := float64(binary.BigEndian.Uint16(sum[0:2])) / 65535.0 * 360.0
	accent := base + 30 + float64(sum[2]%180)
	for accent >= 360 {
		accent -= 360
	}
	return base, accent
}
