// Package imaging implements the local image operations of the editor: crop
// rasterization, quality-tiered export, and deterministic demo rendering.
// Everything here is synchronous and CPU-bound; the AI transform lives in
// the providers packages.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
)

// Decode decodes encoded image bytes and reports their sniffed MIME type.
func Decode(data []byte) (image.Image, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, SniffMIME(data), nil
}

// Probe returns the pixel dimensions of encoded image bytes without decoding
// the full raster.
func Probe(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("probe image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// SniffMIME detects the content type of encoded bytes.
func SniffMIME(data []byte) string {
	return http.DetectContentType(data)
}

// encodeLike re-encodes img in the same family as the source MIME. JPEG
// sources stay JPEG, everything else becomes PNG.
func encodeLike(img image.Image, sourceMIME string) ([]byte, string, error) {
	var buf bytes.Buffer
	if sourceMIME == "image/jpeg" {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
