package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// Asset is one file to place in an archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets bundles the assets into a zip, appending an extension
// derived from the MIME type when the filename has none.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for i, asset := range assets {
		name := asset.Filename
		if name == "" {
			name = fmt.Sprintf("asset-%02d", i+1)
		}
		if !strings.Contains(name, ".") {
			name += extensionFor(asset.MIME)
		}
		w, err := zw.Create(name)
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}

func extensionFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
