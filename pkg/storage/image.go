package storage

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var imageFormats = map[string]imaging.Format{
	".jpg":  imaging.JPEG,
	".jpeg": imaging.JPEG,
	".png":  imaging.PNG,
	".gif":  imaging.GIF,
}

// IsImage reports whether name has an extension the downscaler understands.
func IsImage(name string) bool {
	_, ok := imageFormats[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Downscale shrinks an image wider than maxWidth, keeping its aspect ratio.
// The returned reader is r's content unchanged when no resize is needed.
func Downscale(name string, r io.Reader, maxWidth int) (io.Reader, bool, error) {
	format, ok := imageFormats[strings.ToLower(filepath.Ext(name))]
	if !ok || maxWidth <= 0 {
		return r, false, nil
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("read image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return bytes.NewReader(raw), false, nil
	}

	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, false, fmt.Errorf("encode image: %w", err)
	}
	return &buf, true, nil
}
