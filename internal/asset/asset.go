// Package asset turns image files into embeddable background and token
// references.
package asset

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/DoyleJ11/hexmap/internal/world"
	"github.com/disintegration/imaging"
)

var ErrEmptyImage = errors.New("image has no pixels")

const dataURLPrefix = "data:image/png;base64,"

// Open reads an image file and ingests it.
func Open(path string, maxDim int) (world.Background, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return world.Background{}, fmt.Errorf("open image: %w", err)
	}
	return ingest(img, maxDim)
}

// Decode ingests an image from r.
func Decode(r io.Reader, maxDim int) (world.Background, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return world.Background{}, fmt.Errorf("decode image: %w", err)
	}
	return ingest(img, maxDim)
}

// ingest shrinks img to fit maxDim on both sides, keeping its aspect ratio,
// and encodes it as a PNG data URL.
func ingest(img image.Image, maxDim int) (world.Background, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return world.Background{}, ErrEmptyImage
	}
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return world.Background{}, fmt.Errorf("encode image: %w", err)
	}
	size := img.Bounds().Size()
	return world.Background{
		URL:    dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  size.X,
		Height: size.Y,
	}, nil
}
