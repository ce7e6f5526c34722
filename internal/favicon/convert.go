// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package favicon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

var (
	// ErrUnsupportedType is returned for content that is not an accepted image.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrImageTooLarge is returned when an image header declares dimensions
	// above maxImageDimension.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

const (
	contentTypePNG = "image/png"
	contentTypeSVG = "image/svg+xml"

	// maxImageDimension bounds the width and height of a raster icon. The
	// byte limit only caps the compressed size.
	maxImageDimension = 2048
)

// normalized is an icon ready to be written to disk.
type normalized struct {
	data        []byte
	ext         string
	contentType string
}

// normalize sniffs data and converts raster images to a size x size PNG.
// SVG documents are kept as they are.
func normalize(data []byte, size int) (*normalized, error) {
	mt := mimetype.Detect(data)

	switch {
	case mt.Is("image/svg+xml"):
		return &normalized{data: data, ext: ".svg", contentType: contentTypeSVG}, nil
	case mt.Is("image/x-icon"), mt.Is("image/vnd.microsoft.icon"):
		img, err := decodeICO(data)
		if err != nil {
			return nil, err
		}
		return encodeScaled(img, size)
	case mt.Is("image/png"), mt.Is("image/jpeg"), mt.Is("image/gif"),
		mt.Is("image/webp"), mt.Is("image/bmp"):
		img, err := decodeBounded(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", mt.String(), err)
		}
		return encodeScaled(img, size)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// decodeBounded reads the image header first and refuses to decode images
// whose pixel buffer would exceed maxImageDimension on either side.
func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 || width > maxImageDimension || height > maxImageDimension {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}
	return nil
}

// encodeScaled fits img into a transparent size x size square, keeping its
// aspect ratio, and encodes it as PNG.
func encodeScaled(img image.Image, size int) (*normalized, error) {
	src := img.Bounds()
	if src.Dx() == 0 || src.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	w, h := size, size
	if src.Dx() > src.Dy() {
		h = max(1, size*src.Dy()/src.Dx())
	} else if src.Dy() > src.Dx() {
		w = max(1, size*src.Dx()/src.Dy())
	}
	offX, offY := (size-w)/2, (size-h)/2

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, image.Rect(offX, offY, offX+w, offY+h), img, src, draw.Over, nil)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return &normalized{data: buf.Bytes(), ext: ".png", contentType: contentTypePNG}, nil
}
