// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package favicon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

var errBadICO = errors.New("malformed ICO file")

// icoEntry is one ICONDIRENTRY.
type icoEntry struct {
	width, height int
	bitCount      int
	size          uint32
	offset        uint32
}

// decodeICO returns the largest image in an ICO container. Entries may hold
// an embedded PNG or a BMP DIB with an AND transparency mask.
func decodeICO(data []byte) (image.Image, error) {
	entries, err := parseICODir(data)
	if err != nil {
		return nil, err
	}

	best := entries[0]
	for _, e := range entries[1:] {
		if e.width*e.height > best.width*best.height ||
			(e.width*e.height == best.width*best.height && e.bitCount > best.bitCount) {
			best = e
		}
	}

	end := uint64(best.offset) + uint64(best.size)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: entry exceeds file", errBadICO)
	}
	payload := data[best.offset:end]

	if bytes.HasPrefix(payload, pngSignature) {
		cfg, err := png.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		return png.Decode(bytes.NewReader(payload))
	}
	return decodeDIB(payload)
}

func parseICODir(data []byte) ([]icoEntry, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: short header", errBadICO)
	}
	reserved := binary.LittleEndian.Uint16(data[0:2])
	typ := binary.LittleEndian.Uint16(data[2:4])
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if reserved != 0 || typ != 1 || count == 0 {
		return nil, fmt.Errorf("%w: bad header", errBadICO)
	}
	if len(data) < 6+16*count {
		return nil, fmt.Errorf("%w: truncated directory", errBadICO)
	}

	entries := make([]icoEntry, 0, count)
	for i := 0; i < count; i++ {
		b := data[6+16*i : 6+16*(i+1)]
		e := icoEntry{
			width:    int(b[0]),
			height:   int(b[1]),
			bitCount: int(binary.LittleEndian.Uint16(b[6:8])),
			size:     binary.LittleEndian.Uint32(b[8:12]),
			offset:   binary.LittleEndian.Uint32(b[12:16]),
		}
		// 0 means 256 pixels.
		if e.width == 0 {
			e.width = 256
		}
		if e.height == 0 {
			e.height = 256
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// decodeDIB decodes a BITMAPINFOHEADER bitmap as stored in ICO files: the
// height covers both the XOR image and the 1bpp AND mask, rows bottom-up.
func decodeDIB(b []byte) (image.Image, error) {
	if len(b) < 40 {
		return nil, fmt.Errorf("%w: short DIB header", errBadICO)
	}
	headerSize := int(binary.LittleEndian.Uint32(b[0:4]))
	width := int(int32(binary.LittleEndian.Uint32(b[4:8])))
	height := int(int32(binary.LittleEndian.Uint32(b[8:12]))) / 2
	bitCount := int(binary.LittleEndian.Uint16(b[14:16]))
	compression := binary.LittleEndian.Uint32(b[16:20])
	colorsUsed := int(binary.LittleEndian.Uint32(b[32:36]))

	if headerSize < 40 || headerSize > len(b) || width <= 0 || height <= 0 || width > 1024 || height > 1024 {
		return nil, fmt.Errorf("%w: bad DIB dimensions", errBadICO)
	}
	if compression != 0 {
		return nil, fmt.Errorf("%w: compressed DIB not supported", errBadICO)
	}

	var palette []color.NRGBA
	pos := headerSize
	if bitCount <= 8 {
		n := colorsUsed
		if n == 0 {
			n = 1 << bitCount
		}
		if pos+4*n > len(b) {
			return nil, fmt.Errorf("%w: truncated palette", errBadICO)
		}
		palette = make([]color.NRGBA, n)
		for i := range palette {
			p := b[pos+4*i:]
			palette[i] = color.NRGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
		}
		pos += 4 * n
	}

	switch bitCount {
	case 1, 4, 8, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth %d", errBadICO, bitCount)
	}

	xorStride := ((width*bitCount + 31) / 32) * 4
	andStride := ((width + 31) / 32) * 4
	xorSize := xorStride * height
	if pos+xorSize > len(b) {
		return nil, fmt.Errorf("%w: truncated pixel data", errBadICO)
	}
	xor := b[pos : pos+xorSize]
	var and []byte
	if rest := b[pos+xorSize:]; len(rest) >= andStride*height {
		and = rest[:andStride*height]
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	hasAlpha := false
	for y := 0; y < height; y++ {
		row := xor[(height-1-y)*xorStride:]
		for x := 0; x < width; x++ {
			var c color.NRGBA
			switch bitCount {
			case 32:
				p := row[x*4:]
				c = color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
				if p[3] != 0 {
					hasAlpha = true
				}
			case 24:
				p := row[x*3:]
				c = color.NRGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
			default:
				idx := paletteIndex(row, x, bitCount)
				if idx < len(palette) {
					c = palette[idx]
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	// 32bpp entries carry real alpha; older ones rely on the AND mask. A
	// 32bpp image with an all-zero alpha channel also falls back to the mask.
	if bitCount == 32 && !hasAlpha {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
	}
	if and != nil && (bitCount != 32 || !hasAlpha) {
		for y := 0; y < height; y++ {
			row := and[(height-1-y)*andStride:]
			for x := 0; x < width; x++ {
				if row[x/8]&(0x80>>(x%8)) != 0 {
					img.Pix[y*img.Stride+x*4+3] = 0
				}
			}
		}
	}
	return img, nil
}

func paletteIndex(row []byte, x, bitCount int) int {
	switch bitCount {
	case 8:
		return int(row[x])
	case 4:
		b := row[x/2]
		if x%2 == 0 {
			return int(b >> 4)
		}
		return int(b & 0x0f)
	default:
		return int(row[x/8]>>(7-uint(x%8))) & 1
	}
}
