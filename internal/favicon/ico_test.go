// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package favicon

import (
	"errors"
	"image/color"
	"testing"
)

func TestDecodeICO_PicksLargestPNG(t *testing.T) {
	small := pngBytes(t, 16, 16, color.NRGBA{R: 255, A: 255})
	large := pngBytes(t, 48, 48, color.NRGBA{G: 255, A: 255})
	data := buildICO([]icoTestEntry{
		{w: 16, h: 16, bpp: 32, data: small},
		{w: 48, h: 48, bpp: 32, data: large},
	})

	img, err := decodeICO(data)
	if err != nil {
		t.Fatalf("decodeICO() error = %v", err)
	}
	if img.Bounds().Dx() != 48 {
		t.Errorf("width = %d, want 48", img.Bounds().Dx())
	}
	if _, g, _, _ := img.At(10, 10).RGBA(); g == 0 {
		t.Error("expected the green (large) entry")
	}
}

func TestDecodeICO_RejectsHugePNGEntry(t *testing.T) {
	data := buildICO([]icoTestEntry{{w: 0, h: 0, bpp: 32, data: pngClaiming(t, 12000, 12000)}})
	if _, err := decodeICO(data); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("decodeICO() error = %v, want ErrImageTooLarge", err)
	}
}

func TestDecodeICO_DIBWithANDMask(t *testing.T) {
	// Alpha channel all zero: transparency comes from the AND mask.
	dib := dib32(4, 4, [4]byte{0, 0, 255, 0}, [][2]int{{0, 0}, {3, 3}})
	img, err := decodeICO(buildICO([]icoTestEntry{{w: 4, h: 4, bpp: 32, data: dib}}))
	if err != nil {
		t.Fatalf("decodeICO() error = %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	alpha := func(x, y int) uint8 {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
	}
	if alpha(0, 0) != 0 || alpha(3, 3) != 0 {
		t.Error("masked pixels are not transparent")
	}
	if alpha(1, 0) != 255 {
		t.Errorf("alpha(1,0) = %d, want 255", alpha(1, 0))
	}
	if c := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA); c.R != 255 || c.G != 0 {
		t.Errorf("pixel = %+v, want red", c)
	}
}

func TestDecodeICO_Malformed(t *testing.T) {
	tests := map[string][]byte{
		"empty":           nil,
		"bad type":        {0, 0, 2, 0, 1, 0},
		"zero entries":    {0, 0, 1, 0, 0, 0},
		"truncated":       {0, 0, 1, 0, 1, 0, 16, 16},
		"offset past end": buildICO([]icoTestEntry{{w: 16, h: 16, bpp: 32, data: nil}})[:22],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeICO(data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeDIB_RejectsCompressed(t *testing.T) {
	dib := dib32(2, 2, [4]byte{}, nil)
	dib[16] = 1 // BI_RLE8
	if _, err := decodeDIB(dib); !errors.Is(err, errBadICO) {
		t.Errorf("err = %v, want errBadICO", err)
	}
}
