// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package favicon

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// pngClaiming returns a small valid PNG whose IHDR declares w x h. Only the
// header is rewritten, so decoding the pixels would fail, but the header is
// consistent and passes checksum validation.
func pngClaiming(t *testing.T, w, h int) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1, color.White)
	binary.BigEndian.PutUint32(data[16:20], uint32(w))
	binary.BigEndian.PutUint32(data[20:24], uint32(h))
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// buildICO wraps payloads in an ICO container. Dimensions are written into
// the directory entries as given.
func buildICO(entries []icoTestEntry) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, uint16(len(entries))})

	offset := 6 + 16*len(entries)
	for _, e := range entries {
		buf.WriteByte(byte(e.w))
		buf.WriteByte(byte(e.h))
		buf.WriteByte(0)
		buf.WriteByte(0)
		_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
		_ = binary.Write(&buf, binary.LittleEndian, uint16(e.bpp))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(e.data)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(offset))
		offset += len(e.data)
	}
	for _, e := range entries {
		buf.Write(e.data)
	}
	return buf.Bytes()
}

type icoTestEntry struct {
	w, h, bpp int
	data      []byte
}

// dib32 builds a 32bpp ICO bitmap. pixels is top-down BGRA; mask lists
// top-down (x, y) pairs that are transparent in the AND mask.
func dib32(w, h int, pixel [4]byte, mask [][2]int) []byte {
	var buf bytes.Buffer
	header := []any{
		uint32(40), int32(w), int32(2 * h), uint16(1), uint16(32),
		uint32(0), uint32(0), int32(0), int32(0), uint32(0), uint32(0),
	}
	for _, v := range header {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Write(pixel[:])
		}
	}

	andStride := ((w + 31) / 32) * 4
	and := make([]byte, andStride*h)
	for _, m := range mask {
		x, y := m[0], m[1]
		row := h - 1 - y
		and[row*andStride+x/8] |= 0x80 >> (x % 8)
	}
	buf.Write(and)
	return buf.Bytes()
}
