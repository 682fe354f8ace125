// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bitio

import (
	"bytes"
	"testing"
)

func TestRoundTripBits(t *testing.T) {
	vectors := []struct {
		value uint64
		width uint
	}{
		{0, 1}, {1, 1},
		{0x5, 3}, {0x2a, 6},
		{0xff, 8}, {0x00, 8},
		{0x1234, 16}, {0xffffffff, 32},
		{0x123456789a, 40},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, v := range vectors {
		if err := w.WriteBits(v.value, v.width); err != nil {
			t.Fatalf("WriteBits(%#x, %d): %v", v.value, v.width, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(&buf)
	for i, v := range vectors {
		got, err := r.ReadBits(v.width)
		if err != nil {
			t.Fatalf("vector %d: ReadBits: %v", i, err)
		}
		if want := v.value & (1<<v.width - 1); got != want {
			t.Errorf("vector %d: got %#x, want %#x", i, got, want)
		}
	}
}

func TestTrailingBitsZero(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteBits(1, 1) // One bit of a byte; remaining 7 must be zero-padded.
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 1 {
		t.Fatalf("got %d bytes, want 1", buf.Len())
	}
	if buf.Bytes()[0] != 0x80 {
		t.Errorf("got %#x, want %#x", buf.Bytes()[0], 0x80)
	}
}

func TestSingleBits(t *testing.T) {
	bits := []uint{1, 0, 1, 1, 0, 0, 0, 1, 1, 0}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, b := range bits {
		if err := w.WriteBit(b); err != nil {
			t.Fatal(err)
		}
	}
	w.Close()

	r := NewReader(&buf)
	for i, want := range bits {
		got, err := r.ReadBit()
		if err != nil {
			t.Fatalf("bit %d: %v", i, err)
		}
		if got != want {
			t.Errorf("bit %d: got %d, want %d", i, got, want)
		}
	}
}

func TestReadPastEOF(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteBits(0x3, 2)
	w.Close()

	r := NewReader(&buf)
	if _, err := r.ReadBits(9); err == nil {
		t.Fatalf("expected an error reading past EOF")
	}
}

func TestEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("closing an empty writer should emit no bytes, got %d", buf.Len())
	}
}
