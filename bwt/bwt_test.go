package bwt

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/obi99/quanta/internal/testutil"
)

func TestForwardReverseBWT(t *testing.T) {
	vectors := [][]byte{
		nil,
		[]byte("a"),
		[]byte("banana"),
		[]byte("abracadabra"),
		bytes.Repeat([]byte("x"), 1000),
		testutil.RepeatsData(50000, 2),
	}
	for i, want := range vectors {
		buf := append([]byte(nil), want...)
		ptr := ForwardBWT(buf)
		ReverseBWT(buf, ptr)
		if !bytes.Equal(buf, want) {
			t.Errorf("vector %d: round trip mismatch: got %q, want %q", i, buf, want)
		}
	}
}

func TestMoveToFrontRoundTrip(t *testing.T) {
	input := []byte("mississippi river")
	var enc moveToFront
	enc.init()
	idxs := enc.encode(input)

	var dec moveToFront
	dec.init()
	got := dec.decode(idxs)
	if !bytes.Equal(got, input) {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	vectors := []struct {
		label string
		input []byte
	}{
		{"empty", nil},
		{"short", []byte("hello, world")},
		{"one block exactly", bytes.Repeat([]byte("q"), BlockSize)},
		{"one byte over a block", testutil.RepeatsData(BlockSize+1, 4)},
		{"spans two blocks", bytes.Repeat([]byte("mississippi "), (BlockSize/12)+1000)},
		{"repeats corpus", testutil.RepeatsData(3*BlockSize/2, 3)},
	}
	for _, v := range vectors {
		t.Run(v.label, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if _, err := w.Write(v.input); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			r := NewReader(&buf)
			got, err := ioutil.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(got, v.input) {
				t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(v.input))
			}
		})
	}
}

func TestCorruptedHeaderRejected(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("some data"))
	w.Close()

	corrupt := buf.Bytes()
	// Overwrite the block-length field with something absurd.
	corrupt[4] = 0xff
	corrupt[5] = 0xff
	corrupt[6] = 0xff
	corrupt[7] = 0x7f

	r := NewReader(bytes.NewReader(corrupt))
	if _, err := ioutil.ReadAll(r); err == nil {
		t.Fatal("expected an error decoding a corrupted block header")
	}
}
