package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/obi99/quanta/internal/testutil"
)

func TestRunRoundTrip(t *testing.T) {
	input := testutil.RepeatsData(8<<10, 7)

	for _, codec := range []string{"huffman", "bwt", "lzss", "lzw", "ppmc"} {
		t.Run(codec, func(t *testing.T) {
			var compressed, decompressed bytes.Buffer
			if err := run(codec, false, 3, bytes.NewReader(input), &compressed); err != nil {
				t.Fatalf("compress: %v", err)
			}
			if err := run(codec, true, 3, bytes.NewReader(compressed.Bytes()), &decompressed); err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if diff := cmp.Diff(input, decompressed.Bytes()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunUnknownCodec(t *testing.T) {
	var out bytes.Buffer
	if err := run("nonexistent", false, 3, bytes.NewReader(nil), &out); err == nil {
		t.Fatal("expected an error for an unknown -codec")
	}
}
