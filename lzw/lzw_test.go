package lzw

import (
	"bytes"
	"testing"

	"github.com/obi99/quanta/internal/testutil"
)

func roundTrip(t *testing.T, input []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if _, err := w.Write(input); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := DecodeAll(&buf)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, input)
	}
	return buf.Bytes()
}

// TestIncompleteEntry exercises the newCode >= nextCode decode fixup: the
// alternating pattern makes the encoder emit code 261 ("ABA") at the point
// where the decoder is only about to build that entry.
func TestIncompleteEntry(t *testing.T) {
	roundTrip(t, []byte("ABABABABAB"))
}

func TestBumpTriggersWidening(t *testing.T) {
	// A long, varied-enough input drives nextCode past 511, forcing a
	// BUMP_CODE; the decoder must widen currentCodeBits at the same point.
	roundTrip(t, testutil.RepeatsData(200000, 9))
}

func TestRoundTripVectors(t *testing.T) {
	vectors := []struct {
		label string
		input []byte
	}{
		{"empty", nil},
		{"single byte", []byte("x")},
		{"two distinct bytes", []byte("ab")},
		{"text", []byte("the quick brown fox jumps over the lazy dog")},
		{"long run", bytes.Repeat([]byte{'z'}, 10000)},
		{"repeats corpus", testutil.RepeatsData(50000, 11)},
	}
	for _, v := range vectors {
		t.Run(v.label, func(t *testing.T) {
			roundTrip(t, v.input)
		})
	}
}

func TestTruncatedStreamErrors(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write(bytes.Repeat([]byte("hello world "), 100))
	w.Close()

	truncated := buf.Bytes()[:buf.Len()/3]
	if _, err := DecodeAll(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected an error decoding a truncated stream")
	}
}
