package ppmc

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/obi99/quanta/internal/testutil"
)

func roundTrip(t *testing.T, order int, input []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, order)
	if _, err := w.Write(input); err != nil {
		t.Fatalf("order %d: Write: %v", order, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("order %d: Close: %v", order, err)
	}

	r := NewReader(&buf, order)
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("order %d: ReadAll: %v", order, err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("order %d: round trip mismatch: got %d bytes, want %d bytes", order, len(got), len(input))
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	vectors := []struct {
		label string
		input []byte
	}{
		{"empty", nil},
		{"single byte", []byte{0x42}},
		{"all same", bytes.Repeat([]byte{'A'}, 5)},
		{"all 256 values once", func() []byte {
			b := make([]byte, 256)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}()},
		{"alternating bytes", bytes.Repeat([]byte{0x00, 0xFF}, 2048)},
		{"text", bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 100)},
		{"repeats corpus", testutil.RepeatsData(64<<10, 2)},
	}

	for order := 0; order <= 4; order++ {
		for _, v := range vectors {
			t.Run(v.label, func(t *testing.T) {
				roundTrip(t, order, v.input)
			})
		}
	}
}

// TestAllZeroCompressesWell exercises spec §8's 100x ratio requirement on a
// long run of a single, highly predictable byte.
func TestAllZeroCompressesWell(t *testing.T) {
	input := make([]byte, 10000)
	out := roundTrip(t, 3, input)
	if ratio := float64(len(input)) / float64(len(out)); ratio <= 100 {
		t.Errorf("compression ratio %.1fx, want > 100x (compressed to %d bytes)", ratio, len(out))
	}
}

// TestFoxTextCompressesWell exercises spec §8's order-3 bound on a highly
// repetitive phrase.
func TestFoxTextCompressesWell(t *testing.T) {
	input := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 100)
	out := roundTrip(t, 3, input)
	if len(out) >= 200 {
		t.Errorf("got %d compressed bytes, want fewer than 200", len(out))
	}
}

func TestTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultOrder)
	w.Write([]byte("hello world"))
	w.Close()

	truncated := buf.Bytes()[:buf.Len()/2]
	r := NewReader(bytes.NewReader(truncated), DefaultOrder)
	if _, err := ioutil.ReadAll(r); err == nil {
		t.Fatal("expected an error decoding a truncated stream")
	}
}

func TestResetReusesWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	w := NewWriter(&buf1, DefaultOrder)
	w.Write([]byte("first"))
	w.Close()

	w.Reset(&buf2)
	w.Write([]byte("second"))
	w.Close()

	r := NewReader(&buf2, DefaultOrder)
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}
}

func TestFirstByteAlwaysDecodesViaOrderNegativeOneFallback(t *testing.T) {
	for order := 0; order <= 4; order++ {
		roundTrip(t, order, []byte{0x07})
	}
}
