// Command quantabench compares this module's five codecs against a few
// well-known Go compressors (the standard library's compress/flate,
// klauspost/compress's flate, and ulikunitz/xz) on synthetic corpora of
// several sizes, reporting compression ratio and throughput for each.
//
// Example usage:
//
//	$ go run ./cmd/quantabench -sizes 1e4,1e5,1e6
//
// This is the module's stand-in for dsnet/compress's internal/tool/bench:
// same per-codec registry-and-report shape, narrowed to the codecs this
// module actually owns plus pure-Go reference points (no cgo library
// shellouts, since wiring those would need C libraries this module does
// not depend on).
package main

import (
	"bytes"
	stdflate "compress/flate"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	kflate "github.com/klauspost/compress/flate"
	"github.com/ulikunitz/xz"

	"github.com/obi99/quanta/bwt"
	"github.com/obi99/quanta/huffman"
	"github.com/obi99/quanta/internal/testutil"
	"github.com/obi99/quanta/lzss"
	"github.com/obi99/quanta/lzw"
	"github.com/obi99/quanta/ppmc"
)

// codec bundles a name with the encode/decode functions quantabench drives.
// Every entry in this module's own codec set and every reference codec
// satisfies the same shape, so the benchmark loop does not care which side
// of the comparison it is running.
type codec struct {
	name   string
	encode func(w io.Writer) io.WriteCloser
	decode func(r io.Reader) io.Reader
}

func codecs() []codec {
	list := []codec{
		{"huffman", func(w io.Writer) io.WriteCloser { return huffman.NewWriter(w) }, func(r io.Reader) io.Reader { return huffman.NewReader(r) }},
		{"bwt", func(w io.Writer) io.WriteCloser { return bwt.NewWriter(w) }, func(r io.Reader) io.Reader { return bwt.NewReader(r) }},
		{"lzss", func(w io.Writer) io.WriteCloser { return lzss.NewWriter(w) }, func(r io.Reader) io.Reader { return lzss.NewReader(r) }},
		{"lzw", func(w io.Writer) io.WriteCloser { return lzw.NewWriter(w) }, func(r io.Reader) io.Reader { return lzw.NewReader(r) }},
		{"std-flate", func(w io.Writer) io.WriteCloser { zw, _ := stdflate.NewWriter(w, stdflate.DefaultCompression); return zw }, func(r io.Reader) io.Reader { return stdflate.NewReader(r) }},
		{"klauspost-flate", func(w io.Writer) io.WriteCloser { zw, _ := kflate.NewWriter(w, kflate.DefaultCompression); return zw }, func(r io.Reader) io.Reader { return kflate.NewReader(r) }},
		{"xz", func(w io.Writer) io.WriteCloser { zw, _ := xz.NewWriter(w); return zw }, func(r io.Reader) io.Reader { zr, _ := xz.NewReader(r); return zr }},
	}
	for order := 0; order <= 4; order++ {
		order := order
		list = append(list, codec{
			fmt.Sprintf("ppmc-%d", order),
			func(w io.Writer) io.WriteCloser { return ppmc.NewWriter(w, order) },
			func(r io.Reader) io.Reader { return ppmc.NewReader(r, order) },
		})
	}
	return list
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("quantabench: ")

	sizes := flag.String("sizes", "1e4,1e5,1e6", "comma-separated input sizes (supports 1e4-style notation)")
	seed := flag.Int("seed", 1, "seed for the synthetic testutil.RepeatsData corpus")
	flag.Parse()

	szs, err := parseSizes(*sizes)
	if err != nil {
		log.Fatal(err)
	}
	report(szs, *seed, codecs())
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -sizes entry %q: %v", f, err)
		}
		out = append(out, int(v))
	}
	return out, nil
}

type result struct {
	name    string
	size    int
	ratio   float64
	encMBps float64
	decMBps float64
}

func report(sizes []int, seed int, cs []codec) {
	var results []result
	for _, size := range sizes {
		input := testutil.RepeatsData(size, seed)
		for _, c := range cs {
			r, err := bench(c, input)
			if err != nil {
				log.Printf("%s at size %d: %v", c.name, size, err)
				continue
			}
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].size != results[j].size {
			return results[i].size < results[j].size
		}
		return results[i].name < results[j].name
	})

	fmt.Printf("%-20s %10s %10s %12s %12s\n", "codec", "size", "ratio", "enc MB/s", "dec MB/s")
	for _, r := range results {
		fmt.Printf("%-20s %10d %9.2fx %12.2f %12.2f\n", r.name, r.size, r.ratio, r.encMBps, r.decMBps)
	}
}

func bench(c codec, input []byte) (result, error) {
	var compressed bytes.Buffer
	t0 := time.Now()
	w := c.encode(&compressed)
	if _, err := w.Write(input); err != nil {
		return result{}, fmt.Errorf("encode: %v", err)
	}
	if err := w.Close(); err != nil {
		return result{}, fmt.Errorf("encode close: %v", err)
	}
	encDur := time.Since(t0)

	t1 := time.Now()
	r := c.decode(bytes.NewReader(compressed.Bytes()))
	decoded, err := ioutil.ReadAll(r)
	if err != nil {
		return result{}, fmt.Errorf("decode: %v", err)
	}
	decDur := time.Since(t1)

	if !bytes.Equal(decoded, input) {
		return result{}, fmt.Errorf("round trip mismatch: got %d bytes, want %d", len(decoded), len(input))
	}

	ratio := float64(len(input)) / float64(compressed.Len())
	mbps := func(d time.Duration) float64 {
		if d <= 0 {
			return 0
		}
		return float64(len(input)) / d.Seconds() / (1 << 20)
	}
	return result{
		name:    c.name,
		size:    len(input),
		ratio:   ratio,
		encMBps: mbps(encDur),
		decMBps: mbps(decDur),
	}, nil
}
