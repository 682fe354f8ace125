// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

// RepeatsData synthesizes size bytes of data that mixes random runs with
// long-distance copies, the same shape as testdata/repeats.bin in the
// original corpus (generated once via go:generate there; generated on the
// fly here so every package's tests can ask for whatever size they need
// without checking in binary fixtures). It favors dictionary coders (LZSS,
// LZW) the same way the original generator did, while still exercising
// Huffman, BWT, and PPMC on data with nontrivial byte-frequency skew.
func RepeatsData(size int, seed int) []byte {
	r := NewRand(seed)
	var b []byte

	randLen := func() int {
		switch p := r.Intn(100); {
		case p < 15:
			return 4 + r.Intn(4)
		case p < 30:
			return 8 + r.Intn(8)
		case p < 45:
			return 16 + r.Intn(16)
		case p < 60:
			return 32 + r.Intn(32)
		case p < 75:
			return 64 + r.Intn(64)
		case p < 90:
			return 128 + r.Intn(128)
		default:
			return 256 + r.Intn(256)
		}
	}

	randDist := func() int {
		for {
			var d int
			switch p := r.Intn(100); {
			case p < 30:
				d = 1 + r.Intn(8)
			case p < 60:
				d = 8 + r.Intn(56)
			case p < 85:
				d = 64 + r.Intn(960)
			default:
				d = 1024 + r.Intn(16384)
			}
			if d > 0 && d <= len(b) {
				return d
			}
			if len(b) == 0 {
				return 0
			}
		}
	}

	writeRand := func(l int) {
		for i := 0; i < l; i++ {
			b = append(b, byte(r.Int()))
		}
	}
	writeCopy := func(d, l int) {
		for i := 0; i < l; i++ {
			b = append(b, b[len(b)-d])
		}
	}

	writeRand(randLen())
	for len(b) < size {
		switch p := r.Intn(100); {
		case p < 10 || len(b) == 0:
			writeRand(randLen())
		default:
			d := randDist()
			if d == 0 {
				writeRand(randLen())
				continue
			}
			writeCopy(d, randLen())
		}
	}
	return b[:size]
}
