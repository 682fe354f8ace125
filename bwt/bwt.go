// Package bwt implements the block-sorting compression pipeline: each
// BLOCK_SIZE chunk of input is rotated-sorted (the Burrows-Wheeler
// Transform), run through Move-To-Front, and the result handed to an
// adaptive Huffman coder. Unlike bzip2, a block here is a single Huffman
// stream with no per-block CRC or multi-tree selector machinery, so the
// container is just an 8-byte little-endian header per block.
package bwt

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/obi99/quanta/huffman"
	"github.com/obi99/quanta/internal/errors"
)

// BlockSize is the maximum number of bytes transformed as one unit.
const BlockSize = 750 * 1024

const alphabetSize = 256

// header is the explicit little-endian encoding of a block's metadata,
// written and read as two separate fixed-width fields rather than by
// reinterpreting a struct's memory layout.
type header struct {
	primaryIndex uint32
	blockLength  uint32
}

func (h header) marshal() [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:4], h.primaryIndex)
	binary.LittleEndian.PutUint32(b[4:8], h.blockLength)
	return b
}

func (h *header) unmarshal(b [8]byte) {
	h.primaryIndex = binary.LittleEndian.Uint32(b[0:4])
	h.blockLength = binary.LittleEndian.Uint32(b[4:8])
}

// ForwardBWT sorts every cyclic rotation of buf and replaces buf's contents
// with the last column of the sorted rotation matrix, returning the row
// index of the original string (the "primary index"). buf is rearranged in
// place. Ties between equal rotations (runs of identical bytes) are broken
// by original starting position, which keeps the sort a well-defined total
// order. Each comparison may scan up to the whole block, so a block made of
// one repeated byte or a short repeated pattern takes time quadratic in its
// length.
func ForwardBWT(buf []byte) (primaryIndex int) {
	n := len(buf)
	if n == 0 {
		return -1
	}

	rotations := make([]int, n)
	for i := range rotations {
		rotations[i] = i
	}
	sort.Slice(rotations, func(a, b int) bool {
		ia, ib := rotations[a], rotations[b]
		for k := 0; k < n; k++ {
			ca := buf[(ia+k)%n]
			cb := buf[(ib+k)%n]
			if ca != cb {
				return ca < cb
			}
		}
		return ia < ib
	})

	out := make([]byte, n)
	for row, start := range rotations {
		if start == 0 {
			primaryIndex = row
			out[row] = buf[n-1]
		} else {
			out[row] = buf[start-1]
		}
	}
	copy(buf, out)
	return primaryIndex
}

// ReverseBWT undoes ForwardBWT in place, given the primary index produced
// by it. It runs in O(n) by building, via a counting sort over byte values,
// the map from each sorted row to the row of the next rotation, then
// following it forward from the primary index to emit the block front to
// back.
func ReverseBWT(buf []byte, primaryIndex int) {
	n := len(buf)
	if n == 0 {
		return
	}

	var count [alphabetSize]int
	for _, v := range buf {
		count[v]++
	}
	var sum int
	for i, v := range count {
		sum += v
		count[i] = sum - v
	}

	next := make([]int, n)
	for i, b := range buf {
		next[count[b]] = i
		count[b]++
	}

	out := make([]byte, n)
	pos := next[primaryIndex]
	for i := range out {
		out[i] = buf[pos]
		pos = next[pos]
	}
	copy(buf, out)
}

// moveToFront implements the plain Move-To-Front transform over the
// 256-symbol byte alphabet, with no run-length augmentation: spec component
// #3 calls for MTF alone, feeding straight into the Huffman stage.
type moveToFront struct {
	dict [alphabetSize]byte
}

func (m *moveToFront) init() {
	for i := range m.dict {
		m.dict[i] = byte(i)
	}
}

func (m *moveToFront) encode(vals []byte) []byte {
	out := make([]byte, len(vals))
	for i, val := range vals {
		var idx int
		for idx = 0; m.dict[idx] != val; idx++ {
		}
		copy(m.dict[1:idx+1], m.dict[:idx])
		m.dict[0] = val
		out[i] = byte(idx)
	}
	return out
}

func (m *moveToFront) decode(idxs []byte) []byte {
	out := make([]byte, len(idxs))
	for i, b := range idxs {
		idx := int(b)
		val := m.dict[idx]
		copy(m.dict[1:idx+1], m.dict[:idx])
		m.dict[0] = val
		out[i] = val
	}
	return out
}

// Writer compresses data written to it one BlockSize block at a time,
// applying BWT, then Move-To-Front, then adaptive Huffman coding to each
// block before writing it to the underlying io.Writer, framed by an 8-byte
// header.
type Writer struct {
	w   io.Writer
	buf []byte
	err error
}

// NewWriter returns a Writer that writes a BWT-compressed stream to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Reset discards any buffered block and prepares the Writer to write to w.
func (zw *Writer) Reset(w io.Writer) {
	zw.w = w
	zw.buf = zw.buf[:0]
	zw.err = nil
}

// Write buffers p, flushing one or more complete BlockSize blocks to the
// underlying writer as they fill.
func (zw *Writer) Write(p []byte) (n int, err error) {
	if zw.err != nil {
		return 0, zw.err
	}
	for len(p) > 0 {
		room := BlockSize - len(zw.buf)
		take := room
		if take > len(p) {
			take = len(p)
		}
		zw.buf = append(zw.buf, p[:take]...)
		p = p[take:]
		n += take
		if len(zw.buf) == BlockSize {
			if err := zw.flushBlock(); err != nil {
				zw.err = err
				return n, err
			}
		}
	}
	return n, nil
}

func (zw *Writer) flushBlock() error {
	if len(zw.buf) == 0 {
		return nil
	}
	block := make([]byte, len(zw.buf))
	copy(block, zw.buf)
	zw.buf = zw.buf[:0]

	primaryIndex := ForwardBWT(block)

	var mtf moveToFront
	mtf.init()
	transformed := mtf.encode(block)

	h := header{primaryIndex: uint32(primaryIndex), blockLength: uint32(len(block))}
	hb := h.marshal()
	if _, err := zw.w.Write(hb[:]); err != nil {
		return err
	}

	hw := huffman.NewWriter(zw.w)
	if _, err := hw.Write(transformed); err != nil {
		return err
	}
	return hw.Close()
}

// Close flushes any remaining buffered data as a final, possibly short,
// block. It does not close the underlying io.Writer.
func (zw *Writer) Close() error {
	if zw.err != nil {
		return zw.err
	}
	if err := zw.flushBlock(); err != nil {
		zw.err = err
		return err
	}
	return nil
}

// Reader decompresses a stream produced by Writer, one block at a time.
type Reader struct {
	r    io.Reader
	buf  []byte
	pos  int
	err  error
	done bool
}

// NewReader returns a Reader that reads a BWT-compressed stream from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Reset discards any buffered block and prepares the Reader to read from r.
func (zr *Reader) Reset(r io.Reader) {
	zr.r = r
	zr.buf = nil
	zr.pos = 0
	zr.err = nil
	zr.done = false
}

func (zr *Reader) readBlock() error {
	var hb [8]byte
	if _, err := io.ReadFull(zr.r, hb[:]); err != nil {
		if err == io.EOF {
			zr.done = true
			return nil
		}
		return errors.Errorf(errors.Corrupted, "truncated block header: %v", err)
	}
	var h header
	h.unmarshal(hb)
	if h.blockLength == 0 {
		return errors.Errorf(errors.Corrupted, "zero-length block")
	}
	if h.blockLength > BlockSize {
		return errors.Errorf(errors.Corrupted, "block length %d exceeds BlockSize", h.blockLength)
	}

	hr := huffman.NewReader(zr.r)
	transformed := make([]byte, h.blockLength)
	if _, err := io.ReadFull(hr, transformed); err != nil {
		return errors.Errorf(errors.Corrupted, "short block: %v", err)
	}
	// Consume the block's END_OF_STREAM so the next header starts aligned.
	var extra [1]byte
	if n, err := hr.Read(extra[:]); n != 0 || (err != nil && err != io.EOF) {
		return errors.Errorf(errors.Corrupted, "block longer than its header length")
	}

	var mtf moveToFront
	mtf.init()
	block := mtf.decode(transformed)

	if int(h.primaryIndex) >= len(block) {
		return errors.Errorf(errors.Corrupted, "primary index %d out of range for block of length %d", h.primaryIndex, len(block))
	}
	ReverseBWT(block, int(h.primaryIndex))

	zr.buf = block
	zr.pos = 0
	return nil
}

// Read decompresses into p, returning the number of bytes produced.
func (zr *Reader) Read(p []byte) (n int, err error) {
	if zr.err != nil {
		return 0, zr.err
	}
	for n < len(p) {
		if zr.pos >= len(zr.buf) {
			if zr.done {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			if err := zr.readBlock(); err != nil {
				zr.err = err
				return n, err
			}
			continue
		}
		c := copy(p[n:], zr.buf[zr.pos:])
		n += c
		zr.pos += c
	}
	return n, nil
}
