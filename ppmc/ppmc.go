// Package ppmc implements a PPM (Prediction by Partial Matching), variant C,
// context-mixing coder driving a 16-bit arithmetic coder. A context trie of
// the preceding order bytes predicts the next byte; when the current
// context has never seen it, an ESCAPE symbol drops to the next shorter
// context (excluding symbols already tried at higher orders) until either a
// match is found or the order-(-1) uniform fallback guarantees one.
//
// order selects how many preceding bytes form the deepest context (0..4 are
// typical; higher orders trade memory for better prediction on redundant
// input). It is fixed for the lifetime of a Writer or Reader.
package ppmc

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/obi99/quanta/bitio"
	"github.com/obi99/quanta/internal/errors"
)

// DefaultOrder is a reasonable order for callers (such as cmd/quanta) that
// don't have a more specific value in mind.
const DefaultOrder = 3

const maxOrder = 4

func clampOrder(order int) int {
	if order < 0 {
		return 0
	}
	if order > maxOrder {
		return maxOrder
	}
	return order
}

// Writer encodes bytes written to it with an order-N PPMC model feeding a
// 16-bit arithmetic coder. The whole input is buffered and encoded at
// Close, mirroring lzss.Writer's shape, since PPMC's context trie is
// naturally built by a single top-to-bottom pass.
type Writer struct {
	bw      *bitio.Writer
	order   int
	pending []byte
	closed  bool
	err     error
}

// NewWriter returns a Writer using the given context order (clamped to
// 0..4) whose compressed output is written to w.
func NewWriter(w io.Writer, order int) *Writer {
	return &Writer{bw: bitio.NewWriter(w), order: clampOrder(order)}
}

// Reset discards any buffered data and prepares the Writer to write to w,
// keeping its configured order.
func (zw *Writer) Reset(w io.Writer) {
	zw.bw.Reset(w)
	zw.pending = zw.pending[:0]
	zw.closed = false
	zw.err = nil
}

// Write appends p to the pending input; the actual encode runs at Close.
func (zw *Writer) Write(p []byte) (int, error) {
	if zw.err != nil {
		return 0, zw.err
	}
	zw.pending = append(zw.pending, p...)
	return len(p), nil
}

// Close runs the PPMC encoder over everything written so far and flushes
// the arithmetic coder's trailing state. It does not close the underlying
// io.Writer.
func (zw *Writer) Close() error {
	if zw.err != nil {
		return zw.err
	}
	if zw.closed {
		return nil
	}
	zw.closed = true
	if err := zw.compress(); err != nil {
		zw.err = err
		return err
	}
	if err := zw.bw.Close(); err != nil {
		zw.err = err
		return err
	}
	return nil
}

func (zw *Writer) compress() (err error) {
	defer errors.Recover(&err)

	m := newModel(zw.order)
	enc := newArithEncoder()
	for _, c := range zw.pending {
		s, escaped := m.convertIntToSymbol(int(c))
		for escaped {
			if err := enc.encode(zw.bw, s); err != nil {
				return err
			}
			s, escaped = m.convertIntToSymbol(int(c))
		}
		if err := enc.encode(zw.bw, s); err != nil {
			return err
		}
		m.updateModel(int(c))
	}
	s, escaped := m.convertIntToSymbol(endOfStream)
	for escaped {
		if err := enc.encode(zw.bw, s); err != nil {
			return err
		}
		s, escaped = m.convertIntToSymbol(endOfStream)
	}
	if err := enc.encode(zw.bw, s); err != nil {
		return err
	}
	return enc.flush(zw.bw)
}

// Reader decodes a stream produced by Writer. order must match the order
// the stream was compressed with. The whole input is decoded eagerly on
// the first Read call and served from an in-memory buffer thereafter,
// mirroring lzss.Reader.
type Reader struct {
	br      *bitio.Reader
	order   int
	out     bytes.Buffer
	decoded bool
	err     error
}

// NewReader returns a Reader using the given context order (clamped to
// 0..4) that decodes r. order must match the order the stream was
// compressed with.
func NewReader(r io.Reader, order int) *Reader {
	return &Reader{br: bitio.NewReader(r), order: clampOrder(order)}
}

// Reset discards any decoded output and prepares the Reader to read from r,
// keeping its configured order.
func (zr *Reader) Reset(r io.Reader) {
	zr.br.Reset(r)
	zr.out.Reset()
	zr.decoded = false
	zr.err = nil
}

// Read decodes into p.
func (zr *Reader) Read(p []byte) (int, error) {
	if zr.err != nil {
		return 0, zr.err
	}
	if !zr.decoded {
		zr.decoded = true
		if err := zr.expand(); err != nil {
			zr.err = err
			return 0, err
		}
	}
	return zr.out.Read(p)
}

func (zr *Reader) expand() (err error) {
	defer errors.Recover(&err)

	m := newModel(zr.order)
	dec, err := newArithDecoder(zr.br)
	if err != nil {
		return truncated(err)
	}
	for {
		s := m.getSymbolScale()
		if s.scale == 0 {
			return errors.Errorf(errors.Corrupted, "ppmc: zero scale in decode")
		}
		index := dec.scale(s)
		c := m.convertSymbolToInt(index, &s)
		if err := dec.remove(zr.br, s); err != nil {
			return truncated(err)
		}
		for c == escape {
			s = m.getSymbolScale()
			if s.scale == 0 {
				return errors.Errorf(errors.Corrupted, "ppmc: zero scale in decode")
			}
			index = dec.scale(s)
			c = m.convertSymbolToInt(index, &s)
			if err := dec.remove(zr.br, s); err != nil {
				return truncated(err)
			}
		}
		if c == endOfStream {
			return nil
		}
		zr.out.WriteByte(byte(c))
		m.updateModel(c)
	}
}

func truncated(cause error) error {
	if cause == io.EOF || cause == io.ErrUnexpectedEOF {
		return errors.Errorf(errors.Corrupted, "truncated stream: missing END_OF_STREAM")
	}
	return cause
}

// DecodeAll is a convenience wrapper for callers that want the whole
// decoded output in one call rather than streaming through Read.
func DecodeAll(r io.Reader, order int) ([]byte, error) {
	return ioutil.ReadAll(NewReader(r, order))
}
