// Package lzw implements a variable-width LZW coder with a hash-probed
// dictionary. Codes start at 9 bits and widen (BUMP_CODE) as the dictionary
// fills, up to 16 bits; once the dictionary is entirely full it is emptied
// and restarted from scratch (FLUSH_CODE) rather than the encoder giving up
// on compression. The dictionary itself is addressed two different ways by
// the two sides: the encoder probes it by hash of (parent code, next
// character), while the decoder addresses it directly by code value — the
// two are never in play on the same side at once, so one flat array serves
// both.
package lzw

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/obi99/quanta/bitio"
	"github.com/obi99/quanta/internal/errors"
)

const (
	codeBits  = 16
	maxCode   = (1 << codeBits) - 1 // 65535
	tableSize = 78643

	endOfStream = 256
	bumpCode    = 257
	flushCode   = 258
	firstCode   = 259

	unused = -1
)

type dictEntry struct {
	parentCode int
	character  byte
	codeValue  int
}

// dictionary holds the per-invocation LZW table and code-width state,
// rather than the globals a from-scratch C translation would reach for, so
// a Writer/Reader pair can be reused or run concurrently.
type dictionary struct {
	entries         []dictEntry
	nextCode        int
	currentCodeBits uint
	nextBumpCode    int
}

func newDictionary() *dictionary {
	d := &dictionary{entries: make([]dictEntry, tableSize)}
	d.reset()
	return d
}

func (d *dictionary) reset() {
	for i := range d.entries {
		d.entries[i].codeValue = unused
	}
	d.nextCode = firstCode
	d.currentCodeBits = 9
	d.nextBumpCode = 511
}

// hashChildNode finds the table slot holding (parentCode, character), or a
// free slot in which to insert it. The probe step is derived from the
// initial index so that distinct (parentCode, character) pairs rarely
// collide and, when they do, visit a very different sequence of slots.
func (d *dictionary) hashChildNode(parentCode, character int) int {
	index := (character << (codeBits - 8)) ^ parentCode
	var offset int
	if index == 0 {
		offset = 1
	} else {
		offset = tableSize - index
	}
	for {
		e := &d.entries[index]
		if e.codeValue == unused {
			return index
		}
		if e.parentCode == parentCode && int(e.character) == character {
			return index
		}
		if index >= offset {
			index -= offset
		} else {
			index += tableSize - offset
		}
	}
}

// compress runs the full LZW encode loop over input, writing codes of the
// current width to bw.
func compress(bw *bitio.Writer, input []byte) error {
	d := newDictionary()

	var stringCode int
	if len(input) == 0 {
		stringCode = endOfStream
	} else {
		stringCode = int(input[0])
	}

	for i := 1; i < len(input); i++ {
		character := int(input[i])
		index := d.hashChildNode(stringCode, character)
		if d.entries[index].codeValue != unused {
			stringCode = d.entries[index].codeValue
			continue
		}

		d.entries[index] = dictEntry{parentCode: stringCode, character: byte(character), codeValue: d.nextCode}
		d.nextCode++
		if err := bw.WriteBits(uint64(stringCode), d.currentCodeBits); err != nil {
			return err
		}
		stringCode = character

		switch {
		case d.nextCode > maxCode:
			if err := bw.WriteBits(flushCode, d.currentCodeBits); err != nil {
				return err
			}
			d.reset()
		case d.nextCode > d.nextBumpCode:
			if err := bw.WriteBits(bumpCode, d.currentCodeBits); err != nil {
				return err
			}
			d.currentCodeBits++
			d.nextBumpCode = (d.nextBumpCode << 1) | 1
		}
	}

	if err := bw.WriteBits(uint64(stringCode), d.currentCodeBits); err != nil {
		return err
	}
	return bw.WriteBits(endOfStream, d.currentCodeBits)
}

// decodeString unwinds the parent chain of code into stack, starting at
// stack[count], and returns the new count. A code below 256 is a literal
// byte and terminates the chain.
func decodeString(d *dictionary, stack []byte, count, code int) int {
	for code > 255 {
		stack[count] = d.entries[code].character
		count++
		code = d.entries[code].parentCode
	}
	stack[count] = byte(code)
	count++
	return count
}

// expand runs the full LZW decode loop, reading codes from br and writing
// the decompressed bytes to out.
func expand(br *bitio.Reader, out *bytes.Buffer) error {
	d := newDictionary()
	stack := make([]byte, tableSize)

	for {
		d.reset()

		oldCodeU, err := br.ReadBits(d.currentCodeBits)
		if err != nil {
			return truncated(err)
		}
		oldCode := int(oldCodeU)
		if oldCode == endOfStream {
			return nil
		}
		character := byte(oldCode)
		out.WriteByte(character)

		for {
			newCodeU, err := br.ReadBits(d.currentCodeBits)
			if err != nil {
				return truncated(err)
			}
			newCode := int(newCodeU)

			if newCode == endOfStream {
				return nil
			}
			if newCode == flushCode {
				break
			}
			if newCode == bumpCode {
				d.currentCodeBits++
				continue
			}

			var count int
			if newCode >= d.nextCode {
				// Incomplete dictionary entry: the encoder emitted a code
				// for a string it had just inserted but not yet fully
				// observed on this side. Its expansion is oldCode's string
				// followed by oldCode's own first character again.
				stack[0] = character
				count = decodeString(d, stack, 1, oldCode)
			} else {
				count = decodeString(d, stack, 0, newCode)
			}
			count--
			character = stack[count]
			for i := count; i >= 0; i-- {
				out.WriteByte(stack[i])
			}

			if d.nextCode < len(d.entries) {
				d.entries[d.nextCode] = dictEntry{parentCode: oldCode, character: character}
			}
			d.nextCode++
			oldCode = newCode
		}
	}
}

func truncated(cause error) error {
	if cause == io.EOF {
		return errors.Errorf(errors.Corrupted, "truncated stream: missing END_OF_STREAM code")
	}
	return cause
}

// Writer buffers everything written to it and runs the LZW compress loop
// once, at Close, mirroring the single-pass shape of the reference encoder.
type Writer struct {
	bw      *bitio.Writer
	pending []byte
	closed  bool
	err     error
}

// NewWriter returns a Writer whose compressed output is written to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bitio.NewWriter(w)}
}

// Reset discards any buffered data and prepares the Writer to write to w.
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

// Close runs the LZW encoder over everything written so far and flushes the
// result. It does not close the underlying io.Writer.
func (zw *Writer) Close() error {
	if zw.err != nil {
		return zw.err
	}
	if zw.closed {
		return nil
	}
	zw.closed = true
	if err := compress(zw.bw, zw.pending); err != nil {
		zw.err = err
		return err
	}
	if err := zw.bw.Close(); err != nil {
		zw.err = err
		return err
	}
	return nil
}

// Reader decodes a stream produced by Writer. The whole input is decoded
// eagerly on the first Read call and served from an in-memory buffer
// thereafter.
type Reader struct {
	br      *bitio.Reader
	out     bytes.Buffer
	decoded bool
	err     error
}

// NewReader returns a Reader that decodes r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bitio.NewReader(r)}
}

// Reset discards any decoded output and prepares the Reader to read from r.
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
		if err := expand(zr.br, &zr.out); err != nil {
			zr.err = err
			return 0, err
		}
	}
	return zr.out.Read(p)
}

// DecodeAll is a convenience wrapper for callers that want the whole
// decoded output in one call rather than streaming through Read.
func DecodeAll(r io.Reader) ([]byte, error) {
	return ioutil.ReadAll(NewReader(r))
}
