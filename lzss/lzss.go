// Package lzss implements a sliding-window dictionary coder. A match against
// the previous WINDOW_SIZE bytes is found by walking a binary search tree
// keyed on the LOOK_AHEAD_SIZE-byte string starting at each window
// position. Matches longer than BREAK_EVEN are emitted as a (position,
// length) pair; everything else falls back to a raw literal. A zero-length
// match at position 0 terminates the stream.
package lzss

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/obi99/quanta/bitio"
	"github.com/obi99/quanta/internal/errors"
)

const (
	indexBits     = 12
	lengthBits    = 4
	windowSize    = 1 << indexBits // 4096
	lookAheadSize = 1 << lengthBits
	breakEven     = 2 // a match must beat the cost of this many literal bytes to be worth encoding

	treeRoot    = windowSize
	unused      = -1
	endOfStream = 0
)

func modWindow(v int) int { return v & (windowSize - 1) }

type treeNode struct {
	parent, larger, smaller int
}

// tree is the BST over sliding-window positions, indexed 0..windowSize-1
// plus one extra slot at treeRoot that anchors the real root.
type tree struct {
	window [windowSize]byte
	nodes  [windowSize + 1]treeNode
}

func (t *tree) init() {
	for i := range t.nodes {
		t.nodes[i] = treeNode{parent: unused, larger: unused, smaller: unused}
	}
}

// contractNode replaces oldNode with newNode in oldNode's parent, used when
// oldNode has at most one child. newNode may be unused, meaning oldNode had
// no children at all — the parent's link is simply cleared.
func (t *tree) contractNode(oldNode, newNode int) {
	if newNode != unused {
		t.nodes[newNode].parent = t.nodes[oldNode].parent
	}
	parent := t.nodes[oldNode].parent
	if t.nodes[parent].larger == oldNode {
		t.nodes[parent].larger = newNode
	} else {
		t.nodes[parent].smaller = newNode
	}
	t.nodes[oldNode].parent = unused
}

// replaceNode moves newNode into oldNode's position in the tree, taking
// over its parent and children.
func (t *tree) replaceNode(oldNode, newNode int) {
	parent := t.nodes[oldNode].parent
	if t.nodes[parent].smaller == oldNode {
		t.nodes[parent].smaller = newNode
	} else {
		t.nodes[parent].larger = newNode
	}
	t.nodes[newNode] = t.nodes[oldNode]
	if t.nodes[newNode].smaller != unused {
		t.nodes[t.nodes[newNode].smaller].parent = newNode
	}
	if t.nodes[newNode].larger != unused {
		t.nodes[t.nodes[newNode].larger].parent = newNode
	}
	t.nodes[oldNode].parent = unused
}

// deleteString removes position from the tree. The two-children case is
// handled without recursion: the in-order predecessor (descend once via
// smaller, then all the way via larger) has no larger child by
// construction, so unlinking it is always a leaf/one-child contraction.
func (t *tree) deleteString(position int) {
	if t.nodes[position].parent == unused {
		return
	}
	switch {
	case t.nodes[position].larger == unused:
		t.contractNode(position, t.nodes[position].smaller)
	case t.nodes[position].smaller == unused:
		t.contractNode(position, t.nodes[position].larger)
	default:
		successor := t.nodes[position].smaller
		for t.nodes[successor].larger != unused {
			successor = t.nodes[successor].larger
		}
		t.contractNode(successor, t.nodes[successor].smaller)
		t.replaceNode(position, successor)
	}
}

// addString inserts the lookAheadSize-byte string starting at stringPosition
// (read cyclically from the window) into the tree. An exact duplicate of an
// existing string replaces that node outright, matching the reference
// behavior of always keeping the most recent occurrence.
func (t *tree) addString(stringPosition int) {
	if t.nodes[treeRoot].larger == unused {
		t.nodes[treeRoot].larger = stringPosition
		t.nodes[stringPosition] = treeNode{parent: treeRoot, larger: unused, smaller: unused}
		return
	}

	testNode := t.nodes[treeRoot].larger
	for {
		var delta int
		for i := 0; i < lookAheadSize; i++ {
			delta = int(t.window[modWindow(stringPosition+i)]) - int(t.window[modWindow(testNode+i)])
			if delta != 0 {
				break
			}
		}
		if delta == 0 {
			t.replaceNode(testNode, stringPosition)
			return
		}
		var child *int
		if delta > 0 {
			child = &t.nodes[testNode].larger
		} else {
			child = &t.nodes[testNode].smaller
		}
		if *child == unused {
			*child = stringPosition
			t.nodes[stringPosition] = treeNode{parent: testNode, larger: unused, smaller: unused}
			return
		}
		testNode = *child
	}
}

// getMatchLength walks the tree looking for the longest match against the
// lookAheadSize-byte string starting at currentPosition, returning its
// length and the position of a node achieving it (the last one visited
// that set a new maximum, per the tie-break rule).
func (t *tree) getMatchLength(currentPosition int) (matchLength, matchPosition int) {
	testNode := t.nodes[treeRoot].larger
	for testNode != unused {
		var delta int
		var i int
		for i = 0; i < lookAheadSize; i++ {
			delta = int(t.window[modWindow(currentPosition+i)]) - int(t.window[modWindow(testNode+i)])
			if delta != 0 {
				break
			}
		}
		if i > matchLength {
			matchLength = i
			matchPosition = testNode
		}
		if delta == 0 {
			break
		}
		if delta > 0 {
			testNode = t.nodes[testNode].larger
		} else {
			testNode = t.nodes[testNode].smaller
		}
	}
	return matchLength, matchPosition
}

// compress runs the full LZSS encode loop over input, writing the coded
// bitstream to bw.
func compress(bw *bitio.Writer, input []byte) error {
	var t tree
	t.init()

	currentPosition := 0
	lookAheadBytes := 0
	for lookAheadBytes < lookAheadSize && lookAheadBytes < len(input) {
		t.window[currentPosition+lookAheadBytes] = input[lookAheadBytes]
		lookAheadBytes++
	}
	inPos := lookAheadBytes

	var matchLength, matchPosition int
	for lookAheadBytes > 0 {
		if matchLength >= lookAheadBytes {
			matchLength = lookAheadBytes - 1
		}

		var replaceCount int
		if matchLength <= breakEven {
			matchLength = 1
			replaceCount = 1
			if err := bw.WriteBit(0); err != nil {
				return err
			}
			if err := bw.WriteBits(uint64(t.window[currentPosition]), 8); err != nil {
				return err
			}
		} else {
			replaceCount = matchLength
			if err := bw.WriteBit(1); err != nil {
				return err
			}
			if err := bw.WriteBits(uint64(matchPosition), indexBits); err != nil {
				return err
			}
			if err := bw.WriteBits(uint64(matchLength), lengthBits); err != nil {
				return err
			}
		}

		for i := 0; i < replaceCount; i++ {
			overwritePos := modWindow(currentPosition + lookAheadSize)
			t.deleteString(overwritePos)
			if inPos < len(input) {
				t.window[overwritePos] = input[inPos]
				inPos++
			} else {
				lookAheadBytes--
			}
			t.addString(currentPosition)
			currentPosition = modWindow(currentPosition + 1)
		}
		if lookAheadBytes > 0 {
			matchLength, matchPosition = t.getMatchLength(currentPosition)
		}
	}

	if err := bw.WriteBit(1); err != nil {
		return err
	}
	return bw.WriteBits(endOfStream, indexBits+lengthBits)
}

// expand runs the full LZSS decode loop, reading bits from br and writing
// the decompressed bytes to out.
func expand(br *bitio.Reader, out *bytes.Buffer) error {
	var window [windowSize]byte
	currentPosition := 0

	for {
		bit, err := br.ReadBit()
		if err != nil {
			return truncated(err)
		}
		if bit == 0 {
			raw, err := br.ReadBits(8)
			if err != nil {
				return truncated(err)
			}
			c := byte(raw)
			out.WriteByte(c)
			window[currentPosition] = c
			currentPosition = modWindow(currentPosition + 1)
			continue
		}

		matchPosition, err := br.ReadBits(indexBits)
		if err != nil {
			return truncated(err)
		}
		matchLength, err := br.ReadBits(lengthBits)
		if err != nil {
			return truncated(err)
		}
		if matchLength == endOfStream {
			return nil
		}
		for i := 0; i < int(matchLength); i++ {
			c := window[modWindow(int(matchPosition)+i)]
			out.WriteByte(c)
			window[currentPosition] = c
			currentPosition = modWindow(currentPosition + 1)
		}
	}
}

func truncated(cause error) error {
	if cause == io.EOF {
		return errors.Errorf(errors.Corrupted, "truncated stream: missing end-of-stream match")
	}
	return cause
}

// Writer buffers everything written to it and runs the LZSS compress loop
// once, at Close, since the algorithm's sliding-window search is naturally
// expressed over the whole stream rather than incrementally per Write call.
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

// Close runs the LZSS encoder over everything written so far and flushes
// the result. It does not close the underlying io.Writer.
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
// eagerly on the first Read call (mirroring the Writer's whole-stream
// design) and served from an in-memory buffer thereafter.
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
