package ppmc

import "github.com/obi99/quanta/internal/errors"

const (
	endOfStream = 256
	escape      = 257 // numerically equal to symbolCount; a totals[] index and convertSymbolToInt's escape result
	symbolCount = 257 // 256 byte values + END_OF_STREAM
)

// symbolRange is the (low, high, scale) triple the arithmetic coder needs
// to narrow its range to one symbol's slice of the model's current
// cumulative distribution.
type symbolRange struct {
	low, high, scale uint16
}

// model is the order-N PPM predictor: a context trie plus the bookkeeping
// (cumulative totals, exclusion set, escape bookkeeping) needed to turn a
// byte into a symbolRange and back. It is built fresh per compress/expand
// invocation rather than living in package-level state, so two model
// instances never interfere with each other.
type model struct {
	tr       *trie
	maxDepth uint8

	basePtr       int // most recently inserted node (deepest context for the previous symbol)
	cursor        int // current context node, noNode at the order-(-1) fallback
	escapeContext int

	totals   [symbolCount + 2]uint16
	negOne   [symbolCount]uint8 // order-(-1) uniform fallback distribution
	excluded [symbolCount]uint8
}

func newModel(order int) *model {
	m := &model{tr: newTrie(), maxDepth: uint8(order + 1)}
	for i := range m.negOne {
		m.negOne[i] = 1
	}
	m.basePtr = 0
	m.cursor = 0
	m.escapeContext = 0
	return m
}

// rescaleContextCount halves (rounding up) the contextCount of every child
// of n, keeping counts from saturating a byte as the model sees more data.
func (m *model) rescaleContextCount(n int) {
	for c := m.tr.nodes[n].down; c != noNode; c = m.tr.nodes[c].next {
		m.tr.nodes[c].contextCount = uint8((int(m.tr.nodes[c].contextCount) + 1) / 2)
	}
}

// initializeTotalsToCurrentTable rebuilds the cumulative totals array from
// either the current context's children or, at the order-(-1) fallback,
// the uniform negOne table — in both cases zeroing out excluded symbols so
// they contribute nothing to the distribution.
func (m *model) initializeTotalsToCurrentTable() {
	m.totals[0] = 0
	if m.cursor != noNode {
		var counts [symbolCount]uint16
		for c := m.tr.nodes[m.cursor].down; c != noNode; c = m.tr.nodes[c].next {
			counts[m.tr.nodes[c].symbol] = uint16(m.tr.nodes[c].contextCount)
		}
		for i := 0; i < symbolCount; i++ {
			v := counts[i]
			if m.excluded[i] != 0 {
				v = 0
			}
			m.totals[i+1] = m.totals[i] + v
		}
		m.totals[escape+1] = m.totals[escape] + uint16(m.tr.nodes[m.cursor].noOfChildren)
	} else {
		for i := 0; i < symbolCount; i++ {
			v := uint16(m.negOne[i])
			if m.excluded[i] != 0 {
				v = 0
			}
			m.totals[i+1] = m.totals[i] + v
		}
		m.totals[escape+1] = m.totals[escape]
	}
}

func (m *model) fillCharactersToBeExcluded() {
	for c := m.tr.nodes[m.cursor].down; c != noNode; c = m.tr.nodes[c].next {
		m.excluded[m.tr.nodes[c].symbol] = 1
	}
}

func (m *model) clearExcluded() {
	for i := range m.excluded {
		m.excluded[i] = 0
	}
}

// convertIntToSymbol is the encode-side lookup: it narrows the cursor down
// to a context that actually predicts something, then either returns the
// range for c directly or, if c isn't among this context's children,
// returns ESCAPE's range, excludes this context's children from lower-order
// predictions, and drops the cursor one level for the next retry.
func (m *model) convertIntToSymbol(c int) (symbolRange, bool) {
	if m.escapeContext >= 0 {
		for m.cursor != noNode {
			if m.tr.nodes[m.cursor].noOfChildren > 0 {
				break
			}
			m.escapeContext--
			m.cursor = m.tr.nodes[m.cursor].vine
		}
	}

	found := m.cursor != noNode && m.tr.find(m.cursor, c) != noNode

	var s symbolRange
	var escaped bool
	if m.cursor == noNode || found {
		m.initializeTotalsToCurrentTable()
		m.clearExcluded()
		s.high = m.totals[c+1]
		s.low = m.totals[c]
		escaped = false
	} else {
		m.initializeTotalsToCurrentTable()
		m.fillCharactersToBeExcluded()
		s.high = m.totals[escape+1]
		s.low = m.totals[escape]
		m.cursor = m.tr.nodes[m.cursor].vine
		m.escapeContext--
		escaped = true
	}
	s.scale = m.totals[escape+1]
	return s, escaped
}

// getSymbolScale is the decode-side counterpart: it only needs the current
// scale before the arithmetic decoder can compute an index into it.
func (m *model) getSymbolScale() symbolRange {
	for m.cursor != noNode {
		if m.tr.nodes[m.cursor].noOfChildren > 0 {
			break
		}
		m.cursor = m.tr.nodes[m.cursor].vine
	}
	m.initializeTotalsToCurrentTable()
	return symbolRange{scale: m.totals[escape+1]}
}

// convertSymbolToInt maps a decoded cumulative index back to a symbol (or
// ESCAPE) by scanning totals from the top down, and fills in that symbol's
// low/high bounds.
func (m *model) convertSymbolToInt(index int, s *symbolRange) int {
	c := escape
	for int(m.totals[c]) > index {
		c--
	}
	s.high = m.totals[c+1]
	s.low = m.totals[c]
	if c == escape {
		if m.cursor == noNode {
			errors.Panicf(errors.Internal, "ppmc: decoder selected ESCAPE with no fallback context")
		}
		m.fillCharactersToBeExcluded()
		m.cursor = m.tr.nodes[m.cursor].vine
	} else {
		m.clearExcluded()
	}
	return c
}

// updateModel inserts c as a child of basePtr and walks the vine chain up
// to the root inserting it at every shallower context too, linking each
// newly touched node's vine pointer to the next insertion up the chain.
// If basePtr is already at maxDepth, the insertion starts one level
// shallower so the deepest tracked context never exceeds the model's order.
func (m *model) updateModel(c int) {
	recent := m.basePtr
	if m.tr.nodes[recent].depthInTrie == m.maxDepth {
		recent = m.tr.nodes[recent].vine
	}

	ptr := m.tr.insert(recent, c)
	if m.tr.nodes[ptr].contextCount == 255 {
		m.rescaleContextCount(recent)
	}
	m.basePtr = ptr
	vineUpdater := ptr

	for m.tr.nodes[recent].depthInTrie > 0 {
		recent = m.tr.nodes[recent].vine
		ptr = m.tr.insert(recent, c)
		if m.tr.nodes[ptr].contextCount == 255 {
			m.rescaleContextCount(recent)
		}
		m.tr.nodes[vineUpdater].vine = ptr
		vineUpdater = ptr
	}

	// recent is now the root; link c's order-1 node straight to it.
	ptr = m.tr.find(recent, c)
	m.tr.nodes[ptr].vine = recent

	m.cursor = m.basePtr
	m.escapeContext = int(m.tr.nodes[m.basePtr].depthInTrie)
}
