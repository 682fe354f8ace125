package ppmc

import "github.com/obi99/quanta/bitio"

// The arithmetic coder narrows a 16-bit [low, high] range to the slice a
// symbolRange describes, emitting bits as the top bit of the range
// settles. When low and high converge toward the middle without yet
// agreeing on a top bit (low's bit 14 set, high's clear), it defers that
// decision by flipping bit 14 of each and counting the deferral in
// underflow so the eventual top bit can be replayed with its complement.
const (
	codeBits = 16
	topValue = 1<<codeBits - 1 // 0xFFFF
	bit15    = 1 << 15         // 0x8000
	bit14    = 1 << 14         // 0x4000
)

type arithEncoder struct {
	low, high uint32
	underflow int
}

func newArithEncoder() *arithEncoder {
	return &arithEncoder{low: 0, high: topValue}
}

// encode narrows [low, high] to s's slice of [0, s.scale) and renormalizes,
// emitting bits to bw as the range's top bit settles.
func (e *arithEncoder) encode(bw *bitio.Writer, s symbolRange) error {
	r := e.high - e.low + 1
	e.high = (e.low + uint32(uint64(r)*uint64(s.high)/uint64(s.scale)) - 1) & topValue
	e.low = (e.low + uint32(uint64(r)*uint64(s.low)/uint64(s.scale))) & topValue

	for {
		switch {
		case (e.high & bit15) == (e.low & bit15):
			if err := e.emitBitPlusUnderflow(bw, e.high&bit15 != 0); err != nil {
				return err
			}
		case e.low&bit14 != 0 && e.high&bit14 == 0:
			e.underflow++
			e.high |= bit14
			e.low &^= bit14
		default:
			return nil
		}
		e.low = (e.low << 1) & topValue
		e.high = ((e.high << 1) | 1) & topValue
	}
}

func (e *arithEncoder) emitBitPlusUnderflow(bw *bitio.Writer, high bool) error {
	bit, opposite := uint(0), uint(1)
	if high {
		bit, opposite = 1, 0
	}
	if err := bw.WriteBit(bit); err != nil {
		return err
	}
	for ; e.underflow > 0; e.underflow-- {
		if err := bw.WriteBit(opposite); err != nil {
			return err
		}
	}
	return nil
}

// flush drains the coder's remaining state so the decoder's initial
// 16-bit window can settle unambiguously, per spec §4.7: emit high's top
// bit plus one deferred complement, then 16 zero bits.
func (e *arithEncoder) flush(bw *bitio.Writer) error {
	e.underflow++
	if err := e.emitBitPlusUnderflow(bw, e.high&bit15 != 0); err != nil {
		return err
	}
	return bw.WriteBits(0, codeBits)
}

type arithDecoder struct {
	low, high, code uint32
}

func newArithDecoder(br *bitio.Reader) (*arithDecoder, error) {
	code, err := br.ReadBits(codeBits)
	if err != nil {
		return nil, err
	}
	return &arithDecoder{low: 0, high: topValue, code: uint32(code)}, nil
}

// scale returns the cumulative index the model should map back to a
// symbol, given the model's current total scale.
func (d *arithDecoder) scale(s symbolRange) int {
	r := uint64(d.high - d.low + 1)
	idx := (uint64(d.code-d.low+1)*uint64(s.scale) - 1) / r
	return int(idx)
}

// remove narrows [low, high] to s's slice (selected via scale's result) and
// renormalizes, reading a fresh bit from br per shift to keep code aligned.
func (d *arithDecoder) remove(br *bitio.Reader, s symbolRange) error {
	r := d.high - d.low + 1
	d.high = (d.low + uint32(uint64(r)*uint64(s.high)/uint64(s.scale)) - 1) & topValue
	d.low = (d.low + uint32(uint64(r)*uint64(s.low)/uint64(s.scale))) & topValue

	for {
		switch {
		case (d.high & bit15) == (d.low & bit15):
			// top bits already agree; nothing to emit on the decode side
		case d.low&bit14 != 0 && d.high&bit14 == 0:
			d.code ^= bit14
			d.high |= bit14
			d.low &^= bit14
		default:
			return nil
		}
		d.low = (d.low << 1) & topValue
		d.high = ((d.high << 1) | 1) & topValue
		bit, err := br.ReadBit()
		if err != nil {
			return err
		}
		d.code = ((d.code << 1) | uint32(bit)) & topValue
	}
}
