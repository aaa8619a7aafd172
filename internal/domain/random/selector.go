// Package random selects one candidate from a list using a public,
// verifiable randomness source, so participants can audit that the outcome
// was not hand-picked.
//
// Selection uses rejection sampling over the beacon's bit stream: chunks of
// ceil(log2(n)) bits are consumed MSB-first and the first in-range value
// wins. Out-of-range chunks are discarded rather than reduced modulo n,
// which would bias low indices.
package random

import (
	"math/bits"
)

// Pick deterministically selects a candidate given the randomness bytes of
// a beacon round. The same (candidates, randomness) pair always yields the
// same choice. It fails with ErrExhausted when the stream runs out of bits
// before an in-range chunk appears; callers must escalate rather than
// default to index zero.
func Pick[T any](candidates []T, randomness []byte) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	n := uint(len(candidates))
	bitsNeeded := bits.Len(n - 1) // ceil(log2(n)) for n >= 2

	stream := bitReader{data: randomness}
	for {
		chunk, ok := stream.take(bitsNeeded)
		if !ok {
			return zero, ErrExhausted
		}
		if chunk < n {
			return candidates[chunk], nil
		}
	}
}

// bitReader consumes a byte slice as an MSB-first bit stream.
type bitReader struct {
	data []byte
	pos  int // bits consumed so far
}

// take reads the next width bits as an unsigned integer. It reports false
// once fewer than width bits remain.
func (r *bitReader) take(width int) (uint, bool) {
	if r.pos+width > len(r.data)*8 {
		return 0, false
	}
	var v uint
	for i := 0; i < width; i++ {
		byteIdx := r.pos / 8
		bitIdx := 7 - r.pos%8
		v = v<<1 | uint(r.data[byteIdx]>>bitIdx&1)
		r.pos++
	}
	return v, true
}
