package gpuengine

import (
	"fmt"

	"github.com/vanity-tools/gitmine/internal/commitmsg"
)

const blockSize = 64 // SHA-1 block size in bytes

// Prep is a batch preparer: it owns the host-side shadow of one Prep's
// device buffers (fixed, state, buf) and knows how to (re)build them from a
// commit template and an Allocator. Two Preps ping-pong so the host can
// build the next batch while the device executes the current one.
type Prep struct {
	Allocator Allocator
	MaxWorkers int

	// current batch, filled in by Build.
	Fixed FixedParams
	State []WorkerState
	Buf   []byte
}

// AllocState records maxWorkers as the Prep's worker capacity; MaxWorkers
// only ever grows. It allocates nothing: Build allocates State and Buf
// afresh on every call, so host buffers are not reused across batches.
func (p *Prep) AllocState(maxWorkers int) {
	if maxWorkers > p.MaxWorkers {
		p.MaxWorkers = maxWorkers
	}
}

// SetNumWorkers updates the allocator's worker count and mode.
func (p *Prep) SetNumWorkers(n int) {
	p.Allocator = p.Allocator.SetNumWorkers(n)
}

// Build fills Fixed, State, and Buf for the allocator's current shape,
// using template as scratch (template is never mutated across Builds — a
// fresh clone is taken for each worker).
func (p *Prep) Build(template *commitmsg.Message) error {
	n := p.Allocator.NumWorkers
	if n == 0 {
		return fmt.Errorf("gpuengine: Build called with zero workers")
	}

	state := make([]WorkerState, n)
	var buf []byte
	var fixed FixedParams
	wantLength := -1

	for i := 0; i < n; i++ {
		noodle := template.Clone()
		noodle.SetAtime(p.Allocator.AFirst(i))
		noodle.SetCtime(p.Allocator.CFirst(i))

		ser := noodle.Serialize()
		if wantLength < 0 {
			wantLength = len(ser)
			fixed = buildFixedParams(ser)
		} else if len(ser) != wantLength {
			return fmt.Errorf("gpuengine: worker %d serialized to %d bytes, want %d (decimal width changed mid-batch)", i, len(ser), wantLength)
		}

		state[i] = WorkerState{
			CounterPos: noodle.AtimeDigitsEnd(),
			CtimePos:   noodle.CtimeDigitsEnd(),
			Counts:     p.Allocator.AEnd(i) - p.Allocator.AFirst(i),
			CtimeCount: p.Allocator.CEnd(i) - p.Allocator.CFirst(i),
		}
		buf = append(buf, padToBlocks(ser)...)
	}

	p.Fixed = fixed
	p.State = state
	p.Buf = buf
	return nil
}

// padToBlocks pads ser with the standard SHA-1 Merge-Damgard padding
// (0x80, zeros, 64-bit big-endian bit length) up to a whole number of
// 64-byte blocks, so the device can treat Buf as a flat array of blocks.
func padToBlocks(ser []byte) []byte {
	bitLen := uint64(len(ser)) * 8
	padded := append([]byte(nil), ser...)
	padded = append(padded, 0x80)
	for len(padded)%blockSize != 56 {
		padded = append(padded, 0)
	}
	for i := 7; i >= 0; i-- {
		padded = append(padded, byte(bitLen>>(uint(i)*8)))
	}
	return padded
}

// buildFixedParams computes the batch-wide constants from the first
// worker's serialized length: total length, block count, and the padded
// final block (LastFullPadding when the length is not a multiple of 64,
// ZeroPaddingAndLen when it is). The OpenCL backend passes only the total
// length, and a block count derived from Buf, to its kernel.
func buildFixedParams(ser []byte) FixedParams {
	length := len(ser)
	blockCount := (length + 9 + blockSize - 1) / blockSize // +9 for 0x80 and 8-byte length
	remainder := length % blockSize

	padded := padToBlocks(ser)
	lastBlock := padded[len(padded)-blockSize:]

	fixed := FixedParams{
		TotalLength:    length,
		BlockCount:     blockCount,
		BytesRemaining: remainder,
	}
	if remainder != 0 {
		fixed.LastFullPadding = append([]byte(nil), lastBlock...)
		fixed.LastFullLen = uint64(length) * 8
	} else {
		fixed.ZeroPaddingAndLen = append([]byte(nil), lastBlock...)
	}
	return fixed
}
