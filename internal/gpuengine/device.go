package gpuengine

import (
	"time"

	"github.com/vanity-tools/gitmine/internal/digest"
)

// FixedParams mirrors B2SHAConst: the parameters shared by every worker in
// one batch, computed once from the first worker's serialized length.
type FixedParams struct {
	TotalLength       int
	BlockCount        int
	BytesRemaining    int
	LastFullPadding   []byte // precomputed final-block bytes when length%64 != 0
	LastFullLen       uint64
	ZeroPaddingAndLen []byte // precomputed final-block bytes when length%64 == 0
}

// WorkerState mirrors B2SHAState: one worker's per-batch input and, after a
// batch completes, its output.
type WorkerState struct {
	CounterPos      int   // byte offset of the last digit of atime in Buf
	CtimePos        int   // byte offset of the last digit of ctime in Buf
	Counts          int64 // atime range width for this worker
	CtimeCount      int64 // ctime range width for this worker

	// Populated by the device after a batch completes.
	Sha1            [digest.SHA1Size]byte
	MatchLen        int
	MatchCount      int64
	MatchCtimeCount int64
}

// Batch is everything a Device needs to run one kernel dispatch: the fixed
// parameters, one WorkerState per worker, and the concatenated serialized
// 64-byte blocks for every worker (Buf mirrors the GPU-resident buf region).
type Batch struct {
	Fixed FixedParams
	State []WorkerState
	Buf   []byte
}

// BatchResult is what a Device hands back once a batch's readback event has
// fired: the (mutated) worker states plus event-profiling timings used by
// the auto-tuner.
type BatchResult struct {
	State      []WorkerState
	SubmitTime time.Duration
	ExecTime   time.Duration
}

// Handle identifies an in-flight batch previously returned by
// Device.Enqueue.
type Handle interface{}

// Device is the GPU backend: compile once, then enqueue and wait on
// successive batches. The pipeline enqueues the next batch before it waits
// on the previous one, so host preparation overlaps device execution only
// when Enqueue returns before the batch completes. The OpenCL backend's
// Enqueue runs the batch to completion before it returns, so with it the
// batches run one after another without overlap.
type Device interface {
	// MaxComputeUnits reports the device's compute-unit count, used by the
	// allocator's C_LOCKSTEP sizing formula.
	MaxComputeUnits() int
	// Enqueue submits a batch for execution and returns a handle to wait
	// on.
	Enqueue(b Batch) (Handle, error)
	// Wait blocks until the batch identified by h has completed and
	// returns its result.
	Wait(h Handle) (BatchResult, error)
	// Close releases all device resources.
	Close()
}
