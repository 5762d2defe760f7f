// Package gpuengine implements the GPU-backed search: a pure work
// allocator, a host-side batch preparer, a double-buffered auto-tuning
// pipeline, and a device backend (OpenCL via cgo, or a stub when cgo is
// unavailable).
package gpuengine

// Mode selects how the WorkAllocator splits work across GPU workers.
type Mode int

const (
	// CLockstep splits the atime range across workers; every worker shares
	// the same ctime window. Used while the atime range is non-empty
	// (ctime_start > atime_start).
	CLockstep Mode = iota
	// ALockstep splits the ctime range across workers once atime has
	// caught up with ctime (the atime window has collapsed to zero).
	ALockstep
)

// Allocator maps a batch's shape (num_workers, atime_start, ctime_start,
// ctime_count, mode) to per-worker (aFirst, aEnd, cFirst, cEnd) intervals.
// Every accessor is a pure function of this state, so the same Allocator
// value can be reused to describe many successive batches.
type Allocator struct {
	NumWorkers int
	AtimeStart int64
	CtimeStart int64
	CtimeCount int64
	MaxCU      int
	Mode       Mode
}

// atimeWork is ctime_start - atime_start: the width of the still-unsearched
// atime range at the current ctime_start.
func (a Allocator) atimeWork() int64 {
	return a.CtimeStart - a.AtimeStart
}

// SetNumWorkers chooses a mode and a ctime_count for n workers, following
// the sizing formulas: C_LOCKSTEP bounds each worker's estimated workload
// to a small multiple of the device's compute units; A_LOCKSTEP fixes a
// 1024-wide ctime slice once atime has caught up to ctime.
func (a Allocator) SetNumWorkers(n int) Allocator {
	a.NumWorkers = n
	work := a.atimeWork()
	if work > 0 {
		a.Mode = CLockstep
		eachWork := float64(n*a.MaxCU*32) / float64(work)
		ctimeCount := int64(eachWork)
		if ctimeCount < 1 {
			ctimeCount = 1
		}
		a.CtimeCount = ctimeCount
		return a
	}
	a.Mode = ALockstep
	a.CtimeCount = 1024
	return a
}

// AFirst is the first atime value assigned to worker i.
func (a Allocator) AFirst(i int) int64 {
	switch a.Mode {
	case CLockstep:
		return a.AtimeStart + (int64(i)*a.atimeWork())/int64(a.NumWorkers)
	default: // ALockstep
		return a.AtimeStart
	}
}

// AEnd is one past the last atime value assigned to worker i.
func (a Allocator) AEnd(i int) int64 {
	switch a.Mode {
	case CLockstep:
		return a.AtimeStart + (int64(i+1)*a.atimeWork())/int64(a.NumWorkers)
	default: // ALockstep
		lhs := a.AtimeStart + a.atimeWork() - 1
		cFirst := a.CFirst(i)
		if cFirst > lhs {
			return cFirst + 1
		}
		return lhs + 1
	}
}

// CFirst is the first ctime value assigned to worker i.
func (a Allocator) CFirst(i int) int64 {
	switch a.Mode {
	case CLockstep:
		return a.CtimeStart
	default: // ALockstep
		return a.CtimeStart + (int64(i)*a.CtimeCount)/int64(a.NumWorkers)
	}
}

// CEnd is one past the last ctime value assigned to worker i.
func (a Allocator) CEnd(i int) int64 {
	switch a.Mode {
	case CLockstep:
		return a.CtimeStart + a.CtimeCount
	default: // ALockstep
		return a.CtimeStart + (int64(i+1)*a.CtimeCount)/int64(a.NumWorkers)
	}
}

// MarkAllCtimeDone advances the batch's ctime window past the range every
// worker just finished, ready for the next batch.
func (a Allocator) MarkAllCtimeDone() Allocator {
	a.CtimeStart += a.CtimeCount
	return a
}

// WorkCount is the total number of (atime, ctime) grid cells this batch
// shape covers.
func (a Allocator) WorkCount() int64 {
	return a.atimeWork() * a.CtimeCount
}
