package gpuengine

import (
	"fmt"

	"github.com/vanity-tools/gitmine/internal/commitmsg"
	"github.com/vanity-tools/gitmine/internal/digest"
	"github.com/vanity-tools/gitmine/internal/match"
)

// MinMatchLen is the shortest match length the GPU pipeline treats as a
// candidate worth CPU-verifying at all. It is separate from the terminateAt
// length that ends the search; a candidate must reach both before the
// pipeline returns it.
const MinMatchLen = 4

// WinningState is a validated match: a candidate the kernel reported whose
// SHA-1/BLAKE2b overlap was independently reproduced on the CPU.
type WinningState struct {
	Atime, Ctime int64
	MatchLen     int
	Sha1         [digest.SHA1Size]byte
	Blake2b      [digest.Blake2bSize]byte
}

// Stats summarizes one pipeline iteration for the reporter.
type Stats struct {
	NumWorkers   int
	CtimeStart   int64
	CtimeCount   int64
	WorkRate     float64 // work items per second, from device event profiling
	FalsePositives int
}

// Pipeline drives two ping-ponging Preps against a Device, auto-tuning
// NumWorkers from device event-profiling throughput until a validated
// candidate is found.
type Pipeline struct {
	dev         Device
	template    *commitmsg.Message
	terminateAt int

	prep      [2]*Prep
	prepI     int
	numWorkers int

	wantValidTime bool
	lastRate      [2]float64
	haveRate      [2]bool

	falsePositives int
}

// NewPipeline constructs a pipeline against dev for the given commit
// template, starting at atimeStart/ctimeStart with an initial worker count.
func NewPipeline(dev Device, template *commitmsg.Message, atimeStart, ctimeStart int64, initialWorkers int, terminateAt int) *Pipeline {
	alloc := Allocator{
		AtimeStart: atimeStart,
		CtimeStart: ctimeStart,
		MaxCU:      dev.MaxComputeUnits(),
	}.SetNumWorkers(initialWorkers)

	p := &Pipeline{
		dev:           dev,
		template:      template,
		terminateAt:   terminateAt,
		numWorkers:    initialWorkers,
		wantValidTime: true,
	}
	p.prep[0] = &Prep{Allocator: alloc}
	p.prep[1] = &Prep{Allocator: alloc}
	p.prep[0].AllocState(initialWorkers)
	p.prep[1].AllocState(initialWorkers)
	return p
}

// Run executes batches until one validated match is found (or the device
// reports an error), returning the winning state and cumulative stats.
func (p *Pipeline) Run() (WinningState, Stats, error) {
	the := p.prep[p.prepI]
	if err := the.Build(p.template); err != nil {
		return WinningState{}, Stats{}, fmt.Errorf("gpuengine: initial build: %w", err)
	}
	handle, err := p.dev.Enqueue(Batch{Fixed: the.Fixed, State: the.State, Buf: the.Buf})
	if err != nil {
		return WinningState{}, Stats{}, fmt.Errorf("gpuengine: initial enqueue: %w", err)
	}
	pending := handle

	for {
		sibling := p.prep[1-p.prepI]

		if p.wantValidTime && p.haveRate[0] && p.haveRate[1] {
			p.retune()
		}

		sibling.Allocator = the.Allocator.MarkAllCtimeDone()
		sibling.SetNumWorkers(p.numWorkers)
		if err := sibling.Build(p.template); err != nil {
			return WinningState{}, Stats{}, fmt.Errorf("gpuengine: build: %w", err)
		}
		siblingHandle, err := p.dev.Enqueue(Batch{Fixed: sibling.Fixed, State: sibling.State, Buf: sibling.Buf})
		if err != nil {
			return WinningState{}, Stats{}, fmt.Errorf("gpuengine: enqueue: %w", err)
		}

		result, err := p.dev.Wait(pending)
		if err != nil {
			return WinningState{}, Stats{}, fmt.Errorf("gpuengine: wait: %w", err)
		}
		p.recordRate(p.prepI, result, the)

		if win, ok := p.scanForWinner(the, result.State); ok {
			return win, p.stats(), nil
		}

		the = sibling
		pending = siblingHandle
		p.prepI = 1 - p.prepI
	}
}

// retune adjusts numWorkers by comparing the two Preps' last observed work
// rates, per the auto-tuner's step/back-off rule.
func (p *Pipeline) retune() {
	rateThe := p.lastRate[p.prepI]
	rateSibling := p.lastRate[1-p.prepI]
	if rateThe >= rateSibling {
		p.numWorkers *= 2
	} else {
		p.numWorkers /= 2
		if p.numWorkers < 1 {
			p.numWorkers = 1
		}
		p.wantValidTime = false
	}
}

func (p *Pipeline) recordRate(idx int, result BatchResult, prep *Prep) {
	if result.SubmitTime <= 0 {
		return
	}
	work := float64(prep.Allocator.WorkCount())
	p.lastRate[idx] = work / result.SubmitTime.Seconds()
	p.haveRate[idx] = true
}

// scanForWinner reconstructs and CPU-verifies every worker's candidate.
// The kernel iterates by incrementing decimals up from the start of the
// range (aFirst/cFirst), so a candidate found with matchCount cells left to
// go was scored at aEnd(i) - matchCount, and similarly its winning ctime is
// cEnd(0) - matchCtimeCount (every worker in one batch shares the same
// ctime window origin under C_LOCKSTEP; under A_LOCKSTEP each worker tracks
// its own ctime slice, so cEnd(i) is used there instead).
func (p *Pipeline) scanForWinner(prep *Prep, states []WorkerState) (WinningState, bool) {
	for i, st := range states {
		if st.MatchLen < MinMatchLen {
			continue
		}
		atime := prep.Allocator.AEnd(i) - st.MatchCount
		var ctime int64
		if prep.Allocator.Mode == CLockstep {
			ctime = prep.Allocator.CEnd(0) - st.MatchCtimeCount
		} else {
			ctime = prep.Allocator.CEnd(i) - st.MatchCtimeCount
		}

		verify := p.template.Clone()
		verify.SetAtime(atime)
		verify.SetCtime(ctime)
		ser := verify.Serialize()
		sha := digest.Sha1Sum(ser)
		b2 := digest.Blake2bSum(ser)

		prefixLen := st.MatchLen
		if prefixLen > len(sha) {
			prefixLen = len(sha)
		}
		result := match.Longest(sha[:prefixLen], b2[:])
		if int(result.Length) < prefixLen {
			p.falsePositives++
			continue
		}

		if int(result.Length) >= p.terminateAt {
			return WinningState{Atime: atime, Ctime: ctime, MatchLen: int(result.Length), Sha1: sha, Blake2b: b2}, true
		}
	}
	return WinningState{}, false
}

func (p *Pipeline) stats() Stats {
	the := p.prep[p.prepI]
	return Stats{
		NumWorkers:     p.numWorkers,
		CtimeStart:     the.Allocator.CtimeStart,
		CtimeCount:     the.Allocator.CtimeCount,
		WorkRate:       p.lastRate[p.prepI],
		FalsePositives: p.falsePositives,
	}
}
