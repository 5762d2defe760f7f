package gpuengine

import (
	"fmt"
	"testing"

	"github.com/vanity-tools/gitmine/internal/commitmsg"
	"github.com/vanity-tools/gitmine/internal/digest"
	"github.com/vanity-tools/gitmine/internal/match"
)

// fakeDevice implements Device entirely in Go, following the same
// increment-from-the-start kernel contract the real device uses, so the
// host-side reconstruction and CPU-verification logic in Prep/Pipeline can
// be tested without an actual OpenCL runtime.
type fakeDevice struct{}

func (fakeDevice) MaxComputeUnits() int { return 4 }

func (fakeDevice) Enqueue(b Batch) (Handle, error) {
	n := len(b.State)
	states := make([]WorkerState, n)
	nblocks := len(b.Buf) / n / blockSize

	for i, st := range b.State {
		scratch := append([]byte(nil), b.Buf[i*nblocks*blockSize:(i+1)*nblocks*blockSize]...)

		bestLen := -1
		var bestMatchCount, bestMatchCtimeCount int64

		for cstep := int64(0); cstep < st.CtimeCount; cstep++ {
			for astep := int64(0); astep < st.Counts; astep++ {
				if astep > 0 {
					incDigit(scratch, st.CounterPos)
				}
				msg := scratch[:b.Fixed.TotalLength]
				sha := digest.Sha1Sum(msg)
				b2 := digest.Blake2bSum(msg)
				r := match.Longest(sha[:], b2[:])
				if int(r.Length) > bestLen {
					bestLen = int(r.Length)
					bestMatchCount = st.Counts - astep
					bestMatchCtimeCount = st.CtimeCount - cstep
				}
			}
			if cstep+1 < st.CtimeCount {
				incDigit(scratch, st.CtimePos)
			}
		}

		finalSha := digest.Sha1Sum(scratch[:b.Fixed.TotalLength])
		states[i] = WorkerState{
			Sha1:            finalSha,
			MatchLen:        bestLen,
			MatchCount:      bestMatchCount,
			MatchCtimeCount: bestMatchCtimeCount,
		}
	}
	return states, nil
}

func (fakeDevice) Wait(h Handle) (BatchResult, error) {
	states := h.([]WorkerState)
	return BatchResult{State: states, SubmitTime: 0, ExecTime: 0}, nil
}

func (fakeDevice) Close() {}

func incDigit(buf []byte, pos int) {
	for i := pos; i >= 0; i-- {
		if buf[i] == '9' {
			buf[i] = '0'
			continue
		}
		buf[i]++
		return
	}
}

func s1Fixture(t *testing.T) *commitmsg.Message {
	t.Helper()
	body := "tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n" +
		"author subninja <subninja@example.com> 1539471984 -0800\n" +
		"committer subninja <subninja@example.com> 1541188269 -0800\n" +
		"\n" +
		"give me a hash\n"
	obj := []byte(fmt.Sprintf("commit %d\x00%s", len(body), body))
	m, err := commitmsg.Parse(obj)
	if err != nil {
		t.Fatalf("Parse fixture: %v", err)
	}
	return m
}

func TestPrepBuildProducesWholeBlocksPerWorker(t *testing.T) {
	commit := s1Fixture(t)
	alloc := Allocator{AtimeStart: commit.Atime(), CtimeStart: commit.Ctime() + 10, MaxCU: 4}
	alloc = alloc.SetNumWorkers(4)

	p := &Prep{Allocator: alloc}
	if err := p.Build(commit); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.State) != 4 {
		t.Fatalf("len(State) = %d, want 4", len(p.State))
	}
	nblocks := p.Fixed.BlockCount
	if len(p.Buf) != 4*nblocks*blockSize {
		t.Fatalf("len(Buf) = %d, want %d", len(p.Buf), 4*nblocks*blockSize)
	}
}

func TestPrepBuildRejectsDecimalWidthChange(t *testing.T) {
	commit := s1Fixture(t)
	// Force a huge atime range that spans a power-of-ten boundary so
	// worker 0's serialized length differs from worker 3's.
	alloc := Allocator{AtimeStart: 1, CtimeStart: 20_000_000_000, MaxCU: 4}
	alloc = alloc.SetNumWorkers(4)

	p := &Prep{Allocator: alloc}
	err := p.Build(commit)
	if err == nil {
		t.Fatal("expected Build to reject a batch spanning a decimal-width change")
	}
}

func TestSelfTestPassesAgainstFakeDevice(t *testing.T) {
	commit := s1Fixture(t)
	if err := SelfTest(fakeDevice{}, commit); err != nil {
		t.Fatalf("SelfTest: %v", err)
	}
}

func TestPipelineFindsAndVerifiesAMatch(t *testing.T) {
	commit := s1Fixture(t)
	dev := fakeDevice{}
	// A narrow atime_work keeps C_LOCKSTEP's per-batch grid small enough
	// for a fake, CPU-computed device to finish quickly.
	pipe := NewPipeline(dev, commit, commit.Ctime()-100, commit.Ctime(), 4, 3)

	win, _, err := pipe.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if win.MatchLen < 3 {
		t.Fatalf("MatchLen = %d, want >= 3", win.MatchLen)
	}

	verify := commit.Clone()
	verify.SetAtime(win.Atime)
	verify.SetCtime(win.Ctime)
	ser := verify.Serialize()
	sha := digest.Sha1Sum(ser)
	b2 := digest.Blake2bSum(ser)
	if sha != win.Sha1 || b2 != win.Blake2b {
		t.Fatal("winning digests do not match a fresh CPU rehash")
	}
}
