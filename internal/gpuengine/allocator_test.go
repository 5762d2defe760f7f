package gpuengine

import "testing"

func TestSetNumWorkersChoosesCLockstepWhenAtimeWorkPositive(t *testing.T) {
	a := Allocator{AtimeStart: 100, CtimeStart: 200, MaxCU: 8}
	a = a.SetNumWorkers(4)
	if a.Mode != CLockstep {
		t.Fatalf("Mode = %v, want CLockstep", a.Mode)
	}
	numer, denom := float64(4*8*32), float64(100)
	wantEach := int64(numer / denom)
	if wantEach < 1 {
		wantEach = 1
	}
	if a.CtimeCount != wantEach {
		t.Fatalf("CtimeCount = %d, want %d", a.CtimeCount, wantEach)
	}
}

func TestSetNumWorkersChoosesALockstepWhenAtimeWorkZero(t *testing.T) {
	a := Allocator{AtimeStart: 500, CtimeStart: 500, MaxCU: 8}
	a = a.SetNumWorkers(4)
	if a.Mode != ALockstep {
		t.Fatalf("Mode = %v, want ALockstep", a.Mode)
	}
	if a.CtimeCount != 1024 {
		t.Fatalf("CtimeCount = %d, want 1024", a.CtimeCount)
	}
}

func TestCLockstepPartitionsAtimeAndSharesCtime(t *testing.T) {
	a := Allocator{AtimeStart: 0, CtimeStart: 100, MaxCU: 4}
	a = a.SetNumWorkers(4)

	if got, want := a.AFirst(0), int64(0); got != want {
		t.Fatalf("AFirst(0) = %d, want %d", got, want)
	}
	if got, want := a.AEnd(3), int64(100); got != want {
		t.Fatalf("AEnd(3) = %d, want %d", got, want)
	}
	for i := 0; i < 4; i++ {
		if a.CFirst(i) != 100 {
			t.Fatalf("worker %d CFirst = %d, want 100 (shared)", i, a.CFirst(i))
		}
		if a.CEnd(i) != 100+a.CtimeCount {
			t.Fatalf("worker %d CEnd = %d, want %d", i, a.CEnd(i), 100+a.CtimeCount)
		}
	}
	// Adjacent workers must tile the atime range without gaps or overlaps.
	for i := 0; i < 3; i++ {
		if a.AEnd(i) != a.AFirst(i+1) {
			t.Fatalf("worker %d AEnd (%d) != worker %d AFirst (%d)", i, a.AEnd(i), i+1, a.AFirst(i+1))
		}
	}
}

func TestALockstepPartitionsCtimeAndAlignsAtime(t *testing.T) {
	a := Allocator{AtimeStart: 1000, CtimeStart: 1000, MaxCU: 4}
	a = a.SetNumWorkers(4)

	for i := 0; i < 4; i++ {
		if a.AFirst(i) != 1000 {
			t.Fatalf("worker %d AFirst = %d, want 1000", i, a.AFirst(i))
		}
	}
	if a.CFirst(0) != 1000 {
		t.Fatalf("CFirst(0) = %d, want 1000", a.CFirst(0))
	}
	if a.CEnd(3) != 1000+1024 {
		t.Fatalf("CEnd(3) = %d, want %d", a.CEnd(3), 1000+1024)
	}
	for i := 0; i < 3; i++ {
		if a.CEnd(i) != a.CFirst(i+1) {
			t.Fatalf("worker %d CEnd (%d) != worker %d CFirst (%d)", i, a.CEnd(i), i+1, a.CFirst(i+1))
		}
	}
}

func TestMarkAllCtimeDoneAdvancesWindow(t *testing.T) {
	a := Allocator{AtimeStart: 0, CtimeStart: 100, MaxCU: 4}
	a = a.SetNumWorkers(4)
	before := a.CtimeStart
	count := a.CtimeCount
	a = a.MarkAllCtimeDone()
	if a.CtimeStart != before+count {
		t.Fatalf("CtimeStart = %d, want %d", a.CtimeStart, before+count)
	}
}

func TestWorkCount(t *testing.T) {
	a := Allocator{AtimeStart: 10, CtimeStart: 20, CtimeCount: 5}
	if got, want := a.WorkCount(), int64((20-10)*5); got != want {
		t.Fatalf("WorkCount() = %d, want %d", got, want)
	}
}
