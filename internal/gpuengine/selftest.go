package gpuengine

import (
	"fmt"

	"github.com/vanity-tools/gitmine/internal/commitmsg"
	"github.com/vanity-tools/gitmine/internal/digest"
)

// SelfTest is testGPUsha1: it runs a single-worker, single-cell batch
// against the commit's own timestamps and checks that the device's SHA-1
// output matches the CPU's. It must pass before a search is trusted to run
// on this device.
func SelfTest(dev Device, template *commitmsg.Message) error {
	alloc := Allocator{
		AtimeStart: template.Atime(),
		CtimeStart: template.Ctime(),
		CtimeCount: 1,
		MaxCU:      dev.MaxComputeUnits(),
		Mode:       ALockstep,
	}
	prep := &Prep{Allocator: alloc}
	prep.SetNumWorkers(1)
	// Force the single-worker, single-cell shape the self-test needs,
	// overriding whatever SetNumWorkers derived.
	prep.Allocator.CtimeCount = 1

	if err := prep.Build(template); err != nil {
		return fmt.Errorf("gpuengine: self-test build: %w", err)
	}
	// Build derives Counts from the allocator's atime partition, which is
	// ctime-atime wide whenever the two differ (CLockstep). Force the
	// single-cell shape the self-test needs: one atime value, one ctime
	// value, so the reported SHA-1 is the template's own hash unmutated.
	prep.State[0].Counts = 1

	handle, err := dev.Enqueue(Batch{Fixed: prep.Fixed, State: prep.State, Buf: prep.Buf})
	if err != nil {
		return fmt.Errorf("gpuengine: self-test enqueue: %w", err)
	}
	result, err := dev.Wait(handle)
	if err != nil {
		return fmt.Errorf("gpuengine: self-test wait: %w", err)
	}
	if len(result.State) != 1 {
		return fmt.Errorf("gpuengine: self-test expected 1 worker state, got %d", len(result.State))
	}

	want := digest.Sha1Sum(template.Serialize())
	got := result.State[0].Sha1
	if got != want {
		return fmt.Errorf("gpuengine: self-test SHA-1 mismatch: device %x, cpu %x", got, want)
	}
	return nil
}
