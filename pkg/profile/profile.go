// Package profile records CPU and heap profiles of a process.
package profile

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pkg/errors"
)

// Profile is an in-progress profile. CPU sampling begins when the profile is
// started and a heap snapshot is taken when it's stopped.
type Profile struct {
	// prefix is the output path prefix.
	prefix string
	// cpu is the CPU profile output.
	cpu *os.File
}

// Start begins profiling. Profiles are written to <prefix>_cpu.prof and
// <prefix>_heap.prof.
func Start(prefix string) (*Profile, error) {
	// Create the CPU profile output.
	cpu, err := os.Create(fmt.Sprintf("%s_cpu.prof", prefix))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create CPU profile")
	}

	// Begin CPU sampling.
	if err := pprof.StartCPUProfile(cpu); err != nil {
		cpu.Close()
		return nil, errors.Wrap(err, "unable to start CPU profile")
	}

	// Success.
	return &Profile{prefix: prefix, cpu: cpu}, nil
}

// Stop ends CPU sampling and writes a heap profile.
func (p *Profile) Stop() error {
	// Finish the CPU profile.
	pprof.StopCPUProfile()
	if err := p.cpu.Close(); err != nil {
		return errors.Wrap(err, "unable to close CPU profile")
	}

	// Collect garbage so that the heap profile reflects live allocations.
	runtime.GC()

	// Write the heap profile.
	heap, err := os.Create(fmt.Sprintf("%s_heap.prof", p.prefix))
	if err != nil {
		return errors.Wrap(err, "unable to create heap profile")
	}
	if err := pprof.WriteHeapProfile(heap); err != nil {
		heap.Close()
		return errors.Wrap(err, "unable to write heap profile")
	}
	return errors.Wrap(heap.Close(), "unable to close heap profile")
}
