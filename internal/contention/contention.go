// Package contention times atomic loads on a word while another goroutine
// generates a particular kind of cache traffic around it.
//
// Each probe runs loops loads and reports the elapsed time. The numbers are
// only meaningful relative to each other on the same machine: a plain Load
// is the baseline, and the other probes show what sharing the line costs.
package contention

import (
	"sync/atomic"
	"time"

	"github.com/llxisdsh/atomics/internal/opt"
)

// Result is one probe's timing.
type Result struct {
	Name    string
	Elapsed time.Duration
}

// sink keeps loaded values observable so the loops are never dead code.
var sink atomic.Uint64

// Load times loads with no interference.
func Load(loops int) time.Duration {
	var a atomic.Uint64
	return timeLoads(&a, loops)
}

// LoadWhileLoading times loads while another goroutine loads the same word.
// Shared reads keep the line in every cache, so this should match Load.
func LoadWhileLoading(loops int) time.Duration {
	var a atomic.Uint64
	stop := interfere(func() { sink.Store(a.Load()) })
	defer stop()
	return timeLoads(&a, loops)
}

// LoadWhileStoring times loads while another goroutine stores to the same
// word, bouncing the line between cores.
func LoadWhileStoring(loops int) time.Duration {
	var a atomic.Uint64
	stop := interfere(func() { a.Store(0) })
	defer stop()
	return timeLoads(&a, loops)
}

// LoadWhileFailingCAS times loads while another goroutine runs a
// compare-and-swap that never succeeds. A failed CAS still takes the line
// exclusively on most hardware.
func LoadWhileFailingCAS(loops int) time.Duration {
	var a atomic.Uint64
	stop := interfere(func() { a.CompareAndSwap(10, 20) })
	defer stop()
	return timeLoads(&a, loops)
}

// SharedCacheLine times loads of the middle word of three adjacent words
// while another goroutine stores to its neighbours (false sharing).
func SharedCacheLine(loops int) time.Duration {
	var b [3]atomic.Uint64
	stop := interfere(func() {
		b[0].Store(0)
		b[2].Store(0)
	})
	defer stop()
	return timeLoads(&b[1], loops)
}

// PaddedCacheLine is SharedCacheLine with every word on its own cache line.
func PaddedCacheLine(loops int) time.Duration {
	var c [3]opt.PaddedUint64_
	stop := interfere(func() {
		c[0].Store(0)
		c[2].Store(0)
	})
	defer stop()
	return timeLoads(&c[1].Uint64, loops)
}

// Run executes every probe in order.
func Run(loops int) []Result {
	probes := []struct {
		name string
		fn   func(int) time.Duration
	}{
		{"load", Load},
		{"load_while_loading", LoadWhileLoading},
		{"load_while_storing", LoadWhileStoring},
		{"load_while_failing_cas", LoadWhileFailingCAS},
		{"shared_cache_line", SharedCacheLine},
		{"padded_cache_line", PaddedCacheLine},
	}
	results := make([]Result, 0, len(probes))
	for _, p := range probes {
		results = append(results, Result{Name: p.name, Elapsed: p.fn(loops)})
	}
	return results
}

func timeLoads(a *atomic.Uint64, loops int) time.Duration {
	var sum uint64
	start := time.Now()
	for range loops {
		sum += a.Load()
	}
	elapsed := time.Since(start)
	sink.Add(sum)
	return elapsed
}

// interfere runs op in a loop on a new goroutine until the returned stop
// function is called. stop waits for the goroutine to exit.
func interfere(op func()) (stop func()) {
	var quit atomic.Bool
	done := make(chan struct{})
	started := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		for !quit.Load() {
			op()
		}
	}()
	<-started
	return func() {
		quit.Store(true)
		<-done
	}
}
