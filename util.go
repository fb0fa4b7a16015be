package atomics

import (
	"reflect"
	"runtime"
	_ "unsafe" // for linkname
)

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Dropper is implemented by values that release resources when their last
// owner tears them down: an Arc payload, or a one-shot message that was
// never received.
type Dropper interface {
	Drop()
}

// dropValue runs the payload's Drop method if it has one, then zeroes the
// slot so the collector can reclaim whatever it referenced. A pointer
// payload (T = *R) is dropped through R's method set; otherwise Drop may
// sit on T or *T.
func dropValue[T any](v *T) {
	if d, ok := any(*v).(Dropper); ok {
		if !isNilPointer(d) {
			d.Drop()
		}
	} else if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
	*v = *new(T)
}

// isNilPointer reports whether d wraps a nil pointer, which a pointer
// payload that was never set holds.
func isNilPointer(d Dropper) bool {
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// maxRefCount bounds Arc and Weak counts. Exceeding it aborts the process
// long before the counter could wrap and free a live allocation.
const maxRefCount = ^uintptr(0) / 2

// fatal terminates the process. A panic raised on a fresh goroutine cannot
// be recovered by the caller.
var fatal = func(msg string) {
	go panic("atomics: " + msg)
	select {}
}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

// delay backs off a busy-wait loop: active spinning while the runtime
// allows it, then yielding the processor. It never parks the goroutine.
func delay(spins *int) {
	if trySpin(spins) {
		return
	}
	*spins = 0
	runtime.Gosched()
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()
