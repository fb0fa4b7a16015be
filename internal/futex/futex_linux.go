//go:build linux && atomics_futex

package futex

import (
	"math"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128
)

// wait blocks the calling OS thread in the kernel, so every parked goroutine
// holds a thread for the duration.
func wait(addr *atomic.Uint32, expected uint32) {
	// EAGAIN (value changed) and EINTR are both ordinary returns here.
	_, _, _ = unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWait|futexPrivateFlag,
		uintptr(expected),
		0, 0, 0)
}

func wake(addr *atomic.Uint32, n int) int {
	if n < 0 {
		n = math.MaxInt32
	}
	woken, _, e := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWake|futexPrivateFlag,
		uintptr(n),
		0, 0, 0)
	if e != 0 {
		return 0
	}
	return int(woken)
}
