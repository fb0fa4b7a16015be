//go:build !linux || !atomics_futex

package futex

import "sync/atomic"

var lot = NewLot()

func wait(addr *atomic.Uint32, expected uint32) {
	lot.Wait(addr, expected)
}

func wake(addr *atomic.Uint32, n int) int {
	if n < 0 {
		return lot.WakeAll(addr)
	}
	woken := 0
	for range n {
		if !lot.WakeOne(addr) {
			break
		}
		woken++
	}
	return woken
}
