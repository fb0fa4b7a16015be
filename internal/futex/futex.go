// Package futex provides an address-keyed wait/wake facility.
//
// A futex does not change the watched word, it only reads it before parking
// to prevent lost wake-ups: Wait blocks only if the word still holds the
// expected value at the moment the wait is registered. Wait may return
// spuriously, so callers always re-check their condition in a loop.
//
// Wait and Wake imply no memory ordering of their own. Callers publish with
// an atomic store before Wake and observe with an atomic load after Wait.
//
// The watched word must stay at a fixed address while it is in use. Any
// variable shared between goroutines is heap allocated, so this holds for
// every word reachable from more than one goroutine.
//
// Goroutines park on runtime semaphores through a process-wide Lot, so a
// parked goroutine holds no OS thread. On Linux, building with the
// atomics_futex tag parks them in the kernel with futex(2) instead.
package futex

import "sync/atomic"

// Wait blocks the calling goroutine while *addr == expected.
func Wait(addr *atomic.Uint32, expected uint32) {
	wait(addr, expected)
}

// WakeOne wakes at most one goroutine blocked in Wait on addr.
// It returns the number of goroutines woken.
func WakeOne(addr *atomic.Uint32) int {
	return wake(addr, 1)
}

// WakeAll wakes every goroutine blocked in Wait on addr.
// It returns the number of goroutines woken.
func WakeAll(addr *atomic.Uint32) int {
	return wake(addr, -1)
}
