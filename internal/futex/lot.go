package futex

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/atomics/internal/opt"
	"github.com/llxisdsh/pb"
)

// Lot is a portable parking lot: an address-keyed table of FIFO waiter
// queues. Each parked goroutine sleeps on its own runtime semaphore.
//
// The value check in Wait and the dequeue in WakeOne/WakeAll both run inside
// the map's per-key critical section, so a waker that stores a new value
// before waking can never slip between a waiter's check and its enqueue.
//
// Create one with NewLot.
type Lot struct {
	queues *pb.MapOf[uintptr, *waitQueue]
}

// NewLot returns an empty Lot. The table is built up front so concurrent
// first use never races on its lazy initialization.
func NewLot() *Lot {
	return &Lot{queues: pb.NewMapOf[uintptr, *waitQueue]()}
}

type waiter struct {
	sema opt.Sema
	next *waiter
}

// waitQueue is only touched from inside ProcessEntry for its key.
type waitQueue struct {
	head *waiter
	tail *waiter
}

var waiterPool = sync.Pool{
	New: func() any { return new(waiter) },
}

func (q *waitQueue) push(w *waiter) {
	if q.tail == nil {
		q.head = w
	} else {
		q.tail.next = w
	}
	q.tail = w
}

func (q *waitQueue) pop() *waiter {
	w := q.head
	if w == nil {
		return nil
	}
	q.head = w.next
	if q.head == nil {
		q.tail = nil
	}
	w.next = nil
	return w
}

// Wait parks the calling goroutine on addr if *addr == expected.
func (l *Lot) Wait(addr *atomic.Uint32, expected uint32) {
	key := uintptr(unsafe.Pointer(addr))
	w := waiterPool.Get().(*waiter)
	_, parked := l.queues.ProcessEntry(
		key,
		func(e *pb.EntryOf[uintptr, *waitQueue]) (*pb.EntryOf[uintptr, *waitQueue], *waitQueue, bool) {
			if addr.Load() != expected {
				return e, nil, false
			}
			if e != nil {
				e.Value.push(w)
				return e, e.Value, true
			}
			q := &waitQueue{}
			q.push(w)
			return &pb.EntryOf[uintptr, *waitQueue]{Key: key, Value: q}, q, true
		},
	)
	if parked {
		w.sema.Acquire()
	}
	waiterPool.Put(w)
}

// WakeOne wakes the longest-parked goroutine on addr.
// It reports whether a goroutine was woken.
func (l *Lot) WakeOne(addr *atomic.Uint32) bool {
	key := uintptr(unsafe.Pointer(addr))
	var w *waiter
	l.queues.ProcessEntry(
		key,
		func(e *pb.EntryOf[uintptr, *waitQueue]) (*pb.EntryOf[uintptr, *waitQueue], *waitQueue, bool) {
			if e == nil {
				return nil, nil, false
			}
			w = e.Value.pop()
			if e.Value.head == nil {
				return nil, nil, true
			}
			return e, e.Value, true
		},
	)
	if w == nil {
		return false
	}
	w.sema.Release()
	return true
}

// WakeAll wakes every goroutine parked on addr and returns how many.
func (l *Lot) WakeAll(addr *atomic.Uint32) int {
	key := uintptr(unsafe.Pointer(addr))
	var q *waitQueue
	l.queues.ProcessEntry(
		key,
		func(e *pb.EntryOf[uintptr, *waitQueue]) (*pb.EntryOf[uintptr, *waitQueue], *waitQueue, bool) {
			if e == nil {
				return nil, nil, false
			}
			q = e.Value
			return nil, nil, true
		},
	)
	if q == nil {
		return 0
	}
	// The queue has been unlinked from the table; nobody else can reach it.
	n := 0
	for w := q.pop(); w != nil; w = q.pop() {
		w.sema.Release()
		n++
	}
	return n
}

// Parked returns the number of goroutines currently parked on addr.
func (l *Lot) Parked(addr *atomic.Uint32) int {
	key := uintptr(unsafe.Pointer(addr))
	n := 0
	l.queues.ProcessEntry(
		key,
		func(e *pb.EntryOf[uintptr, *waitQueue]) (*pb.EntryOf[uintptr, *waitQueue], *waitQueue, bool) {
			if e == nil {
				return nil, nil, false
			}
			for w := e.Value.head; w != nil; w = w.next {
				n++
			}
			return e, e.Value, true
		},
	)
	return n
}
