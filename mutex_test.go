package atomics

import (
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMutex_LockUnlock(t *testing.T) {
	var m Mutex
	if m.isLocked() {
		t.Fatal("zero Mutex is locked")
	}
	m.Lock()
	if !m.isLocked() {
		t.Fatal("Mutex not locked after Lock")
	}
	if m.TryLock() {
		t.Fatal("TryLock succeeded on a held Mutex")
	}
	m.Unlock()
	if m.isLocked() {
		t.Fatal("Mutex locked after Unlock")
	}
}

func TestMutex_UnlockUnlockedPanics(t *testing.T) {
	var m Mutex
	require.PanicsWithValue(t, "atomics: unlock of unlocked Mutex", func() { m.Unlock() })
}

func TestMutex_Counter(t *testing.T) {
	// Repeated runs with randomized start times shake out lost updates.
	for run := range 5 {
		var m Mutex
		var counter int

		n := runtime.GOMAXPROCS(0) * 2
		const loops = 5000

		var g errgroup.Group
		for range n {
			g.Go(func() error {
				time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
				for range loops {
					m.Lock()
					counter++
					m.Unlock()
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		require.Equal(t, n*loops, counter, "run %d lost updates", run)
		require.False(t, m.isLocked())
	}
}

func TestMutex_ContendedWake(t *testing.T) {
	var m Mutex
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	// Give the waiter time to give up spinning and park.
	time.Sleep(50 * time.Millisecond)
	if s := m.state.Load(); s != mutexContended {
		t.Fatalf("state = %d, want contended (%d)", s, mutexContended)
	}

	m.Unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("parked waiter was not woken by Unlock")
	}
}

func TestMutexOf_Deref(t *testing.T) {
	m := NewMutexOf(123)
	g := m.Lock()
	require.Equal(t, 123, *g.Value())
	*g.Value() = 456
	g.Unlock()

	g = m.Lock()
	require.Equal(t, 456, *g.Value())
	g.Unlock()

	require.Panics(t, func() { g.Unlock() })
	require.Panics(t, func() { g.Value() })
}

func TestMutexOf_TryLock(t *testing.T) {
	m := NewMutexOf(0)
	g, ok := m.TryLock()
	require.True(t, ok)
	_, ok = m.TryLock()
	require.False(t, ok)
	g.Unlock()
}

func TestMutexOf_Ordering(t *testing.T) {
	for range 5 {
		m := NewMutexOf([]int{0})
		var last atomic.Int32

		var wg sync.WaitGroup
		wg.Add(2)
		worker := func(id int32, a, b int) {
			defer wg.Done()
			// Randomize which goroutine acquires the lock first.
			time.Sleep(time.Duration(rand.IntN(50)) * time.Millisecond)
			g := m.Lock()
			defer g.Unlock()
			last.Store(id)
			time.Sleep(10 * time.Millisecond)
			*g.Value() = append(*g.Value(), a)
			time.Sleep(10 * time.Millisecond)
			*g.Value() = append(*g.Value(), b)
		}
		go worker(1, 1, 2)
		go worker(2, 3, 4)
		wg.Wait()

		var want []int
		switch last.Load() {
		case 1:
			want = []int{0, 3, 4, 1, 2}
		case 2:
			want = []int{0, 1, 2, 3, 4}
		default:
			t.Fatal("no goroutine recorded itself")
		}
		m.With(func(v *[]int) {
			if !slices.Equal(*v, want) {
				t.Fatalf("got %v, want %v", *v, want)
			}
		})
	}
}

func BenchmarkMutex(b *testing.B) {
	var m Mutex
	var counter int
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Lock()
			counter++
			m.Unlock()
		}
	})
}

func BenchmarkSpinLock(b *testing.B) {
	var l SpinLock
	var counter int
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Lock()
			counter++
			l.Unlock()
		}
	})
}

func BenchmarkSyncMutex(b *testing.B) {
	var m sync.Mutex
	var counter int
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Lock()
			counter++
			m.Unlock()
		}
	})
}
