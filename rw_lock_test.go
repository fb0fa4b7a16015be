package atomics

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llxisdsh/atomics/internal/opt"
	"github.com/stretchr/testify/require"
)

// slack widens timing bounds under the race detector.
func slack(d time.Duration) time.Duration {
	if opt.Race_ {
		return d * 4
	}
	return d
}

func TestRWLock_Basic(t *testing.T) {
	var a int
	var rw RWLock
	rw.Lock()
	a = 1
	rw.Unlock()
	rw.RLock()
	_ = a
	rw.RUnlock()

	if !rw.TryLock() {
		t.Fatal("TryLock failed on a free lock")
	}
	if rw.TryLock() {
		t.Fatal("TryLock succeeded on a write-locked lock")
	}
	rw.Unlock()
	if rw.state.Load() != rwUnlocked || rw.readers.Load() != 0 {
		t.Fatalf("lock not reset: state=%d readers=%d", rw.state.Load(), rw.readers.Load())
	}
}

func TestRWLock_MisusePanics(t *testing.T) {
	var rw RWLock
	require.Panics(t, func() { rw.Unlock() })

	var rw2 RWLock
	require.Panics(t, func() { rw2.RUnlock() })
}

func TestRWLock_ReadersAndWriters(t *testing.T) {
	var rw RWLock
	var readers int32
	var writers int32

	const loops = 1000
	readerN := runtime.GOMAXPROCS(0)
	writerN := 2

	var wg sync.WaitGroup
	wg.Add(readerN + writerN)

	for range readerN {
		go func() {
			defer wg.Done()
			for range loops {
				rw.RLock()
				n := atomic.AddInt32(&readers, 1)
				if atomic.LoadInt32(&writers) != 0 {
					t.Errorf("reader observed active writer")
					rw.RUnlock()
					return
				}
				if n <= 0 {
					t.Errorf("invalid reader count")
					rw.RUnlock()
					return
				}
				atomic.AddInt32(&readers, -1)
				rw.RUnlock()
			}
		}()
	}

	for range writerN {
		go func() {
			defer wg.Done()
			for range loops {
				rw.Lock()
				if atomic.AddInt32(&writers, 1) != 1 {
					t.Errorf("multiple writers active")
					rw.Unlock()
					return
				}
				if atomic.LoadInt32(&readers) != 0 {
					t.Errorf("writer observed active readers")
					rw.Unlock()
					return
				}
				atomic.AddInt32(&writers, -1)
				rw.Unlock()
			}
		}()
	}

	wg.Wait()
}

func TestRWLock_WritersOnly(t *testing.T) {
	// Two writers and no readers: the unlock must still wake the parked
	// writer.
	var rw RWLock
	var counter int
	const loops = 2000

	var wg sync.WaitGroup
	wg.Add(4)
	for range 4 {
		go func() {
			defer wg.Done()
			for range loops {
				rw.Lock()
				counter++
				rw.Unlock()
			}
		}()
	}

	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("writers deadlocked")
	}
	require.Equal(t, 4*loops, counter)
}

func TestRWLock_MultipleReadersDoNotSerialize(t *testing.T) {
	lock := NewRWLockOf(0)
	const hold = 300 * time.Millisecond

	elapsed := make(chan time.Duration, 2)
	for range 2 {
		go func() {
			start := time.Now()
			g := lock.RLock()
			time.Sleep(hold)
			g.Unlock()
			elapsed <- time.Since(start)
		}()
	}

	for range 2 {
		if d := <-elapsed; d > hold+slack(150*time.Millisecond) {
			t.Fatalf("reader took %v; readers serialized", d)
		}
	}
}

func TestRWLock_ReadersWaitForWriter(t *testing.T) {
	lock := NewRWLockOf(0)
	const hold = 300 * time.Millisecond

	writer := lock.Lock()
	start := time.Now()
	elapsed := make(chan time.Duration, 2)
	for range 2 {
		go func() {
			g := lock.RLock()
			g.Unlock()
			elapsed <- time.Since(start)
		}()
	}

	time.Sleep(hold)
	*writer.Value() = 1
	writer.Unlock()

	for range 2 {
		if d := <-elapsed; d < hold-10*time.Millisecond {
			t.Fatalf("reader acquired after %v while writer held the lock", d)
		}
	}
	lock.Read(func(v *int) { require.Equal(t, 1, *v) })
}

func TestRWLock_WriterWaitsForReaders(t *testing.T) {
	lock := NewRWLockOf(0)
	const hold = 300 * time.Millisecond

	reader := lock.RLock()

	reader2 := make(chan time.Duration, 1)
	go func() {
		start := time.Now()
		g := lock.RLock()
		reader2 <- time.Since(start)
		g.Unlock()
	}()
	writer := make(chan time.Duration, 1)
	writerStart := time.Now()
	go func() {
		g := lock.Lock()
		writer <- time.Since(writerStart)
		g.Unlock()
	}()

	time.Sleep(hold)
	reader.Unlock()

	// Readers are preferred: the second reader joins immediately even
	// though a writer is already waiting.
	if d := <-reader2; d > slack(50*time.Millisecond) {
		t.Fatalf("second reader waited %v", d)
	}
	if d := <-writer; d < hold-10*time.Millisecond {
		t.Fatalf("writer acquired after %v while a reader held the lock", d)
	}
}

func TestRWLock_LastReaderHandOff(t *testing.T) {
	var rw RWLock

	// A reader that joins and leaves while another still holds the read
	// lock must not let the count reach zero with the word read-locked.
	rw.RLock()
	for range 100 {
		rw.RLock()
		rw.RUnlock()
		require.EqualValues(t, 1, rw.readers.Load())
		require.EqualValues(t, rwReadLocked, rw.state.Load())
		require.False(t, rw.TryLock(), "writer admitted while a reader holds the lock")
	}
	rw.RUnlock()
	require.EqualValues(t, 0, rw.readers.Load())
	require.EqualValues(t, rwUnlocked, rw.state.Load())

	require.True(t, rw.TryLock())
	require.False(t, rw.TryLock(), "second writer admitted")
	rw.Unlock()
}

func TestRWLock_WriterExcludesEveryone(t *testing.T) {
	var rw RWLock
	var readersIn, writersIn atomic.Int32
	const loops = 2000

	var wg sync.WaitGroup
	fail := make(chan string, 1)
	report := func(msg string) {
		select {
		case fail <- msg:
		default:
		}
	}
	for i := range 2 * runtime.GOMAXPROCS(0) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range loops {
				if i%3 == 0 {
					rw.Lock()
					if writersIn.Add(1) != 1 || readersIn.Load() != 0 {
						report("writer shared the lock")
					}
					writersIn.Add(-1)
					rw.Unlock()
				} else {
					rw.RLock()
					readersIn.Add(1)
					if writersIn.Load() != 0 {
						report("reader entered while a writer held the lock")
					}
					readersIn.Add(-1)
					rw.RUnlock()
				}
			}
		}()
	}
	wg.Wait()
	select {
	case msg := <-fail:
		t.Fatal(msg)
	default:
	}
}

func TestRWLock_ArrivingReaderOvertakesWaitingWriter(t *testing.T) {
	var rw RWLock
	rw.RLock()

	var writerIn atomic.Bool
	writerDone := make(chan struct{})
	go func() {
		rw.Lock()
		writerIn.Store(true)
		rw.Unlock()
		close(writerDone)
	}()
	for rw.writers.Load() != 1 {
		runtime.Gosched()
	}

	// Overlapping readers hand the read lock to one another; the parked
	// writer gets in only once the read phase ends.
	for range 5 {
		joined := make(chan struct{})
		go func() {
			rw.RLock()
			close(joined)
		}()
		select {
		case <-joined:
		case <-time.After(slack(time.Second)):
			t.Fatal("reader blocked behind a waiting writer")
		}
		rw.RUnlock()
		time.Sleep(5 * time.Millisecond)
		require.False(t, writerIn.Load(), "writer admitted during the read phase")
	}

	rw.RUnlock()
	select {
	case <-writerDone:
	case <-time.After(slack(2 * time.Second)):
		t.Fatal("writer not woken after the last reader left")
	}
}

func TestRWLockOf_Guards(t *testing.T) {
	lock := NewRWLockOf(map[string]int{})
	lock.Write(func(v *map[string]int) { (*v)["a"] = 1 })

	r1 := lock.RLock()
	r2 := lock.RLock()
	require.Equal(t, 1, (*r1.Value())["a"])
	require.Equal(t, 1, (*r2.Value())["a"])
	r1.Unlock()
	r2.Unlock()
	require.Panics(t, func() { r1.Unlock() })

	w := lock.Lock()
	(*w.Value())["b"] = 2
	w.Unlock()
	require.Panics(t, func() { w.Value() })

	lock.Read(func(v *map[string]int) { require.Len(t, *v, 2) })
}

func TestRWLock_RLocker(t *testing.T) {
	var rw RWLock
	rl := rw.RLocker()
	rl.Lock()
	rl.Lock()
	if rw.TryLock() {
		t.Fatal("TryLock succeeded while read-locked")
	}
	rl.Unlock()
	rl.Unlock()
	if !rw.TryLock() {
		t.Fatal("TryLock failed after readers left")
	}
	rw.Unlock()
}

func BenchmarkRWLock_Read(b *testing.B) {
	var rw RWLock
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rw.RLock()
			rw.RUnlock()
		}
	})
}
