// Command atomicsdemo exercises the atomics primitives from several
// goroutines and prints what happened.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/llxisdsh/atomics"
	"github.com/llxisdsh/atomics/internal/contention"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	demo    = flag.StringP("demo", "d", "all", "demo to run: lazy, spin, contention or all")
	loops   = flag.IntP("loops", "n", 100_000_000, "loads per contention probe")
	workers = flag.IntP("workers", "w", 8, "goroutines racing in the lazy demo")
)

func main() {
	flag.Parse()

	l := log.New(os.Stderr, "atomicsdemo: ", log.Ltime|log.Lmicroseconds)
	ctx := context.WithValue(context.Background(), contextKeyLogger, Logger(l))

	if err := run(ctx, *demo); err != nil {
		l.Printf("%+v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, name string) error {
	demos := map[string]func(context.Context) error{
		"lazy":       lazyDemo,
		"spin":       spinDemo,
		"contention": contentionDemo,
	}
	if name == "all" {
		for _, n := range []string{"lazy", "spin", "contention"} {
			if err := demos[n](ctx); err != nil {
				return errors.Wrapf(err, "%s demo", n)
			}
		}
		return nil
	}
	fn, ok := demos[name]
	if !ok {
		return errors.Errorf("unknown demo %q", name)
	}
	return errors.Wrapf(fn(ctx), "%s demo", name)
}

// lazyDemo races several goroutines on the first Get of a Lazy value.
func lazyDemo(ctx context.Context) error {
	log := logger(ctx)
	if *workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", *workers)
	}
	var inits atomic.Int32
	lazy := atomics.NewLazy(func() string {
		n := inits.Add(1)
		log.Printf("lazy: initializer run #%d", n)
		return fmt.Sprintf("value from initializer #%d", n)
	})

	seen := make([]*string, *workers)
	g, _ := errgroup.WithContext(ctx)
	for i := range seen {
		g.Go(func() error {
			seen[i] = lazy.Get()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, p := range seen {
		if p != seen[0] {
			return errors.Errorf("worker %d saw a different value", i)
		}
	}
	log.Printf("lazy: %d workers, %d initializer runs, everyone got %q", len(seen), inits.Load(), *seen[0])
	return nil
}

// spinDemo hands a spin-locked slice back and forth between two goroutines.
func spinDemo(ctx context.Context) error {
	log := logger(ctx)
	lock := atomics.NewSpinLockOf(make([]string, 0, 4))

	g, _ := errgroup.WithContext(ctx)
	for _, name := range []string{"left", "right"} {
		g.Go(func() error {
			for i := range 2 {
				lock.With(func(v *[]string) {
					*v = append(*v, fmt.Sprintf("%s#%d", name, i))
					log.Printf("spin: %s holds the lock, %d entries", name, len(*v))
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	guard := lock.Lock()
	defer guard.Unlock()
	log.Printf("spin: final %v", *guard.Value())
	return nil
}

// contentionDemo prints the cache-line contention timings.
func contentionDemo(ctx context.Context) error {
	log := logger(ctx)
	if *loops <= 0 {
		return errors.Errorf("loops must be positive, got %d", *loops)
	}
	for _, r := range contention.Run(*loops) {
		log.Printf("contention: %-24s %v (%.2f ns/load)", r.Name, r.Elapsed,
			float64(r.Elapsed)/float64(*loops))
	}
	return nil
}
