// Package stress runs a timed single-producer/single-consumer workload
// against an spscqueue.Queue and reports throughput counters. It is the
// SPSC-disciplined descendant of the pack's MPMC timed-test harness: same
// shape (context deadline, atomic counters, drain-on-stop), narrowed to
// exactly one producer goroutine and one consumer goroutine because that is
// the only discipline spscqueue.Queue permits.
package stress

import (
	"context"
	"sync/atomic"
	"time"
)

// Result reports what a timed run observed.
type Result struct {
	Produced int64
	Consumed int64
	Elapsed  time.Duration
}

// Ring is the subset of spscqueue.Queue this package depends on, kept
// narrow so tests can substitute a fake.
type Ring interface {
	Push(uint8) bool
	Pop() (uint8, bool)
}

// RunTimed spawns one producer and one consumer against q for duration,
// then drains any remainder once the deadline passes. valueAt maps a
// monotonically increasing index to the byte pushed. The consumer only
// counts what it pops; the popped values are discarded, not recorded.
func RunTimed(q Ring, duration time.Duration, valueAt func(int) uint8) Result {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var produced, consumed int64
	var stop int32

	start := time.Now()

	go func() {
		<-ctx.Done()
		atomic.StoreInt32(&stop, 1)
	}()

	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		i := 0
		for atomic.LoadInt32(&stop) == 0 {
			if q.Push(valueAt(i)) {
				i++
				atomic.AddInt64(&produced, 1)
			}
		}
	}()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for {
			if _, ok := q.Pop(); ok {
				atomic.AddInt64(&consumed, 1)
				continue
			}
			select {
			case <-producerDone:
				// Producer has stopped publishing; drain what remains and
				// exit once the ring is confirmed empty.
				if _, ok := q.Pop(); ok {
					atomic.AddInt64(&consumed, 1)
					continue
				}
				return
			default:
			}
		}
	}()

	<-producerDone
	<-consumerDone

	return Result{
		Produced: atomic.LoadInt64(&produced),
		Consumed: atomic.LoadInt64(&consumed),
		Elapsed:  time.Since(start),
	}
}
