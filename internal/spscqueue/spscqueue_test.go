package spscqueue

import (
	"testing"
)

func TestNewRoundsCapacityToPowerOfTwo(t *testing.T) {
	q := New(5)
	if q.Cap() != 7 { // rounds to 8 slots, one sacrificed
		t.Fatalf("expected capacity 7, got %d", q.Cap())
	}
}

func TestPushPopBasic(t *testing.T) {
	q := New(4)
	if !q.Empty() {
		t.Fatal("expected new queue to be empty")
	}
	if !q.Push(1) {
		t.Fatal("push should have succeeded")
	}
	if !q.Push(2) {
		t.Fatal("push should have succeeded")
	}
	if q.Empty() {
		t.Fatal("queue should not report empty after pushes")
	}

	v, ok := q.Pop()
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}
	v, ok = q.Pop()
	if !ok || v != 2 {
		t.Fatalf("expected (2, true), got (%d, %v)", v, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected pop on empty queue to fail")
	}
}

func TestPushFailsWhenFull(t *testing.T) {
	q := New(2) // capacity rounds to 2, usable slots = 1
	if !q.Push(9) {
		t.Fatal("first push should succeed")
	}
	if q.Push(10) {
		t.Fatal("second push should fail: only one usable slot")
	}
	if !q.Full() {
		t.Fatal("queue should report full")
	}
}

// TestHammerSingleProducerSingleConsumer pushes an ascending sequence from
// one goroutine and pops it from another, asserting strict FIFO order and
// zero loss under sustained concurrent traffic.
func TestHammerSingleProducerSingleConsumer(t *testing.T) {
	const n = 200_000
	q := New(64)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			for !q.Push(uint8(i)) {
				// busy-wait for the consumer to free a slot
			}
		}
	}()

	for i := 0; i < n; i++ {
		var v uint8
		var ok bool
		for {
			v, ok = q.Pop()
			if ok {
				break
			}
		}
		if v != uint8(i) {
			t.Fatalf("out of order at %d: got %d", i, v)
		}
	}
	<-done
}

func TestWaitablePushNotifyWakesPopWait(t *testing.T) {
	w := NewWaitable(8)
	result := make(chan uint8, 1)
	go func() {
		result <- w.PopWait()
	}()

	if !w.PushNotify(42) {
		t.Fatal("push should have succeeded")
	}

	if got := <-result; got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
