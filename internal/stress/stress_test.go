package stress

import (
	"testing"
	"time"

	"github.com/i5heu/linereverse/internal/spscqueue"
)

func TestRunTimedNoLossSingleProducerSingleConsumer(t *testing.T) {
	q := spscqueue.New(256)
	result := RunTimed(q, 200*time.Millisecond, func(i int) uint8 { return uint8(i) })

	if result.Produced == 0 {
		t.Fatal("expected at least some items to be produced")
	}
	if result.Produced != result.Consumed {
		t.Fatalf("produced %d != consumed %d: items were lost or double-counted", result.Produced, result.Consumed)
	}
	if !q.Empty() {
		t.Fatal("queue should be fully drained after a timed run")
	}
}
