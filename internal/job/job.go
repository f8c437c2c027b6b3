// Package job defines the fixed carry/input segment pair that travels
// through the pipeline's three queues by index, and the pool of such pairs
// allocated once at startup.
package job

import "github.com/i5heu/linereverse/internal/segment"

// Job is the unit of work passed between pipeline stages: a carry segment
// and an input segment sharing one pool, plus bookkeeping the queues
// themselves don't carry.
//
// Terminal is set by the reader the moment it observes end-of-stream (a
// zero or negative read count) or a read error; the worker and writer set
// it only to poison a job after a fatal error of their own, and the
// writer's Reset clears it before restoring it on the job it hands back.
// It exists because the input segment's Length is legitimately
// mutated to zero by ordinary processing (e.g. a chunk that only extended
// the carry buffer without completing a line), so Length alone cannot
// distinguish "nothing to write this round" from "end of stream."
type Job struct {
	Carry    segment.Segment
	Input    segment.Segment
	Terminal bool
}

// Pool is a fixed array of Jobs addressed by 8-bit index, matching the
// queues' uint8 payload type.
type Pool struct {
	jobs []Job
}

// NewPool allocates n Jobs, wiring each to its carry and input buffer
// index in the shared bufpool.Pool. Buffer indices 0..2n-1 are consumed in
// pairs (carry, input); the caller is responsible for reserving a further
// buffer for the worker's private carry-backup segment.
func NewPool(n int) *Pool {
	if n <= 0 || n > 255 {
		panic("job: pool size must be in [1, 255]")
	}
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i].Carry.Buffer = 2 * i
		jobs[i].Input.Buffer = 2*i + 1
	}
	return &Pool{jobs: jobs}
}

// Len returns the number of jobs in the pool.
func (p *Pool) Len() int { return len(p.jobs) }

// Get returns a pointer to the job at index i, so callers can mutate its
// segments in place.
func (p *Pool) Get(i uint8) *Job {
	return &p.jobs[i]
}

// Reset clears both segments of a job, ready for reuse by the reader.
func (j *Job) Reset() {
	j.Carry.Reset()
	j.Input.Reset()
	j.Terminal = false
}
