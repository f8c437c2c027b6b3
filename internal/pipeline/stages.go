package pipeline

import (
	"bytes"
	"io"
	"sync/atomic"

	"github.com/i5heu/linereverse/internal/bufpool"
	"github.com/i5heu/linereverse/internal/ioadapter"
	"github.com/i5heu/linereverse/internal/job"
	"github.com/i5heu/linereverse/internal/reverse"
	"github.com/i5heu/linereverse/internal/segment"
	"github.com/i5heu/linereverse/internal/spscqueue"
)

const lf = 0x0A

// readerLoop pops a free job, fills its input buffer with one Read, and
// forwards it. A zero-length read (including io.EOF) marks the job
// Terminal and ends the loop after handing it off, so the worker gets one
// last chance to flush any carry it is still holding.
func readerLoop(pool *bufpool.Pool, r ioadapter.Reader, jobs *job.Pool, in, out *spscqueue.Waitable, failure *atomic.Pointer[error], bytesRead *int64) {
	for {
		idx := in.PopWait()
		jb := jobs.Get(idx)

		if jb.Terminal {
			// The writer poisoned this job after a fatal downstream
			// failure and handed it back early; there is nothing left to
			// read, so forward it once more to unwind the worker too.
			out.PushNotify(idx)
			return
		}

		n, err := r.Read(pool.Bytes(jb.Input.Buffer))
		if err != nil && err != io.EOF {
			reportFailure(failure, err)
			jb.Input.Reset()
			jb.Terminal = true
			out.PushNotify(idx)
			return
		}

		jb.Input.Offset = 0
		jb.Input.Length = n
		atomic.AddInt64(bytesRead, int64(n))
		jb.Terminal = n == 0

		out.PushNotify(idx)
		if jb.Terminal {
			return
		}
	}
}

// workerLoop pops a job the reader filled, runs it through the carry
// protocol, and forwards it to the writer. accumulatorBuffer is the buffer
// index the worker's persistent carry accumulator starts on; the
// accumulator segment lives for the whole run rather than being reset per
// job, but each completed carry line swaps it with a job's carry segment,
// so the buffer it uses changes over the run.
func workerLoop(pool *bufpool.Pool, jobs *job.Pool, accumulatorBuffer int, in, out *spscqueue.Waitable, failure *atomic.Pointer[error]) {
	accumulator := segment.Segment{Buffer: accumulatorBuffer}

	for {
		idx := in.PopWait()
		jb := jobs.Get(idx)

		_, _, err := reverse.ProcessSegment(pool, &jb.Input, &jb.Carry, &accumulator)
		if err != nil {
			reportFailure(failure, err)
			jb.Carry.Reset()
			jb.Input.Reset()
			jb.Terminal = true
		}

		terminal := jb.Terminal
		out.PushNotify(idx)
		if terminal {
			return
		}
	}
}

// writerLoop pops a job the worker finished, flushes whichever of its two
// segments hold bytes (carry always before input, gathered into a single
// writev when both are present), and cycles the job back to the reader.
//
// The job is pushed back to the reader in every case, including a fatal
// write error or an already-poisoned job forwarded by the worker: the
// reader is the only stage a dead writer would otherwise starve, since
// write→read is fed exclusively by this loop. A reader that has already
// exited on its own (the ordinary end-of-stream path) simply never pops
// the extra job.
func writerLoop(pool *bufpool.Pool, jobs *job.Pool, w ioadapter.Writer, in, out *spscqueue.Waitable, failure *atomic.Pointer[error], bytesWritten, linesProcessed *int64) {
	for {
		idx := in.PopWait()
		jb := jobs.Get(idx)

		n, lines, err := flush(pool, jb, w)
		atomic.AddInt64(bytesWritten, int64(n))
		atomic.AddInt64(linesProcessed, lines)

		terminal := jb.Terminal
		if err != nil {
			reportFailure(failure, err)
			terminal = true
		}

		jb.Reset()
		jb.Terminal = terminal
		out.PushNotify(idx)

		if terminal {
			return
		}
	}
}

func flush(pool *bufpool.Pool, jb *job.Job, w ioadapter.Writer) (n int, lines int64, err error) {
	carryBytes := segmentBytes(pool, jb.Carry)
	inputBytes := segmentBytes(pool, jb.Input)

	switch {
	case len(carryBytes) > 0 && len(inputBytes) > 0:
		n, err = w.WriteVec([][]byte{carryBytes, inputBytes})
	case len(carryBytes) > 0:
		n, err = w.Write(carryBytes)
	case len(inputBytes) > 0:
		n, err = w.Write(inputBytes)
	}

	lines = int64(bytes.Count(carryBytes, []byte{lf})) + int64(bytes.Count(inputBytes, []byte{lf}))
	return n, lines, err
}

func segmentBytes(pool *bufpool.Pool, s segment.Segment) []byte {
	if s.Length == 0 {
		return nil
	}
	return pool.Bytes(s.Buffer)[s.Offset : s.Offset+s.Length]
}
