// Package pipeline wires the buffer pool, job pool, and three SPSC queues
// into the reader/worker/writer goroutine ring that drives a single run:
// pop a job with waiting, do the stage's work, push it on with notify,
// forwarding a terminal job once end-of-stream is reached so every stage
// unwinds without a cancellation context.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/i5heu/linereverse/internal/affinity"
	"github.com/i5heu/linereverse/internal/bufpool"
	"github.com/i5heu/linereverse/internal/ioadapter"
	"github.com/i5heu/linereverse/internal/job"
	"github.com/i5heu/linereverse/internal/spscqueue"
)

// Options configures a single pipeline run. Reader and Writer must already
// be open; opening and closing files is the caller's job.
type Options struct {
	BufSize       int
	BufferCount   int // J: number of jobs in flight
	QueueCapacity int // Q: must exceed BufferCount
	CPUAffinity   [3]int
	Reader        ioadapter.Reader
	Writer        ioadapter.Writer
	Logger        zerolog.Logger
}

// RunReport summarizes a completed run for logging; it is not a benchmark
// artifact and carries no timing beyond overall wall-clock duration.
type RunReport struct {
	BytesRead      int64
	BytesWritten   int64
	LinesProcessed int64
	Duration       time.Duration
	ExitReason     string
}

const (
	stageReader = 0
	stageWorker = 1
	stageWriter = 2
)

// Run allocates the pipeline's fixed resources, runs reader, worker, and
// writer goroutines to completion, and returns once all three have exited.
// The returned error, if non-nil, is the first fatal error any stage
// observed — a *reverse.MalformedInputError or an *ioadapter.IOError.
func Run(opts Options) (RunReport, error) {
	start := time.Now()

	j := opts.BufferCount
	pool := bufpool.New(2*j+1, opts.BufSize)
	jobs := job.NewPool(j)
	accumulatorBuffer := 2 * j

	writeToRead := spscqueue.NewWaitable(opts.QueueCapacity)
	readToWork := spscqueue.NewWaitable(opts.QueueCapacity)
	workToWrite := spscqueue.NewWaitable(opts.QueueCapacity)

	for i := 0; i < j; i++ {
		if !writeToRead.PushNotify(uint8(i)) {
			panic("pipeline: queue capacity must exceed buffer count")
		}
	}

	var failure atomic.Pointer[error]
	var bytesRead, bytesWritten, linesProcessed int64

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := affinity.Pin(opts.CPUAffinity[stageReader]); err != nil {
			opts.Logger.Warn().Err(err).Msg("reader: cpu affinity pin failed")
		}
		readerLoop(pool, opts.Reader, jobs, writeToRead, readToWork, &failure, &bytesRead)
	}()

	go func() {
		defer wg.Done()
		if err := affinity.Pin(opts.CPUAffinity[stageWorker]); err != nil {
			opts.Logger.Warn().Err(err).Msg("worker: cpu affinity pin failed")
		}
		workerLoop(pool, jobs, accumulatorBuffer, readToWork, workToWrite, &failure)
	}()

	go func() {
		defer wg.Done()
		if err := affinity.Pin(opts.CPUAffinity[stageWriter]); err != nil {
			opts.Logger.Warn().Err(err).Msg("writer: cpu affinity pin failed")
		}
		writerLoop(pool, jobs, opts.Writer, workToWrite, writeToRead, &failure, &bytesWritten, &linesProcessed)
	}()

	wg.Wait()

	report := RunReport{
		BytesRead:      atomic.LoadInt64(&bytesRead),
		BytesWritten:   atomic.LoadInt64(&bytesWritten),
		LinesProcessed: atomic.LoadInt64(&linesProcessed),
		Duration:       time.Since(start),
	}

	if errp := failure.Load(); errp != nil {
		report.ExitReason = "error"
		opts.Logger.Error().Err(*errp).Dur("duration", report.Duration).Msg("pipeline run failed")
		return report, *errp
	}

	report.ExitReason = "ok"
	opts.Logger.Info().
		Int64("bytes_read", report.BytesRead).
		Int64("bytes_written", report.BytesWritten).
		Int64("lines", report.LinesProcessed).
		Dur("duration", report.Duration).
		Msg("pipeline run complete")

	return report, nil
}

// reportFailure records err as the run's failure if none has been recorded
// yet; later errors (typically downstream stages observing the poisoned
// terminal job) are dropped in favor of the first, root-cause failure.
func reportFailure(cell *atomic.Pointer[error], err error) {
	e := err
	cell.CompareAndSwap(nil, &e)
}
